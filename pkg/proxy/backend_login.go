package proxy

import (
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/config"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/cookie"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/forge"
)

// backendLoginSessionHandler logs a player into a backend server.
type backendLoginSessionHandler struct {
	link *backendLink

	nopSessionHandler
}

func (h *backendLoginSessionHandler) HandlePacket(pc *proto.PacketContext) {
	l := h.link
	if l.done || !l.active() {
		l.disconnect()
		return
	}
	switch p := pc.Packet.(type) {
	case *packet.EncryptionRequest:
		l.fail(errBackendOnline, nil)
	case *packet.LoginPluginMessage:
		// Modern forwarding and other login queries are not supported.
		_ = l.conn.WritePacket(&packet.LoginPluginResponse{ID: p.ID, Success: false})
	case *packet.SetCompression:
		if err := l.conn.SetCompressionThreshold(p.Threshold); err != nil {
			l.fail(err, nil)
		}
	case *packet.LoginDisconnect:
		l.kicked(reasonOf(p.Reason))
	case *cookie.Request:
		l.forwardCookieRequest(p)
	case *packet.ServerLoginSuccess:
		h.handleLoginSuccess()
	default:
		l.log.V(1).Info("unexpected packet during backend login", "packet", pc.PacketID)
	}
}

func (h *backendLoginSessionHandler) Disconnected() {
	h.link.fail(errBackendUnlinked, nil)
}

func (h *backendLoginSessionHandler) handleLoginSuccess() {
	l := h.link
	s := l.session
	l.loggedIn = true

	if s.Protocol().Lower(version.Minecraft_1_20_2) {
		l.conn.SetState(state.Play)
		if s.spawned && s.forge.ResetNeeded() {
			_ = s.conn.WritePacket(forge.ResetPacket())
		}
		l.conn.SetSessionHandler(&backendPlaySessionHandler{link: l})
		return
	}

	if s.transition != nil && s.transition != l {
		l.fail(errSwitchInFlight, nil)
		return
	}
	s.transition = l
	switch s.conn.State() {
	case state.Config:
		s.completeTransition()
	case state.Play:
		// Detach the old server and move the client back into the config state.
		s.detachBackend()
		if err := s.conn.WritePacket(&config.StartUpdate{}); err != nil {
			return
		}
		s.conn.SetEncodeState(state.Config)
	default:
		// The client acknowledges its own login first.
	}
}

// forwardCookieRequest relays a cookie request of a backend in login to
// the client and remembers it to route the response back.
func (l *backendLink) forwardCookieRequest(p *cookie.Request) {
	s := l.session
	if s.Protocol().Lower(version.Minecraft_1_20_5) {
		_ = l.conn.WritePacket(&cookie.Response{Key: p.Key})
		return
	}
	l.cookieKeys = append(l.cookieKeys, p.Key)
	_ = s.writePacket(p)
}
