package proxy

import (
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/config"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
)

// backendPlaySessionHandler relays the packets of a backend in the play
// state to the client.
type backendPlaySessionHandler struct {
	link *backendLink

	nopSessionHandler
}

func (h *backendPlaySessionHandler) HandlePacket(pc *proto.PacketContext) {
	l := h.link
	if !l.active() {
		l.disconnect()
		return
	}
	if !l.joined {
		h.handleJoining(pc)
		return
	}
	s := l.session
	switch p := pc.Packet.(type) {
	case *packet.KeepAlive:
		l.relayKeepAlive(p, pc.Payload)
	case *packet.Disconnect:
		s.backendKicked(l, reasonOf(p.Reason))
	case *plugin.Message:
		l.handlePluginMessage(p)
	case *config.StartUpdate:
		h.handleStartUpdate()
	case *packet.JoinGame:
		s.clientEntityID, s.serverEntityID = p.EntityID, p.EntityID
		_ = s.conn.Write(pc.Payload)
	default:
		l.forwardToClient(pc)
	}
}

// handleJoining handles packets between backend login and JoinGame.
func (h *backendPlaySessionHandler) handleJoining(pc *proto.PacketContext) {
	l := h.link
	s := l.session
	switch p := pc.Packet.(type) {
	case *packet.JoinGame:
		s.joined(l, pc, p)
	case *packet.KeepAlive:
		// Answered for the client, which still plays on the previous server.
		_ = l.conn.WritePacket(p)
	case *packet.Disconnect:
		l.kicked(reasonOf(p.Reason))
	case *plugin.Message:
		// Forge handshakes and channel registrations precede the JoinGame.
		l.observeForge(p)
		if plugin.McBrand(p) {
			l.handlePluginMessage(p)
			return
		}
		_ = s.writePacket(p)
	default:
		l.log.V(1).Info("dropping packet before join", "packet", pc.PacketID)
	}
}

// handleStartUpdate moves client and backend into a reconfiguration.
func (h *backendPlaySessionHandler) handleStartUpdate() {
	l := h.link
	s := l.session
	l.conn.SetDecodeState(state.Config)
	l.configuring = true
	if err := s.conn.WritePacket(&config.StartUpdate{}); err != nil {
		return
	}
	s.conn.SetEncodeState(state.Config)
	l.conn.SetSessionHandler(&backendConfigSessionHandler{link: l})
}

func (h *backendPlaySessionHandler) Disconnected() {
	l := h.link
	if !l.joined {
		l.fail(errBackendUnlinked, nil)
		return
	}
	if l.obsolete.Load() {
		return
	}
	s := l.session
	s.backendKicked(l, s.proxy.messages.Component(s.Locale(), message.LostConnection))
}

// forwardToClient relays a raw backend packet, rewriting entity ids.
func (l *backendLink) forwardToClient(pc *proto.PacketContext) {
	s := l.session
	payload := pc.Payload
	if s.rewrite != nil {
		payload = s.rewrite.RewriteClientBound(payload, s.serverEntityID, s.clientEntityID)
	}
	if s.conn.EncodeState() != state.Play && s.Protocol().GreaterEqual(version.Minecraft_1_20_2) {
		s.queue.QueuePayload(payload)
		return
	}
	_ = s.conn.Write(payload)
}

// handlePluginMessage relays a plugin message of the backend.
func (l *backendLink) handlePluginMessage(p *plugin.Message) {
	s := l.session
	l.observeForge(p)
	switch {
	case plugin.McBrand(p):
		l.brand = plugin.ReadBrand(p.Data)
		e := &ServerBrandEvent{player: s, server: l.server, backendBrand: l.brand, brand: l.brand}
		s.proxy.event.Fire(e)
		_ = s.writePacket(plugin.RewriteMinecraftBrand(p, e.Brand()))
	case plugin.IsBungeeCord(p):
		l.handleBungeeMessage(p)
	default:
		e := &PluginMessageEvent{
			source:  FromServer,
			player:  s,
			server:  l.server,
			channel: p.Channel,
			data:    p.Data,
		}
		s.proxy.event.Fire(e)
		if e.Cancelled() {
			return
		}
		_ = s.writePacket(p)
	}
}
