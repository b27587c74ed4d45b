package proxy

import (
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/config"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
)

// backendConfigSessionHandler relays the configuration phase of a 1.20.2+
// backend to the client.
type backendConfigSessionHandler struct {
	link *backendLink

	nopSessionHandler
}

func (h *backendConfigSessionHandler) HandlePacket(pc *proto.PacketContext) {
	l := h.link
	if !l.active() {
		l.disconnect()
		return
	}
	s := l.session
	switch p := pc.Packet.(type) {
	case *packet.KeepAlive:
		l.relayKeepAlive(p, pc.Payload)
	case *plugin.Message:
		l.handlePluginMessage(p)
	case *packet.Disconnect:
		if l.joined {
			s.backendKicked(l, reasonOf(p.Reason))
		} else {
			l.kicked(reasonOf(p.Reason))
		}
	case *config.FinishedUpdate:
		h.handleFinished()
	default:
		_ = s.conn.Write(pc.Payload)
	}
}

// handleFinished moves the client into play once the backend finished
// its configuration and releases the packets queued meanwhile.
func (h *backendConfigSessionHandler) handleFinished() {
	l := h.link
	s := l.session
	l.conn.SetDecodeState(state.Play)
	if err := s.conn.WritePacket(&config.FinishedUpdate{}); err != nil {
		return
	}
	s.conn.SetEncodeState(state.Play)
	if err := s.queue.ReleaseQueue(s.conn); err != nil {
		s.log.V(1).Info("error releasing queued packets", "error", err)
	}
	l.conn.SetSessionHandler(&backendPlaySessionHandler{link: l})
}

func (h *backendConfigSessionHandler) Disconnected() {
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
