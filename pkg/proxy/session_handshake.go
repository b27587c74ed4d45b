package proxy

import (
	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
)

type handshakeSessionHandler struct {
	conn  netmc.MinecraftConn
	proxy *Proxy
	log   logr.Logger

	nopSessionHandler
}

// newHandshakeSessionHandler returns a handler used for clients in the handshake state.
func newHandshakeSessionHandler(conn netmc.MinecraftConn, p *Proxy) netmc.SessionHandler {
	return &handshakeSessionHandler{
		conn:  conn,
		proxy: p,
		log:   logr.FromContextOrDiscard(conn.Context()).WithName("handshake"),
	}
}

func (h *handshakeSessionHandler) HandlePacket(pc *proto.PacketContext) {
	if !pc.KnownPacket() {
		// Unknown packet received. Better to close the connection.
		_ = h.conn.Close()
		return
	}
	switch p := pc.Packet.(type) {
	case *packet.Handshake:
		h.handleHandshake(p)
	case *packet.LegacyPing:
		h.handleLegacyPing(p)
	default:
		_ = h.conn.Close()
	}
}

func (h *handshakeSessionHandler) handleHandshake(hs *packet.Handshake) {
	ps := newPendingSession(h.conn, h.proxy, hs)
	h.log.V(1).Info("received handshake",
		"protocol", version.Protocol(hs.ProtocolVersion),
		"virtualHost", ps.virtualHost,
		"intent", hs.NextStatus)

	h.proxy.event.Fire(&PlayerHandshakeEvent{inbound: ps, intent: hs.NextStatus})

	switch hs.NextStatus {
	case packet.StatusIntent:
		ps.phase = phaseStatus
		h.conn.SetState(state.Status)
		h.conn.SetProtocol(statusProtocol(ps.protocol))
		h.conn.SetSessionHandler(newStatusSessionHandler(ps))
	case packet.LoginIntent, packet.TransferIntent:
		h.handleLogin(ps)
	default:
		// Unknown intents are dropped without a word.
		_ = h.conn.Close()
	}
}

func (h *handshakeSessionHandler) handleLogin(ps *pendingSession) {
	cfg := h.proxy.config()
	h.conn.SetState(state.Login)

	if !version.Protocol(ps.protocol).Supported() {
		key, arg := message.OutdatedClient, version.SupportedVersionsString
		h.conn.SetProtocol(version.MinimumVersion.Protocol)
		if ps.protocol > version.MaximumVersion.Protocol {
			key, arg = message.OutdatedServer, version.MaximumVersion.LastName()
			h.conn.SetProtocol(version.MaximumVersion.Protocol)
		}
		h.proxy.metrics.Connection("outdated")
		_ = netmc.CloseWith(h.conn, packet.NewLoginDisconnect(h.proxy.messages.Component("", key, arg)))
		return
	}
	h.conn.SetProtocol(ps.protocol)

	if ps.transfer && cfg.RejectTransfers {
		h.proxy.metrics.Connection("transfer_rejected")
		_ = netmc.CloseWith(h.conn, packet.NewLoginDisconnect(h.proxy.messages.Component("", message.RejectTransfer)))
		return
	}

	ps.phase = phaseUsername
	h.conn.SetSessionHandler(newLoginSessionHandler(ps))
}

func (h *handshakeSessionHandler) handleLegacyPing(p *packet.LegacyPing) {
	ps := &pendingSession{
		conn:       h.conn,
		proxy:      h.proxy,
		protocol:   version.MaximumVersion.Protocol,
		legacyPing: true,
		phase:      phasePing,
	}
	res := h.proxy.localPing(ps)
	e := &ProxyPingEvent{inbound: ps, ping: res}
	h.proxy.event.Fire(e)
	_ = netmc.CloseWithLegacy(h.conn, packet.FromLegacyPingResponse(legacyPingResponse(e.Ping()), p.Version))
}

// statusProtocol returns the protocol status packets are exchanged with.
// Unsupported clients still get an answer telling them the supported versions.
func statusProtocol(p proto.Protocol) proto.Protocol {
	if version.Protocol(p).Supported() {
		return p
	}
	return version.MaximumVersion.Protocol
}

// nopSessionHandler implements the optional SessionHandler methods.
type nopSessionHandler struct{}

func (nopSessionHandler) HandlePacket(*proto.PacketContext) {}
func (nopSessionHandler) Disconnected()                     {}
func (nopSessionHandler) Activated()                        {}
func (nopSessionHandler) Deactivated()                      {}
