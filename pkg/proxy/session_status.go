package proxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec/legacy"

	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/forge"
	"github.com/xenoncommunity/xenon/pkg/proxy/ping"
)

type statusSessionHandler struct {
	ps  *pendingSession
	log logr.Logger

	nopSessionHandler
}

func newStatusSessionHandler(ps *pendingSession) netmc.SessionHandler {
	return &statusSessionHandler{
		ps:  ps,
		log: logr.FromContextOrDiscard(ps.conn.Context()).WithName("status"),
	}
}

func (h *statusSessionHandler) Activated() {
	if h.ps.proxy.config().LogPings {
		h.log.Info("server list ping", "remoteAddr", h.ps.RemoteAddr(), "virtualHost", h.ps.virtualHost)
	}
}

func (h *statusSessionHandler) HandlePacket(pc *proto.PacketContext) {
	switch p := pc.Packet.(type) {
	case *packet.StatusRequest:
		h.handleStatusRequest()
	case *packet.StatusPing:
		h.handleStatusPing(p)
	default:
		// unexpected packet, simply close
		_ = h.ps.conn.Close()
	}
}

func (h *statusSessionHandler) handleStatusRequest() {
	if h.ps.phase != phaseStatus {
		_ = h.ps.conn.Close()
		return
	}
	h.ps.phase = phasePing

	// Passthrough pings may block, never stall the executor.
	go func() {
		res := h.ps.proxy.serverPing(h.ps.conn.Context(), h.ps)
		e := &ProxyPingEvent{inbound: h.ps, ping: res}
		h.ps.proxy.event.Fire(e)

		_ = h.ps.conn.Executor().Post(func() {
			b, err := e.Ping().MarshalJSON()
			if err != nil {
				h.log.Error(err, "error marshaling ping response")
				_ = h.ps.conn.Close()
				return
			}
			_ = h.ps.conn.WritePacket(&packet.StatusResponse{Status: string(b)})
		})
	}()
}

func (h *statusSessionHandler) handleStatusPing(p *packet.StatusPing) {
	if h.ps.phase != phasePing {
		_ = h.ps.conn.Close()
		return
	}
	// Answer and close since the client has what it wants.
	_ = netmc.CloseWith(h.ps.conn, p)
}

// serverPing returns the response for a status request.
// With ping passthrough the response of the forced host or first try server
// is returned, falling back to the local response if it can not be reached.
func (p *Proxy) serverPing(ctx context.Context, in Inbound) *ping.ServerPing {
	if p.config().PingPassthrough {
		if s := p.initialServer(in.VirtualHost()); s != nil {
			res, err := p.statusCache.Get(ctx, statusCacheKey(s.Name(), in.Protocol()))
			if err == nil {
				return res
			}
			p.log.V(1).Info("could not ping backend for passthrough", "server", s.Name(), "error", err)
		}
	}
	return p.localPing(in)
}

func statusCacheKey(server string, protocol proto.Protocol) string {
	return fmt.Sprintf("%s/%d", server, protocol)
}

func (p *Proxy) loadStatus(ctx context.Context, key string) (*ping.ServerPing, error) {
	i := strings.LastIndexByte(key, '/')
	var protocol int
	if _, err := fmt.Sscan(key[i+1:], &protocol); err != nil {
		return nil, err
	}
	s := p.Server(key[:i])
	if s == nil {
		return nil, fmt.Errorf("server %q not registered", key[:i])
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.config().ConnectionTimeout))
	defer cancel()
	return s.Ping(ctx, proto.Protocol(protocol))
}

// localPing builds the status response of the proxy itself.
func (p *Proxy) localPing(in Inbound) *ping.ServerPing {
	cfg := p.config()
	p.cfgMu.RLock()
	motd, fav := p.motd, p.favicon
	p.cfgMu.RUnlock()

	protocol := in.Protocol()
	if !version.Protocol(protocol).Supported() {
		protocol = version.MaximumVersion.Protocol
	}
	res := &ping.ServerPing{
		Version: ping.Version{
			Protocol: protocol,
			Name:     "Xenon " + version.SupportedVersionsString,
		},
		Players: &ping.Players{
			Online: p.PlayerCount(),
			Max:    cfg.ShowMaxPlayers,
		},
		Description: motd,
		Favicon:     fav,
	}
	if ps, ok := in.(*pendingSession); ok && cfg.ForgeSupport &&
		strings.Contains(ps.extraData, forge.HandshakeHostnameToken) {
		res.ModInfo = ping.DefaultModInfo
	}
	return res
}

// legacyPingResponse converts res for pre-1.7 clients.
func legacyPingResponse(res *ping.ServerPing) *packet.LegacyPingResponse {
	l := &packet.LegacyPingResponse{
		Protocol:      127, // pre-1.7 clients show the version name in red
		ServerVersion: res.Version.Name,
		Motd:          legacyText(res.Description),
	}
	if res.Players != nil {
		l.Online = res.Players.Online
		l.Max = res.Players.Max
	}
	return l
}

func legacyText(c component.Component) string {
	if c == nil {
		return ""
	}
	b := new(strings.Builder)
	if err := (&legacy.Legacy{}).Marshal(b, c); err != nil {
		return ""
	}
	return b.String()
}
