package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proxy/ping"
	"github.com/xenoncommunity/xenon/pkg/util/netutil"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// RegisteredServer is a backend server registered with the proxy.
type RegisteredServer struct {
	name string
	addr net.Addr

	mu      sync.RWMutex
	players map[uuid.UUID]*Session // players connected through this proxy
}

// NewRegisteredServer returns a server named name at addr.
func NewRegisteredServer(name, addr string) *RegisteredServer {
	return &RegisteredServer{
		name:    name,
		addr:    netutil.NewAddr(addr, "tcp"),
		players: map[uuid.UUID]*Session{},
	}
}

// Name returns the name of the server.
func (s *RegisteredServer) Name() string { return s.name }

// Addr returns the address of the server.
func (s *RegisteredServer) Addr() net.Addr { return s.addr }

// Players returns the players connected to the server through this proxy.
func (s *RegisteredServer) Players() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*Session, 0, len(s.players))
	for _, p := range s.players {
		list = append(list, p)
	}
	return list
}

// PlayerCount returns the number of players connected to the server.
func (s *RegisteredServer) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

func (s *RegisteredServer) addPlayer(p *Session) {
	s.mu.Lock()
	s.players[p.ID()] = p
	s.mu.Unlock()
}

func (s *RegisteredServer) removePlayer(p *Session) {
	s.mu.Lock()
	if s.players[p.ID()] == p {
		delete(s.players, p.ID())
	}
	s.mu.Unlock()
}

func (s *RegisteredServer) String() string {
	return fmt.Sprintf("%s (%s)", s.name, s.addr)
}

// sameAs reports whether s and o point to the same backend.
func (s *RegisteredServer) sameAs(o *RegisteredServer) bool {
	return s != nil && o != nil && s.name == o.name && s.addr.String() == o.addr.String()
}

// Ping requests the server list status of the server with protocol.
func (s *RegisteredServer) Ping(ctx context.Context, protocol proto.Protocol) (*ping.ServerPing, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", s.addr.String())
	if err != nil {
		return nil, fmt.Errorf("error dialing server %s: %w", s.name, err)
	}
	ctx = logr.NewContext(ctx, logr.FromContextOrDiscard(ctx).WithName("ping").WithValues("server", s.name))
	conn, readLoop := netmc.NewMinecraftConn(ctx, raw, proto.ClientBound, netmc.Options{})
	defer func() { _ = conn.Close() }()

	res := make(chan pingResult, 1)
	conn.SetSessionHandler(&pingSessionHandler{conn: conn, res: res})
	go readLoop()

	host, port := netutil.HostPort(s.addr)
	conn.SetProtocol(protocol)
	if err = conn.WritePacket(&packet.Handshake{
		ProtocolVersion: int(protocol),
		ServerAddress:   host,
		Port:            int(port),
		NextStatus:      packet.StatusIntent,
	}); err != nil {
		return nil, err
	}
	conn.SetState(state.Status)
	if err = conn.WritePacket(&packet.StatusRequest{}); err != nil {
		return nil, err
	}

	select {
	case r := <-res:
		return r.ping, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type pingResult struct {
	ping *ping.ServerPing
	err  error
}

type pingSessionHandler struct {
	conn netmc.MinecraftConn
	res  chan<- pingResult
	once sync.Once

	nopSessionHandler
}

func (h *pingSessionHandler) complete(r pingResult) {
	h.once.Do(func() { h.res <- r })
}

func (h *pingSessionHandler) HandlePacket(pc *proto.PacketContext) {
	res, ok := pc.Packet.(*packet.StatusResponse)
	if !ok {
		h.complete(pingResult{err: fmt.Errorf("unexpected packet %T", pc.Packet)})
		_ = h.conn.Close()
		return
	}
	p := new(ping.ServerPing)
	if err := json.Unmarshal([]byte(res.Status), p); err != nil {
		h.complete(pingResult{err: fmt.Errorf("error decoding status response: %w", err)})
	} else {
		h.complete(pingResult{ping: p})
	}
	_ = h.conn.Close()
}

func (h *pingSessionHandler) Disconnected() {
	h.complete(pingResult{err: errors.New("server closed the connection")})
}
