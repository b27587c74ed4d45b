package proxy

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/xenoncommunity/xenon/pkg/internal/serial"
	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proxy/forge"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/sets"
)

// testConn is an in-memory MinecraftConn recording everything written to it.
type testConn struct {
	ctx    context.Context
	cancel context.CancelFunc
	exec   *serial.Executor

	mu          sync.Mutex
	protocol    proto.Protocol
	decode      *state.Registry
	encode      *state.Registry
	handler     netmc.SessionHandler
	packets     []proto.Packet
	payloads    [][]byte
	compression int
}

var _ netmc.MinecraftConn = (*testConn)(nil)

func newTestConn(t *testing.T, protocol proto.Protocol, st *state.Registry) *testConn {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c := &testConn{
		ctx:         ctx,
		cancel:      cancel,
		exec:        serial.New(logr.Discard()),
		protocol:    protocol,
		decode:      st,
		encode:      st,
		compression: -1,
	}
	t.Cleanup(func() {
		cancel()
		c.exec.Close()
	})
	return c
}

func (c *testConn) Context() context.Context             { return c.ctx }
func (c *testConn) Close() error                         { c.cancel(); return nil }
func (c *testConn) Executor() *serial.Executor           { return c.exec }
func (c *testConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 50000} }
func (c *testConn) LocalAddr() net.Addr                  { return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 25577} }
func (c *testConn) EnableEncryption(secret []byte) error { return nil }
func (c *testConn) Flush() error                         { return nil }

func (c *testConn) Protocol() proto.Protocol {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protocol
}

func (c *testConn) SetProtocol(p proto.Protocol) {
	c.mu.Lock()
	c.protocol = p
	c.mu.Unlock()
}

func (c *testConn) State() *state.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decode
}

func (c *testConn) EncodeState() *state.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encode
}

func (c *testConn) SetState(s *state.Registry) {
	c.mu.Lock()
	c.decode, c.encode = s, s
	c.mu.Unlock()
}

func (c *testConn) SetDecodeState(s *state.Registry) {
	c.mu.Lock()
	c.decode = s
	c.mu.Unlock()
}

func (c *testConn) SetEncodeState(s *state.Registry) {
	c.mu.Lock()
	c.encode = s
	c.mu.Unlock()
}

func (c *testConn) SetCompressionThreshold(threshold int) error {
	c.mu.Lock()
	c.compression = threshold
	c.mu.Unlock()
	return nil
}

func (c *testConn) SessionHandler() netmc.SessionHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

func (c *testConn) SetSessionHandler(h netmc.SessionHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *testConn) WritePacket(p proto.Packet) error {
	if netmc.Closed(c) {
		return netmc.ErrClosedConn
	}
	c.mu.Lock()
	c.packets = append(c.packets, p)
	c.mu.Unlock()
	return nil
}

func (c *testConn) BufferPacket(p proto.Packet) error { return c.WritePacket(p) }

func (c *testConn) Write(payload []byte) error {
	if netmc.Closed(c) {
		return netmc.ErrClosedConn
	}
	c.mu.Lock()
	c.payloads = append(c.payloads, payload)
	c.mu.Unlock()
	return nil
}

func (c *testConn) BufferPayload(payload []byte) error { return c.Write(payload) }

func (c *testConn) written() []proto.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]proto.Packet(nil), c.packets...)
}

func (c *testConn) raw() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.payloads...)
}

// newConnectedSession returns a session playing through an in-memory client connection.
func newConnectedSession(t *testing.T, p *Proxy, protocol proto.Protocol) (*Session, *testConn) {
	t.Helper()
	conn := newTestConn(t, protocol, state.Play)
	s := newTestSession(p)
	s.conn = conn
	s.profile = &profile.GameProfile{Name: "steve"}
	s.forge = forge.NewClientHandler("")
	s.channels = sets.New[string]()
	s.compression.Store(-1)
	s.ping.Store(-1)
	return s, conn
}

// newLinkedBackend attaches an in-memory backend connection on server to s.
func newLinkedBackend(t *testing.T, s *Session, server string) (*backendLink, *testConn) {
	t.Helper()
	conn := newTestConn(t, s.Protocol(), state.Play)
	srv := s.proxy.Server(server)
	l := newBackendLink(s, srv, &ConnectRequest{Target: srv})
	l.conn = conn
	l.joined = true
	s.backend = l
	s.current.Store(srv)
	return l, conn
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}
