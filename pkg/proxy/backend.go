package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/key"
	"go.uber.org/atomic"

	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proxy/forge"
	"github.com/xenoncommunity/xenon/pkg/util/netutil"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// backendLink is the connection of a player to one backend server.
// All fields are accessed on the executor of the player.
type backendLink struct {
	session *Session
	server  *RegisteredServer
	req     *ConnectRequest
	log     logr.Logger

	conn     netmc.MinecraftConn // nil while dialing
	timer    *time.Timer
	previous *RegisteredServer // server the player left for this link

	obsolete    atomic.Bool // replaced or kicked, packets are dropped
	done        bool        // the connect request completed
	loggedIn    bool        // the backend sent its login success
	configuring bool        // the backend is in the config state
	joined      bool        // the backend sent its JoinGame
	forge       bool        // the backend started a FML handshake

	keepAlives deque.Deque[pendingKeepAlive]
	cookieKeys []key.Key // cookie requests relayed during login
	brand      string
}

type pendingKeepAlive struct {
	id     int64
	sentAt time.Time
}

func newBackendLink(s *Session, server *RegisteredServer, req *ConnectRequest) *backendLink {
	return &backendLink{
		session:  s,
		server:   server,
		req:      req,
		log:      s.log.WithValues("server", server.Name()),
		previous: s.CurrentServer(),
	}
}

// dial connects to the backend off the executor and starts the login.
func (l *backendLink) dial(timeout time.Duration) {
	s := l.session
	l.timer = time.AfterFunc(timeout, func() {
		_ = s.exec().Post(func() {
			if !l.done {
				l.fail(errConnectTimeout, nil)
			}
		})
	})
	go func() {
		ctx, cancel := context.WithTimeout(s.Context(), timeout)
		defer cancel()
		var d net.Dialer
		raw, err := d.DialContext(ctx, "tcp", l.server.Addr().String())
		postErr := s.exec().Post(func() {
			if err != nil {
				l.fail(fmt.Errorf("error dialing %s: %w", l.server.Addr(), err), nil)
				return
			}
			if l.done {
				_ = raw.Close()
				return
			}
			l.start(raw)
		})
		if postErr != nil && err == nil {
			_ = raw.Close()
		}
	}()
}

// start wraps raw and sends handshake and login.
func (l *backendLink) start(raw net.Conn) {
	s := l.session
	cfg := s.proxy.config()
	ctx := logr.NewContext(s.Context(), l.log)
	conn, readLoop := netmc.NewMinecraftConn(ctx, raw, proto.ClientBound, netmc.Options{
		ReadTimeout:      time.Duration(cfg.ReadTimeout),
		CompressionLevel: cfg.CompressionLevel,
		Executor:         s.exec(),
	})
	l.conn = conn
	s.pendingConnects[pendingKey(l.server)] = l
	conn.SetSessionHandler(&backendLoginSessionHandler{link: l})
	go readLoop()

	host, err := l.forwardingHost()
	if err != nil {
		l.fail(err, nil)
		return
	}
	_, port := netutil.HostPort(l.server.Addr())
	conn.SetProtocol(s.Protocol())
	if err = conn.WritePacket(&packet.Handshake{
		ProtocolVersion: int(s.Protocol()),
		ServerAddress:   host,
		Port:            int(port),
		NextStatus:      packet.LoginIntent,
	}); err != nil {
		l.fail(err, nil)
		return
	}
	conn.SetState(state.Login)
	if err = conn.WritePacket(&packet.ServerLogin{
		Username: s.Username(),
		HolderID: s.RewriteID(),
	}); err != nil {
		l.fail(err, nil)
	}
}

// forwardingHost is the host sent in the backend handshake.
func (l *backendLink) forwardingHost() (string, error) {
	s := l.session
	host := s.virtualHost
	if host == "" {
		host, _ = netutil.HostPort(l.server.Addr())
	}
	if !s.proxy.config().IPForward {
		return host + s.extraData, nil
	}
	props := s.profile.Properties
	if s.forge.TokenInHandshake() {
		props = append(append([]profile.Property(nil), props...), forge.ForwardingProperties(s.extraData)...)
	}
	return bungeeForwardingHost(host, netutil.SanitizeIP(s.RemoteAddr()), s.RewriteID(), props)
}

// bungeeForwardingHost encodes the legacy BungeeCord forwarding data
// "host\x00ip\x00uuid[\x00properties]" sent as handshake host.
func bungeeForwardingHost(host, ip string, id uuid.UUID, props []profile.Property) (string, error) {
	var b strings.Builder
	b.WriteString(host)
	b.WriteByte(0)
	b.WriteString(ip)
	b.WriteByte(0)
	b.WriteString(id.Undashed())
	if len(props) != 0 {
		data, err := json.Marshal(props)
		if err != nil {
			return "", fmt.Errorf("error encoding profile properties: %w", err)
		}
		b.WriteByte(0)
		b.Write(data)
	}
	return b.String(), nil
}

// finish marks the connect request done and reports whether it was still open.
func (l *backendLink) finish() bool {
	if l.done {
		return false
	}
	l.done = true
	if l.timer != nil {
		l.timer.Stop()
	}
	s := l.session
	if cur := s.pendingConnects[pendingKey(l.server)]; cur == l || cur == nil {
		delete(s.pendingConnects, pendingKey(l.server))
	}
	return true
}

// fail closes the link and continues the connect with the fallback chain.
func (l *backendLink) fail(err error, reason component.Component) {
	if l.done {
		return
	}
	l.obsolete.Store(true)
	l.disconnect()
	l.session.connectFailed(l, err, reason)
}

// kicked handles a disconnect sent by the backend during login.
func (l *backendLink) kicked(reason component.Component) {
	if l.done {
		return
	}
	s := l.session
	e := &ServerKickEvent{player: s, server: l.server, reason: reason, state: KickConnecting}
	s.proxy.event.Fire(e)
	if next := e.Fallback(); next != nil && !next.sameAs(l.server) {
		req := l.req
		l.obsolete.Store(true)
		l.disconnect()
		l.finish()
		s.proxy.metrics.BackendConnect(l.server.Name(), Fail.String())
		s.Connect(&ConnectRequest{
			Target:   next,
			Retry:    req.Retry,
			Reason:   KickRedirect,
			Timeout:  req.Timeout,
			Callback: req.Callback,
		})
		return
	}
	l.fail(errors.New("kicked by backend server"), e.Reason())
}

// reasonOf returns the component of a disconnect reason, an empty text if
// it can not be decoded.
func reasonOf(h *packet.ComponentHolder) component.Component {
	if h != nil {
		if c, err := h.AsComponent(); err == nil {
			return c
		}
	}
	return &component.Text{}
}

// disconnect closes the backend connection.
func (l *backendLink) disconnect() {
	if l.conn != nil {
		_ = l.conn.Close()
	}
}

// active reports whether the link may still relay packets.
func (l *backendLink) active() bool {
	return !l.obsolete.Load() && l.conn != nil && !netmc.Closed(l.conn) && l.session.Active()
}

// recordKeepAlive remembers a keep-alive the backend sent to the client.
func (l *backendLink) recordKeepAlive(id int64, at time.Time) {
	l.keepAlives.PushBack(pendingKeepAlive{id: id, sentAt: at})
}

// relayKeepAlive answers a keep-alive of the backend itself and passes
// the keep-alive on to the client to measure the ping of the player.
func (l *backendLink) relayKeepAlive(p *packet.KeepAlive, payload []byte) {
	l.recordKeepAlive(p.RandomID, time.Now())
	_ = l.conn.WritePacket(&packet.KeepAlive{RandomID: p.RandomID})
	_ = l.session.conn.Write(payload)
}

// observeForge marks the backend as Forge server once it greets the client
// with a FML ServerHello.
func (l *backendLink) observeForge(p *plugin.Message) {
	if d, ok := forge.Discriminator(p); ok && d == forge.ServerHelloDiscriminator {
		l.forge = true
		l.session.forgeLink = l
	}
}

// answerKeepAlive matches a client keep-alive answer against the oldest
// pending keep-alive and returns the round trip. A mismatch leaves the queue
// unchanged.
func (l *backendLink) answerKeepAlive(id int64, at time.Time) (time.Duration, bool) {
	if l.keepAlives.Len() == 0 || l.keepAlives.Front().id != id {
		return 0, false
	}
	sent := l.keepAlives.PopFront()
	return at.Sub(sent.sentAt), true
}

// write relays a packet to the backend.
func (l *backendLink) write(pkt proto.Packet) error {
	if !l.active() {
		return netmc.ErrClosedConn
	}
	return l.conn.WritePacket(pkt)
}
