package proxy

import (
	"fmt"
	"net"
	"strings"

	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proxy/crypto"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// Inbound is an incoming connection to the proxy.
type Inbound interface {
	RemoteAddr() net.Addr
	// VirtualHost returns the hostname the client used to connect,
	// without extra handshake data and trailing dot.
	VirtualHost() string
	Protocol() proto.Protocol
	// Transfer reports whether the client was transferred from another server.
	Transfer() bool
	Active() bool
}

// loginPhase orders the steps a connection passes before it becomes a Session.
type loginPhase uint8

const (
	phaseHandshake loginPhase = iota
	phaseStatus
	phasePing
	phaseUsername
	phaseEncrypt
	phaseFinishing
)

func (p loginPhase) String() string {
	switch p {
	case phaseHandshake:
		return "handshake"
	case phaseStatus:
		return "status"
	case phasePing:
		return "ping"
	case phaseUsername:
		return "username"
	case phaseEncrypt:
		return "encrypt"
	case phaseFinishing:
		return "finishing"
	}
	return "unknown"
}

// pendingSession is a client connection that is not a Session yet.
type pendingSession struct {
	conn  netmc.MinecraftConn
	proxy *Proxy

	protocol    proto.Protocol
	intent      int
	virtualHost string
	port        int
	extraData   string // from the first NUL of the handshake host, verbatim
	legacyPing  bool
	transfer    bool
	phase       loginPhase

	username   string
	onlineMode bool
	playerKey  *crypto.IdentifiedKey
	holderID   uuid.UUID
	profile    *profile.GameProfile
}

var _ Inbound = (*pendingSession)(nil)

func newPendingSession(conn netmc.MinecraftConn, p *Proxy, h *packet.Handshake) *pendingSession {
	vhost, extra := splitHost(h.ServerAddress)
	return &pendingSession{
		conn:        conn,
		proxy:       p,
		protocol:    proto.Protocol(h.ProtocolVersion),
		intent:      h.NextStatus,
		virtualHost: vhost,
		port:        h.Port,
		extraData:   extra,
		transfer:    h.NextStatus == packet.TransferIntent,
		phase:       phaseHandshake,
	}
}

// splitHost splits the handshake host at the first NUL into the virtual host
// and the extra data Forge and other mod loaders append.
// One trailing dot of the virtual host is removed.
func splitHost(host string) (vhost, extra string) {
	vhost = host
	if i := strings.IndexByte(host, 0); i != -1 {
		vhost, extra = host[:i], host[i:]
	}
	vhost = strings.TrimSuffix(vhost, ".")
	return vhost, extra
}

func (s *pendingSession) RemoteAddr() net.Addr     { return s.conn.RemoteAddr() }
func (s *pendingSession) VirtualHost() string      { return s.virtualHost }
func (s *pendingSession) Protocol() proto.Protocol { return s.protocol }
func (s *pendingSession) Transfer() bool           { return s.transfer }
func (s *pendingSession) Active() bool             { return !netmc.Closed(s.conn) }

func (s *pendingSession) String() string {
	if s.username != "" {
		return fmt.Sprintf("[initial connection] %s (%s)", s.username, s.RemoteAddr())
	}
	return fmt.Sprintf("[initial connection] %s -> %s", s.RemoteAddr(), s.virtualHost)
}
