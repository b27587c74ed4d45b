package proxy

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/xenoncommunity/xenon/pkg/internal/serial"
	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/chat"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/util/queue"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/crypto"
	"github.com/xenoncommunity/xenon/pkg/proxy/entitymap"
	"github.com/xenoncommunity/xenon/pkg/proxy/forge"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
	"github.com/xenoncommunity/xenon/pkg/util/permission"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/sets"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// Messenger can receive chat messages.
type Messenger interface {
	// SendMessage sends a system chat message.
	SendMessage(msg component.Component) error
}

// BackendLinker is connected to a backend server.
type BackendLinker interface {
	// CurrentServer returns the server the player is connected to. May be nil!
	CurrentServer() *RegisteredServer
	// Connect connects to the target of req. The result is passed to req.Callback.
	Connect(req *ConnectRequest)
}

// SettingsHolder holds the client settings of a player.
type SettingsHolder interface {
	Settings() Settings
	// Locale returns the locale of the client, empty if unknown.
	Locale() string
}

// Session is a player connected to the proxy.
type Session struct {
	proxy *Proxy
	conn  netmc.MinecraftConn
	log   logr.Logger

	sessionID   xid.ID
	profile     *profile.GameProfile
	offlineID   uuid.UUID
	rewriteID   uuid.UUID
	virtualHost string
	extraData   string
	onlineMode  bool
	playerKey   *crypto.IdentifiedKey
	joinedAt    time.Time

	ping        atomic.Duration
	compression atomic.Int32 // -1 until set
	closing     atomic.Bool
	current     atomic.Pointer[RegisteredServer]

	permMu   sync.RWMutex
	permFunc permission.Func
	groups   []string

	settingsMu   sync.RWMutex
	settings     *Settings
	lastSettings *packet.ClientSettings

	brandMu sync.RWMutex
	brand   string

	cookies cookieQueue

	// Following fields are only accessed on the executor.

	queue           *queue.PlayPacketQueue // clientbound play packets waiting for the client to leave config
	forge           *forge.ClientHandler
	forgeLink       *backendLink // backend the FML handshake of the client runs with
	channels        sets.Set[string]
	backend         *backendLink            // link of the current server
	transition      *backendLink            // 1.20.2+ link configuring the client
	pendingConnects map[string]*backendLink // nil while the connect event runs
	fallback        []string
	fallbackInit    bool
	spawned         bool // the client received its first JoinGame
	clientEntityID  int
	serverEntityID  int
	rewrite         *entitymap.Table
	tabLimiter      *rate.Limiter
}

var (
	_ Messenger          = (*Session)(nil)
	_ BackendLinker      = (*Session)(nil)
	_ SettingsHolder     = (*Session)(nil)
	_ permission.Subject = (*Session)(nil)
)

func newSession(ps *pendingSession, offlineID, rewriteID uuid.UUID) *Session {
	p := ps.proxy
	cfg := p.config()
	s := &Session{
		proxy:           p,
		conn:            ps.conn,
		sessionID:       xid.New(),
		profile:         ps.profile,
		offlineID:       offlineID,
		rewriteID:       rewriteID,
		virtualHost:     ps.virtualHost,
		extraData:       ps.extraData,
		onlineMode:      ps.onlineMode,
		playerKey:       ps.playerKey,
		joinedAt:        time.Now(),
		queue:           queue.NewPlayPacketQueue(ps.protocol, proto.ClientBound),
		forge:           forge.NewClientHandler(ps.extraData),
		channels:        sets.New[string](),
		pendingConnects: map[string]*backendLink{},
		rewrite:         entitymap.ForProtocol(ps.protocol),
	}
	s.log = logr.FromContextOrDiscard(ps.conn.Context()).WithName("player").WithValues(
		"name", ps.profile.Name, "id", ps.profile.ID, "sessionID", s.sessionID.String())
	s.compression.Store(-1)
	s.ping.Store(-1)
	if d := time.Duration(cfg.TabThrottle); d > 0 && ps.protocol.GreaterEqual(version.Minecraft_1_13) {
		s.tabLimiter = rate.NewLimiter(rate.Every(d), 1)
	}
	s.groups, s.permFunc = permissionsOf(cfg.Permissions, cfg.Groups, cfg.PlayerGroups, ps.profile.Name)
	return s
}

// permissionsOf resolves the groups and permissions configured for a player.
// Every player is in the "default" group.
func permissionsOf(perms, groups, playerGroups map[string][]string, name string) ([]string, permission.Func) {
	// Keys are matched case-insensitively, config loading lowercases them.
	lookup := func(m map[string][]string, key string) []string {
		for k, v := range m {
			if strings.EqualFold(k, key) {
				return v
			}
		}
		return nil
	}
	memberOf := append([]string{"default"}, lookup(playerGroups, name)...)
	list := append([]string(nil), lookup(perms, name)...)
	for _, g := range memberOf {
		list = append(list, lookup(groups, g)...)
	}
	return memberOf, permission.FromList(list...)
}

// activate makes the session the handler of its client connection.
func (s *Session) activate() {
	s.conn.SetSessionHandler(newClientPlaySessionHandler(s))
}

// setCompression stores the compression threshold once.
func (s *Session) setCompression(threshold int) bool {
	return s.compression.CompareAndSwap(-1, int32(threshold))
}

func (s *Session) exec() *serial.Executor { return s.conn.Executor() }

// Post runs fn on the executor of the player, serialized with its packets.
func (s *Session) Post(fn func()) error { return s.exec().Post(fn) }

// ID returns the authenticated id of the player.
func (s *Session) ID() uuid.UUID { return s.profile.ID }

// OfflineID returns the id derived from the username.
func (s *Session) OfflineID() uuid.UUID { return s.offlineID }

// RewriteID returns the id backends know the player by.
func (s *Session) RewriteID() uuid.UUID { return s.rewriteID }

// SessionID uniquely identifies this connection of the player.
func (s *Session) SessionID() xid.ID { return s.sessionID }

// Username returns the name of the player.
func (s *Session) Username() string { return s.profile.Name }

// GameProfile returns the profile of the player.
func (s *Session) GameProfile() profile.GameProfile { return *s.profile }

func (s *Session) RemoteAddr() net.Addr     { return s.conn.RemoteAddr() }
func (s *Session) VirtualHost() string      { return s.virtualHost }
func (s *Session) Protocol() proto.Protocol { return s.conn.Protocol() }
func (s *Session) OnlineMode() bool         { return s.onlineMode }
func (s *Session) JoinedAt() time.Time      { return s.joinedAt }
func (s *Session) Context() context.Context { return s.conn.Context() }

// IdentifiedKey returns the profile key of a 1.19 to 1.19.2 client. May be nil!
func (s *Session) IdentifiedKey() *crypto.IdentifiedKey { return s.playerKey }

// Ping returns the last measured round trip time, -1 if unknown.
func (s *Session) Ping() time.Duration { return s.ping.Load() }

// Closed reports whether the player is disconnected or disconnecting.
func (s *Session) Closed() bool { return s.closing.Load() || netmc.Closed(s.conn) }

// Active reports whether the player is still connected.
func (s *Session) Active() bool { return !s.Closed() }

// ClientBrand returns the brand the client announced.
func (s *Session) ClientBrand() string {
	s.brandMu.RLock()
	defer s.brandMu.RUnlock()
	return s.brand
}

func (s *Session) setClientBrand(brand string) {
	s.brandMu.Lock()
	s.brand = brand
	s.brandMu.Unlock()
}

// Groups returns the permission groups of the player.
func (s *Session) Groups() []string {
	s.permMu.RLock()
	defer s.permMu.RUnlock()
	return append([]string(nil), s.groups...)
}

func (s *Session) HasPermission(perm string) bool {
	return s.PermissionValue(perm).Bool()
}

func (s *Session) PermissionValue(perm string) permission.TriState {
	s.permMu.RLock()
	defer s.permMu.RUnlock()
	if s.permFunc == nil {
		return permission.Undefined
	}
	return s.permFunc(perm)
}

// SetPermissionFunc replaces the permission function of the player.
func (s *Session) SetPermissionFunc(fn permission.Func) {
	s.permMu.Lock()
	s.permFunc = fn
	s.permMu.Unlock()
}

// CurrentServer returns the server the player is connected to. May be nil!
func (s *Session) CurrentServer() *RegisteredServer { return s.current.Load() }

// SendMessage sends a system message to the player.
func (s *Session) SendMessage(msg component.Component) error {
	return s.sendChat(msg, chat.SystemMessageType)
}

// SendActionBar sends a message above the hotbar of the player.
func (s *Session) SendActionBar(msg component.Component) error {
	return s.sendChat(msg, chat.GameInfoMessageType)
}

func (s *Session) sendChat(msg component.Component, t chat.MessageType) error {
	if msg == nil {
		return nil
	}
	pkt, err := (&chat.Builder{Protocol: s.Protocol(), Component: msg, Type: t}).ToClient()
	if err != nil {
		return err
	}
	return s.writePacket(pkt)
}

// writePacket writes pkt to the client or queues it while the client is not
// able to receive it.
func (s *Session) writePacket(pkt proto.Packet) error {
	if s.Closed() {
		return netmc.ErrClosedConn
	}
	if s.conn.EncodeState() != state.Play && s.Protocol().GreaterEqual(version.Minecraft_1_20_2) {
		if s.queue.Queue(pkt) {
			return nil
		}
	}
	return s.conn.WritePacket(pkt)
}

// Disconnect kicks the player with reason.
func (s *Session) Disconnect(reason component.Component) {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	if netmc.Closed(s.conn) {
		return
	}
	s.log.Info("disconnecting player", "reason", componentutil.Plain(reason))
	var pkt proto.Packet
	if s.conn.EncodeState() == state.Login {
		pkt = packet.NewLoginDisconnect(reason)
	} else {
		pkt = packet.NewDisconnect(reason)
	}
	_ = netmc.CloseWith(s.conn, pkt)
}

// teardown runs on the executor once the client connection closed.
func (s *Session) teardown() {
	s.closing.Store(true)
	last := s.CurrentServer()
	if link := s.backend; link != nil {
		link.obsolete.Store(true)
		link.disconnect()
		s.backend = nil
	}
	for _, link := range s.pendingConnects {
		if link != nil {
			link.obsolete.Store(true)
			link.disconnect()
		}
	}
	if last != nil {
		last.removePlayer(s)
	}
	s.cookies.cancelAll()

	p := s.proxy
	if p.unregisterPlayer(s) {
		s.log.Info("player disconnected", "server", serverName(last))
	}
	if last != nil {
		// Remember the server for the next login, the store may be remote.
		go p.storeLastServer(s.ID(), last)
	}
	p.event.Fire(&PlayerDisconnectEvent{player: s, server: last})
}

func serverName(s *RegisteredServer) string {
	if s == nil {
		return ""
	}
	return s.Name()
}

// PlayerLog is used to log unexpected disconnects.
func (s *Session) PlayerLog() logr.Logger { return s.log }

func (s *Session) String() string {
	return fmt.Sprintf("%s (%s)", s.Username(), s.RemoteAddr())
}
