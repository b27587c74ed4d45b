package proxy

import (
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/key"

	"github.com/xenoncommunity/xenon/pkg/proxy/ping"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
)

// PlayerHandshakeEvent is fired when a client sent its handshake,
// before the requested intent is processed.
type PlayerHandshakeEvent struct {
	inbound Inbound
	intent  int
}

// Connection returns the connection that sent the handshake.
func (e *PlayerHandshakeEvent) Connection() Inbound { return e.inbound }

// Intent returns the requested intent (status, login or transfer).
func (e *PlayerHandshakeEvent) Intent() int { return e.intent }

//
//
//
//

// ProxyPingEvent is fired when a client requests the server list status.
// The proxy waits for the event before answering, so subscribers should be quick.
type ProxyPingEvent struct {
	inbound Inbound
	ping    *ping.ServerPing
}

// Connection returns the pinging connection.
func (e *ProxyPingEvent) Connection() Inbound { return e.inbound }

// Ping returns the response pre-initialized by the proxy.
func (e *ProxyPingEvent) Ping() *ping.ServerPing { return e.ping }

// SetPing replaces the response. nil is ignored.
func (e *ProxyPingEvent) SetPing(p *ping.ServerPing) {
	if p != nil {
		e.ping = p
	}
}

//
//
//
//

// PreLoginEvent is fired when a client sent its username, before
// the proxy decided whether to authenticate it.
type PreLoginEvent struct {
	inbound    Inbound
	username   string
	onlineMode bool

	cancelled bool
	reason    component.Component
}

// Conn returns the connection that wants to log in.
func (e *PreLoginEvent) Conn() Inbound { return e.inbound }

// Username returns the name the client sent.
func (e *PreLoginEvent) Username() string { return e.username }

// OnlineMode reports whether the client will be authenticated.
func (e *PreLoginEvent) OnlineMode() bool { return e.onlineMode }

// SetOnlineMode overrides the configured authentication mode for this connection.
func (e *PreLoginEvent) SetOnlineMode(online bool) { e.onlineMode = online }

// Cancelled reports whether the login is denied.
func (e *PreLoginEvent) Cancelled() bool { return e.cancelled }

// Reason returns the deny reason. May be nil!
func (e *PreLoginEvent) Reason() component.Component { return e.reason }

// Deny denies the login with an optional reason.
func (e *PreLoginEvent) Deny(reason component.Component) {
	e.cancelled = true
	e.reason = reason
}

// Allow allows the login.
func (e *PreLoginEvent) Allow() {
	e.cancelled = false
	e.reason = nil
}

//
//
//
//

// LoginEvent is fired once a client is authenticated,
// before the player is created.
type LoginEvent struct {
	inbound Inbound
	profile *profile.GameProfile

	cancelled bool
	reason    component.Component
}

// Conn returns the connection of the player.
func (e *LoginEvent) Conn() Inbound { return e.inbound }

// Profile returns the profile the player logs in with.
func (e *LoginEvent) Profile() *profile.GameProfile { return e.profile }

// Cancelled reports whether the login is denied.
func (e *LoginEvent) Cancelled() bool { return e.cancelled }

// Reason returns the deny reason. May be nil!
func (e *LoginEvent) Reason() component.Component { return e.reason }

// Deny denies the login with an optional reason.
func (e *LoginEvent) Deny(reason component.Component) {
	e.cancelled = true
	e.reason = reason
}

//
//
//
//

// PostLoginEvent is fired when a player joined the proxy,
// before it is connected to its initial server.
type PostLoginEvent struct {
	player *Session
	target *RegisteredServer
}

// Player returns the player that joined.
func (e *PostLoginEvent) Player() *Session { return e.player }

// Target returns the initial server. May be nil if none is available!
func (e *PostLoginEvent) Target() *RegisteredServer { return e.target }

// SetTarget changes the initial server.
func (e *PostLoginEvent) SetTarget(target *RegisteredServer) { e.target = target }

//
//
//
//

// ServerConnectEvent is fired before a player connects to a server.
type ServerConnectEvent struct {
	player *Session
	target *RegisteredServer
	reason ConnectReason

	cancelled bool
}

// Player returns the connecting player.
func (e *ServerConnectEvent) Player() *Session { return e.player }

// Target returns the server to connect to.
func (e *ServerConnectEvent) Target() *RegisteredServer { return e.target }

// SetTarget changes the server to connect to. nil is ignored.
func (e *ServerConnectEvent) SetTarget(target *RegisteredServer) {
	if target != nil {
		e.target = target
	}
}

// Reason returns why the player is connecting.
func (e *ServerConnectEvent) Reason() ConnectReason { return e.reason }

// Cancelled reports whether the connection is cancelled.
func (e *ServerConnectEvent) Cancelled() bool { return e.cancelled }

// SetCancelled cancels or uncancels the connection.
func (e *ServerConnectEvent) SetCancelled(cancelled bool) { e.cancelled = cancelled }

//
//
//
//

// ServerConnectedEvent is fired when a player logged in to a server,
// right before the previous server connection is closed.
type ServerConnectedEvent struct {
	player   *Session
	server   *RegisteredServer
	previous *RegisteredServer
}

// Player returns the connected player.
func (e *ServerConnectedEvent) Player() *Session { return e.player }

// Server returns the new server.
func (e *ServerConnectedEvent) Server() *RegisteredServer { return e.server }

// Previous returns the server the player was on before. May be nil!
func (e *ServerConnectedEvent) Previous() *RegisteredServer { return e.previous }

//
//
//
//

// ChatEvent is fired when a player sends a chat message or command.
type ChatEvent struct {
	player  *Session
	message string
	command bool

	cancelled bool
}

// Player returns the sender.
func (e *ChatEvent) Player() *Session { return e.player }

// Message returns the message. Commands start with a slash.
func (e *ChatEvent) Message() string { return e.message }

// SetMessage replaces the message forwarded to the server.
func (e *ChatEvent) SetMessage(msg string) { e.message = msg }

// IsCommand reports whether the message is a command.
func (e *ChatEvent) IsCommand() bool { return e.command }

// Cancelled reports whether the message is dropped.
func (e *ChatEvent) Cancelled() bool { return e.cancelled }

// SetCancelled drops or keeps the message.
func (e *ChatEvent) SetCancelled(cancelled bool) { e.cancelled = cancelled }

//
//
//
//

// TabCompleteEvent is fired when a player requests tab completions.
type TabCompleteEvent struct {
	player      *Session
	cursor      string
	suggestions []string

	cancelled bool
}

// Player returns the requesting player.
func (e *TabCompleteEvent) Player() *Session { return e.player }

// Cursor returns the partial input to complete.
func (e *TabCompleteEvent) Cursor() string { return e.cursor }

// Suggestions returns the suggestions answered by the proxy.
// Empty suggestions forward the request to the server.
func (e *TabCompleteEvent) Suggestions() []string { return e.suggestions }

// SetSuggestions replaces the suggestions.
func (e *TabCompleteEvent) SetSuggestions(s []string) { e.suggestions = s }

// AddSuggestions appends suggestions.
func (e *TabCompleteEvent) AddSuggestions(s ...string) { e.suggestions = append(e.suggestions, s...) }

// Cancelled reports whether the request is dropped.
func (e *TabCompleteEvent) Cancelled() bool { return e.cancelled }

// SetCancelled drops or keeps the request.
func (e *TabCompleteEvent) SetCancelled(cancelled bool) { e.cancelled = cancelled }

//
//
//
//

// ServerBrandEvent is fired when a backend announces its brand. The brand
// passed to the client can be changed.
type ServerBrandEvent struct {
	player       *Session
	server       *RegisteredServer
	backendBrand string
	brand        string
}

// Player returns the player receiving the brand.
func (e *ServerBrandEvent) Player() *Session { return e.player }

// Server returns the backend server.
func (e *ServerBrandEvent) Server() *RegisteredServer { return e.server }

// BackendBrand returns the brand the backend sent.
func (e *ServerBrandEvent) BackendBrand() string { return e.backendBrand }

// Brand returns the brand sent to the client.
func (e *ServerBrandEvent) Brand() string { return e.brand }

// SetBrand sets the brand sent to the client.
func (e *ServerBrandEvent) SetBrand(brand string) { e.brand = brand }

//
//
//

// MessageSource is the sender of a plugin message.
type MessageSource uint8

const (
	FromPlayer MessageSource = iota
	FromServer
)

// PluginMessageEvent is fired when a plugin message passes the proxy.
type PluginMessageEvent struct {
	source  MessageSource
	player  *Session
	server  *RegisteredServer
	channel string
	data    []byte

	cancelled bool
}

// Source returns whether the player or the server sent the message.
func (e *PluginMessageEvent) Source() MessageSource { return e.source }

// Player returns the player the message is sent by or to.
func (e *PluginMessageEvent) Player() *Session { return e.player }

// Server returns the server the message is sent by or to. May be nil!
func (e *PluginMessageEvent) Server() *RegisteredServer { return e.server }

// Channel returns the channel of the message.
func (e *PluginMessageEvent) Channel() string { return e.channel }

// Data returns the payload of the message.
func (e *PluginMessageEvent) Data() []byte { return e.data }

// Cancelled reports whether the message is dropped.
func (e *PluginMessageEvent) Cancelled() bool { return e.cancelled }

// SetCancelled drops or keeps the message.
func (e *PluginMessageEvent) SetCancelled(cancelled bool) { e.cancelled = cancelled }

//
//
//
//

// PlayerSettingsChangedEvent is fired when a player sent its client settings.
type PlayerSettingsChangedEvent struct {
	player   *Session
	settings Settings
}

// Player returns the player.
func (e *PlayerSettingsChangedEvent) Player() *Session { return e.player }

// Settings returns the new settings.
func (e *PlayerSettingsChangedEvent) Settings() Settings { return e.settings }

//
//
//
//

// PlayerDisconnectEvent is fired when a player left the proxy.
type PlayerDisconnectEvent struct {
	player *Session
	server *RegisteredServer
}

// Player returns the player that left.
func (e *PlayerDisconnectEvent) Player() *Session { return e.player }

// Server returns the server the player was last connected to. May be nil!
func (e *PlayerDisconnectEvent) Server() *RegisteredServer { return e.server }

//
//
//
//

// KickState is the phase a player was kicked from a server in.
type KickState uint8

const (
	KickConnecting KickState = iota // kicked during the server login
	KickConnected                   // kicked while playing on the server
)

// ServerKickEvent is fired when a server kicks a player or the
// connection to it is lost.
//
// If Fallback is set the player is moved there,
// otherwise the player is disconnected with Reason.
type ServerKickEvent struct {
	player   *Session
	server   *RegisteredServer
	reason   component.Component
	fallback *RegisteredServer
	state    KickState
}

// Player returns the kicked player.
func (e *ServerKickEvent) Player() *Session { return e.player }

// Server returns the server that kicked the player.
func (e *ServerKickEvent) Server() *RegisteredServer { return e.server }

// Reason returns the kick reason.
func (e *ServerKickEvent) Reason() component.Component { return e.reason }

// SetReason replaces the kick reason.
func (e *ServerKickEvent) SetReason(reason component.Component) { e.reason = reason }

// Fallback returns the server the player is moved to. May be nil!
func (e *ServerKickEvent) Fallback() *RegisteredServer { return e.fallback }

// SetFallback sets the server to move the player to, nil disconnects the player.
func (e *ServerKickEvent) SetFallback(s *RegisteredServer) { e.fallback = s }

// State returns whether the player was connecting or playing.
func (e *ServerKickEvent) State() KickState { return e.state }

//
//
//
//

// CookieReceiveEvent is fired when a client answered a cookie request of the proxy.
type CookieReceiveEvent struct {
	player  *Session
	key     key.Key
	payload []byte
}

// Player returns the player the cookie was received from.
func (e *CookieReceiveEvent) Player() *Session { return e.player }

// Key returns the key of the cookie.
func (e *CookieReceiveEvent) Key() key.Key { return e.key }

// Payload returns the cookie payload. nil if the client has no such cookie.
func (e *CookieReceiveEvent) Payload() []byte { return e.payload }

// SetPayload replaces the payload the requester receives.
func (e *CookieReceiveEvent) SetPayload(payload []byte) { e.payload = payload }

//
//
//
//

// ReadyEvent is fired once the proxy listens for connections.
type ReadyEvent struct {
	addr string
}

// Addr returns the address the proxy listens on.
func (e *ReadyEvent) Addr() string { return e.addr }

// PreShutdownEvent is fired before the proxy disconnects all players
// on shutdown.
type PreShutdownEvent struct {
	reason component.Component
}

// Reason returns the reason players are disconnected with.
func (e *PreShutdownEvent) Reason() component.Component { return e.reason }

// SetReason changes the reason players are disconnected with.
func (e *PreShutdownEvent) SetReason(reason component.Component) {
	if reason != nil {
		e.reason = reason
	}
}

// ShutdownEvent is fired after all players were disconnected on shutdown.
// Subscribers should release their resources.
type ShutdownEvent struct{}
