package proxy

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proxy/message"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

// ConnectResult is the outcome of a connect request.
type ConnectResult uint8

const (
	Success           ConnectResult = iota // the player joined the target
	Fail                                   // the target could not be joined
	EventCancel                            // a ServerConnectEvent subscriber cancelled the request
	AlreadyConnected                       // the player already plays on the target
	AlreadyConnecting                      // a connect to the target is in flight
)

func (r ConnectResult) String() string {
	switch r {
	case Success:
		return "success"
	case Fail:
		return "fail"
	case EventCancel:
		return "event_cancel"
	case AlreadyConnected:
		return "already_connected"
	case AlreadyConnecting:
		return "already_connecting"
	}
	return fmt.Sprintf("ConnectResult(%d)", uint8(r))
}

// ConnectReason is why a connect was requested.
type ConnectReason uint8

const (
	JoinProxy          ConnectReason = iota // initial connect after login
	LobbyFallback                           // the previous target failed
	ServerDownRedirect                      // the current server kicked the player or went down
	KickRedirect                            // a ServerKickEvent subscriber chose another server
	CommandConnect                          // a proxy command moved the player
	PluginConnect                           // a plugin moved the player
)

func (r ConnectReason) String() string {
	switch r {
	case JoinProxy:
		return "join_proxy"
	case LobbyFallback:
		return "lobby_fallback"
	case ServerDownRedirect:
		return "server_down_redirect"
	case KickRedirect:
		return "kick_redirect"
	case CommandConnect:
		return "command"
	case PluginConnect:
		return "plugin"
	}
	return fmt.Sprintf("ConnectReason(%d)", uint8(r))
}

// ConnectRequest describes a connect of a player to a backend server.
type ConnectRequest struct {
	Target *RegisteredServer
	// Retry tries the fallback servers if Target can not be joined.
	Retry  bool
	Reason ConnectReason
	// Timeout of dial and backend login, the connection timeout if zero.
	Timeout time.Duration
	// SendFeedback reports AlreadyConnected and AlreadyConnecting to the player.
	SendFeedback bool
	// Callback is called once with the final result. May be nil.
	Callback func(ConnectResult, error)
}

func (r *ConnectRequest) done(res ConnectResult, err error) {
	if r.Callback != nil {
		r.Callback(res, err)
	}
}

var (
	errConnectTimeout  = errors.New("backend connect timed out")
	errSwitchInFlight  = errors.New("another server switch is in progress")
	errEventCancelled  = errors.New("connect cancelled without a current server")
	errBackendOnline   = errors.New("backend server is in online mode")
	errBackendUnlinked = errors.New("backend connection closed during login")
)

// Connect connects the player to the target of req.
// The result is passed to req.Callback.
func (s *Session) Connect(req *ConnectRequest) {
	if req == nil || req.Target == nil {
		panic("proxy: connect request without target")
	}
	// Subscribers may block, fire off the executor.
	go func() {
		e := &ServerConnectEvent{player: s, target: req.Target, reason: req.Reason}
		s.proxy.event.Fire(e)
		if err := s.exec().Post(func() { s.connect(req, e) }); err != nil {
			req.done(Fail, err)
		}
	}()
}

func (s *Session) connect(req *ConnectRequest, e *ServerConnectEvent) {
	if s.Closed() {
		req.done(Fail, errors.New("player disconnected"))
		return
	}
	if e.Cancelled() {
		if s.backend == nil && s.transition == nil {
			s.log.Error(errEventCancelled, "disconnecting player", "target", e.Target().Name())
			s.Disconnect(s.proxy.messages.Component(s.Locale(), message.FallbackKick,
				s.proxy.messages.Sprintf(s.Locale(), message.NoServer)))
		}
		req.done(EventCancel, nil)
		return
	}
	target := e.Target()
	if res, ok := s.admit(target); !ok {
		if req.SendFeedback {
			key := message.AlreadyConnected
			if res == AlreadyConnecting {
				key = message.AlreadyConnecting
			}
			_ = s.SendMessage(s.proxy.messages.Component(s.Locale(), key))
		}
		req.done(res, nil)
		return
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = time.Duration(s.proxy.config().ConnectionTimeout)
	}
	s.sendLoadingMessage(target)
	s.log.V(1).Info("connecting to server", "server", target.Name(), "reason", req.Reason)
	link := newBackendLink(s, target, req)
	s.pendingConnects[pendingKey(target)] = link
	link.dial(timeout)
}

// admit reports whether a connect to target may start and registers it as
// pending. The result explains a rejection.
func (s *Session) admit(target *RegisteredServer) (ConnectResult, bool) {
	if cur := s.CurrentServer(); s.backend != nil && target.sameAs(cur) {
		return AlreadyConnected, false
	}
	key := pendingKey(target)
	if _, ok := s.pendingConnects[key]; ok {
		return AlreadyConnecting, false
	}
	s.pendingConnects[key] = nil
	return Success, true
}

func pendingKey(s *RegisteredServer) string {
	return strings.ToLower(s.Name())
}

// sendLoadingMessage shows the configured loading message while connecting.
func (s *Session) sendLoadingMessage(target *RegisteredServer) {
	tmpl := s.proxy.config().Xenon.LoadingMessage
	if tmpl == "" || !s.spawned {
		return
	}
	text := tmpl
	if strings.Contains(tmpl, "%s") {
		text = fmt.Sprintf(tmpl, target.Name())
	}
	_ = s.SendActionBar(componentutil.MustLegacy(text))
}

// nextFallback returns the next fallback server after failed, nil if none
// is left. The list is initialised from the configured try order on first
// use and consumed by every call.
func (s *Session) nextFallback(failed *RegisteredServer) *RegisteredServer {
	if !s.fallbackInit {
		s.fallback = append([]string(nil), s.proxy.config().Try...)
		s.fallbackInit = true
	}
	cur := s.CurrentServer()
	for len(s.fallback) != 0 {
		name := s.fallback[0]
		s.fallback = s.fallback[1:]
		next := s.proxy.Server(name)
		if next == nil || next.sameAs(failed) || next.sameAs(cur) {
			continue
		}
		return next
	}
	return nil
}

// connectFailed ends a failed attempt of link and continues with the
// fallback chain. reason is shown to the player, err is logged.
func (s *Session) connectFailed(link *backendLink, err error, reason component.Component) {
	if !link.finish() {
		return
	}
	req := link.req
	target := link.server
	if s.transition == link {
		s.transition = nil
	}
	s.proxy.metrics.BackendConnect(target.Name(), Fail.String())
	if s.Closed() {
		req.done(Fail, err)
		return
	}
	if reason == nil {
		reason = connectErrorReason(s, err)
	}
	text := componentutil.Plain(reason)
	s.log.Info("unable to connect to server", "server", target.Name(), "reason", text, "error", err)

	if req.Retry {
		if next := s.nextFallback(target); next != nil {
			if s.spawned {
				_ = s.SendMessage(s.proxy.messages.Component(s.Locale(), message.FallbackLobby, text))
			}
			s.Connect(&ConnectRequest{
				Target:       next,
				Retry:        true,
				Reason:       LobbyFallback,
				Timeout:      req.Timeout,
				SendFeedback: req.SendFeedback,
				Callback:     req.Callback,
			})
			return
		}
	}
	kick := s.proxy.messages.Component(s.Locale(), message.FallbackKick, text)
	if s.backend == nil {
		// The attempt replaced the world of the player.
		s.Disconnect(kick)
	} else {
		_ = s.SendMessage(kick)
	}
	req.done(Fail, err)
}

// connectErrorReason renders a dial or login error for the player.
func connectErrorReason(s *Session, err error) component.Component {
	var netErr net.Error
	switch {
	case errors.Is(err, errConnectTimeout), errors.As(err, &netErr) && netErr.Timeout():
		return s.proxy.messages.Component(s.Locale(), message.ConnectTimeout)
	case errors.Is(err, errBackendUnlinked):
		return s.proxy.messages.Component(s.Locale(), message.LostConnection)
	}
	return s.proxy.messages.Component(s.Locale(), message.InternalConnectionError)
}

// backendKicked handles a kick or connection loss of the current backend.
func (s *Session) backendKicked(link *backendLink, reason component.Component) {
	if s.backend != link || s.Closed() {
		return
	}
	server := link.server
	link.obsolete.Store(true)
	link.disconnect()
	s.backend = nil
	server.removePlayer(s)

	e := &ServerKickEvent{
		player:   s,
		server:   server,
		reason:   reason,
		fallback: s.nextFallback(server),
		state:    KickConnected,
	}
	s.proxy.event.Fire(e)
	s.current.Store(nil)
	s.log.Info("kicked from server", "server", server.Name(), "reason", componentutil.Plain(e.Reason()))

	if e.Fallback() == nil || s.Closed() {
		s.Disconnect(e.Reason())
		return
	}
	_ = s.SendMessage(s.proxy.messages.Component(s.Locale(), message.ServerWentDown))
	s.Connect(&ConnectRequest{
		Target: e.Fallback(),
		Retry:  true,
		Reason: ServerDownRedirect,
	})
}
