package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pires/go-proxyproto"
	"github.com/robinbraemer/event"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"

	"github.com/xenoncommunity/xenon/pkg/auth"
	"github.com/xenoncommunity/xenon/pkg/command"
	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/internal/addrquota"
	"github.com/xenoncommunity/xenon/pkg/internal/cachutil"
	"github.com/xenoncommunity/xenon/pkg/internal/reload"
	"github.com/xenoncommunity/xenon/pkg/metrics"
	"github.com/xenoncommunity/xenon/pkg/netmc"
	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proxy/crypto"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
	"github.com/xenoncommunity/xenon/pkg/proxy/ping"
	"github.com/xenoncommunity/xenon/pkg/store"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
	"github.com/xenoncommunity/xenon/pkg/util/errs"
	"github.com/xenoncommunity/xenon/pkg/util/favicon"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
	"github.com/xenoncommunity/xenon/pkg/util/validation"
)

// Options are the options for a new Proxy.
type Options struct {
	// Config is the configuration of the proxy. Required.
	// It must be valid, see config.Config.Validate.
	Config *config.Config
	// Event is the event manager events are fired with.
	// A new one is created if nil.
	Event event.Manager
	// Authenticator authenticates online mode players.
	// The Mojang session server is used if nil.
	Authenticator auth.Authenticator
	// Signers verify 1.19 player keys.
	// The Mojang public keys are used if nil.
	Signers crypto.SignerSource
	// ReconnectStore remembers the last server of players. May be nil!
	ReconnectStore store.Store
	// Metrics records proxy metrics. May be nil!
	Metrics *metrics.Metrics
	// Messages renders user-facing texts. message.Default if nil.
	Messages *message.Catalog
	// Plugins are initialized on Start before serving connections.
	Plugins []Plugin
	// Reloader reads the config again for the reload command. May be nil!
	Reloader func() (*config.Config, error)
}

// Proxy is the Xenon proxy managing player connections to backend servers.
type Proxy struct {
	log           logr.Logger
	event         event.Manager
	command       *command.Manager
	authenticator auth.Authenticator
	signers       crypto.SignerSource
	store         store.Store
	metrics       *metrics.Metrics
	messages      *message.Catalog
	plugins       []Plugin
	reloader      func() (*config.Config, error)
	quota         *addrquota.Quota
	statusCache   *cachutil.Loader[*ping.ServerPing]
	startTime     atomic.Time

	runOnce   atomic.Bool
	closeOnce sync.Once
	closed    chan struct{}

	cfgMu   sync.RWMutex // Protects following fields
	cfg     *config.Config
	motd    *component.Text
	favicon favicon.Favicon

	muS     sync.RWMutex                 // Protects following field
	servers map[string]*RegisteredServer // registered backend servers: by lower case names

	muP         sync.RWMutex // Protects following fields
	playerNames map[string]*Session
	playerIDs   map[uuid.UUID]*Session
}

// New returns a new initialized Proxy ready to Start.
func New(opts Options) (*Proxy, error) {
	if opts.Config == nil {
		return nil, errors.New("config must not be nil")
	}
	if _, errList := opts.Config.Validate(); len(errList) != 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errList...))
	}
	cfg := *opts.Config

	p := &Proxy{
		log:           logr.Discard(),
		event:         opts.Event,
		command:       &command.Manager{},
		authenticator: opts.Authenticator,
		signers:       opts.Signers,
		store:         opts.ReconnectStore,
		metrics:       opts.Metrics,
		messages:      opts.Messages,
		plugins:       opts.Plugins,
		reloader:      opts.Reloader,
		closed:        make(chan struct{}),
		cfg:           &cfg,
		servers:       map[string]*RegisteredServer{},
		playerNames:   map[string]*Session{},
		playerIDs:     map[uuid.UUID]*Session{},
	}
	if p.event == nil {
		p.event = event.New()
	}
	if p.messages == nil {
		p.messages = message.Default
	}
	if p.authenticator == nil {
		a, err := auth.New(auth.Options{})
		if err != nil {
			return nil, fmt.Errorf("error creating authenticator: %w", err)
		}
		p.authenticator = a
	}
	if p.signers == nil {
		p.signers = crypto.NewMojangSigners(nil, time.Hour)
	}
	if q := cfg.Quota.Connections; q.Enabled {
		p.quota = addrquota.NewQuota(q.OPS, q.Burst, q.MaxEntries)
	}
	p.statusCache = cachutil.NewLoader(
		ttlcache.New[string, *ping.ServerPing](ttlcache.WithTTL[string, *ping.ServerPing](3*time.Second)),
		p.loadStatus,
	)
	return p, nil
}

// ErrProxyAlreadyRun is returned by Start if the proxy instance was already run.
var ErrProxyAlreadyRun = errors.New("proxy was already run, create a new one")

// Start runs the proxy and blocks until ctx is canceled, Shutdown is called
// or an error occurred while starting.
// The proxy is already shut down on return.
func (p *Proxy) Start(ctx context.Context) error {
	if !p.runOnce.CompareAndSwap(false, true) {
		return ErrProxyAlreadyRun
	}
	p.log = logr.FromContextOrDiscard(ctx).WithName("proxy")
	p.startTime.Store(time.Now())
	defer p.Shutdown(nil)

	if err := p.preInit(ctx); err != nil {
		return fmt.Errorf("pre-initialization error: %w", err)
	}
	go func() {
		select {
		case <-ctx.Done():
			p.Shutdown(nil)
		case <-p.closed:
		}
	}()
	return p.listenAndServe(ctx, p.config().Bind)
}

// Shutdown stops the proxy and blocks until the shutdown finished.
//
// It stops listening for new connections, disconnects all players
// with reason (the restart message if nil) and waits for all
// event subscribers to finish.
func (p *Proxy) Shutdown(reason component.Component) {
	p.closeOnce.Do(func() {
		p.log.Info("shutting down the proxy...")
		defer p.log.Info("finished shutdown")

		if reason == nil {
			reason = p.messages.Component("", message.ProxyShutdown)
		}
		pre := &PreShutdownEvent{reason: reason}
		p.event.Fire(pre)

		close(p.closed)
		p.DisconnectAll(pre.Reason())

		p.event.Fire(&ShutdownEvent{})
		p.event.Wait()
	})
}

func (p *Proxy) preInit(ctx context.Context) error {
	cfg := p.config()
	if err := p.loadStatusTexts(cfg); err != nil {
		return err
	}

	p.registerServers(cfg)
	if len(cfg.Servers) != 0 {
		p.log.Info("pre-registered servers", "count", len(cfg.Servers))
	}

	p.registerBuiltinCommands()

	for _, pl := range p.plugins {
		if err := pl.Init(ctx, p); err != nil {
			return fmt.Errorf("error running init hook for plugin %q: %w", pl.Name, err)
		}
	}
	return nil
}

// loadStatusTexts parses the motd and loads the favicon of cfg.
func (p *Proxy) loadStatusTexts(cfg *config.Config) error {
	var motd *component.Text
	if cfg.Motd != "" {
		var err error
		motd, err = componentutil.ParseTextComponent(cfg.Motd)
		if err != nil {
			return fmt.Errorf("error parsing motd: %w", err)
		}
	}
	fav, err := favicon.Load(cfg.Favicon)
	if err != nil {
		return err
	}
	if fav == "" && cfg.Favicon != "" {
		p.log.V(1).Info("favicon not found, serving none", "favicon", cfg.Favicon)
	}
	p.cfgMu.Lock()
	p.motd, p.favicon = motd, fav
	p.cfgMu.Unlock()
	return nil
}

// listenAndServe accepts connections on addr until the proxy is closed.
func (p *Proxy) listenAndServe(ctx context.Context, addr string) error {
	select {
	case <-p.closed:
		return nil
	default:
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if p.config().ProxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}
	defer ln.Close()

	go func() {
		<-p.closed
		_ = ln.Close()
	}()

	p.event.Fire(&ReadyEvent{addr: ln.Addr().String()})

	p.log.Info("listening for connections", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			var opErr *net.OpError
			if errors.As(err, &opErr) && errs.IsConnClosedErr(opErr.Err) {
				// Listener was closed
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("error accepting new connection: %w", err)
		}
		go p.HandleConn(ctx, conn)
	}
}

// HandleConn handles a just-accepted client connection that
// has not had any I/O performed on it yet.
// It blocks until the connection is closed.
func (p *Proxy) HandleConn(ctx context.Context, raw net.Conn) {
	if p.quota.Blocked(raw.RemoteAddr()) {
		_ = raw.Close()
		p.metrics.Connection("throttled")
		p.log.Info("connection exceeded the rate limit", "remoteAddr", raw.RemoteAddr())
		return
	}
	p.metrics.Connection("accepted")

	cfg := p.config()
	ctx = logr.NewContext(ctx, p.log.WithValues("remoteAddr", raw.RemoteAddr().String()))
	conn, readLoop := netmc.NewMinecraftConn(ctx, raw, proto.ServerBound, netmc.Options{
		ReadTimeout:      time.Duration(cfg.ReadTimeout),
		CompressionLevel: cfg.CompressionLevel,
	})
	conn.SetSessionHandler(newHandshakeSessionHandler(conn, p))
	readLoop()
}

// Reload applies cfg to the running proxy.
// Listener settings such as the bind address are only read on Start.
func (p *Proxy) Reload(cfg *config.Config) error {
	warns, errList := cfg.Validate()
	if len(errList) != 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errList...))
	}
	for _, w := range warns {
		p.log.Info("config warning", "warning", w.Error())
	}
	if err := p.loadStatusTexts(cfg); err != nil {
		return err
	}
	next := *cfg
	p.cfgMu.Lock()
	prev := p.cfg
	p.cfg = &next
	p.cfgMu.Unlock()

	p.registerServers(&next)
	p.log.Info("reloaded config", "servers", len(next.Servers))
	reload.FireConfigUpdate(p.event, &next, prev)
	return nil
}

// registerServers makes the registered servers match the servers of cfg.
// Servers keep their players if their address did not change.
func (p *Proxy) registerServers(cfg *config.Config) {
	for _, s := range p.Servers() {
		if addr, ok := lookupFold(cfg.Servers, s.Name()); !ok || addr != s.Addr().String() {
			p.Unregister(s)
		}
	}
	for name, addr := range cfg.Servers {
		p.Register(name, addr)
	}
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Config returns a copy of the config used by the proxy.
func (p *Proxy) Config() config.Config { return *p.config() }

// config returns the current config. It must not be modified.
func (p *Proxy) config() *config.Config {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	return p.cfg
}

// Event returns the event manager of the proxy.
func (p *Proxy) Event() event.Manager { return p.event }

// Command returns the command manager of the proxy.
func (p *Proxy) Command() *command.Manager { return p.command }

// Messages returns the message catalog of the proxy.
func (p *Proxy) Messages() *message.Catalog { return p.messages }

// Metrics returns the metrics of the proxy. May be nil!
func (p *Proxy) Metrics() *metrics.Metrics { return p.metrics }

// Uptime returns the time since the proxy started.
func (p *Proxy) Uptime() time.Duration {
	t := p.startTime.Load()
	if t.IsZero() {
		return 0
	}
	return time.Since(t)
}

// Server returns the backend server registered by name.
// Returns nil if not found.
func (p *Proxy) Server(name string) *RegisteredServer {
	p.muS.RLock()
	defer p.muS.RUnlock()
	return p.servers[strings.ToLower(name)]
}

// Servers returns all registered servers.
func (p *Proxy) Servers() []*RegisteredServer {
	p.muS.RLock()
	defer p.muS.RUnlock()
	l := make([]*RegisteredServer, 0, len(p.servers))
	for _, s := range p.servers {
		l = append(l, s)
	}
	return l
}

// Register registers a server with the proxy.
//
// Returns the new registered server and true on success.
// If the name is taken the existing server and false is returned,
// if the name or address is invalid nil and false.
func (p *Proxy) Register(name, addr string) (*RegisteredServer, bool) {
	if !validation.ValidServerName(name) || validation.ValidHostPort(addr) != nil {
		return nil, false
	}
	key := strings.ToLower(name)

	p.muS.Lock()
	defer p.muS.Unlock()
	if exists, ok := p.servers[key]; ok {
		return exists, false
	}
	s := NewRegisteredServer(name, addr)
	p.servers[key] = s

	p.log.V(1).Info("registered server", "name", name, "addr", addr)
	return s, true
}

// Unregister unregisters s and returns true if it was registered.
func (p *Proxy) Unregister(s *RegisteredServer) bool {
	if s == nil {
		return false
	}
	key := strings.ToLower(s.Name())
	p.muS.Lock()
	defer p.muS.Unlock()
	if rs, ok := p.servers[key]; !ok || rs != s {
		return false
	}
	delete(p.servers, key)

	p.log.V(1).Info("unregistered server", "name", s.Name(), "addr", s.Addr().String())
	return true
}

// initialServer returns the first server a player joining with vhost
// is sent to: the first forced host server, else the first try server.
// Returns nil if none is registered.
func (p *Proxy) initialServer(vhost string) *RegisteredServer {
	cfg := p.config()
	for host, names := range cfg.ForcedHosts {
		if !strings.EqualFold(host, vhost) {
			continue
		}
		for _, name := range names {
			if s := p.Server(name); s != nil {
				return s
			}
		}
	}
	for _, name := range cfg.Try {
		if s := p.Server(name); s != nil {
			return s
		}
	}
	return nil
}

// DisconnectAll disconnects all current connected players in parallel.
func (p *Proxy) DisconnectAll(reason component.Component) {
	players := p.Players()
	var wg sync.WaitGroup
	wg.Add(len(players))
	for _, s := range players {
		go func(s *Session) {
			defer wg.Done()
			s.Disconnect(reason)
		}(s)
	}
	wg.Wait()
}

// PlayerCount returns the number of players on the proxy.
func (p *Proxy) PlayerCount() int {
	p.muP.RLock()
	defer p.muP.RUnlock()
	return len(p.playerIDs)
}

// Players returns all players on the proxy.
func (p *Proxy) Players() []*Session {
	p.muP.RLock()
	defer p.muP.RUnlock()
	l := make([]*Session, 0, len(p.playerIDs))
	for _, s := range p.playerIDs {
		l = append(l, s)
	}
	return l
}

// Player returns the online player by name (case-insensitive).
// Returns nil if the player was not found.
func (p *Proxy) Player(name string) *Session {
	p.muP.RLock()
	defer p.muP.RUnlock()
	return p.playerNames[strings.ToLower(name)]
}

// PlayerByID returns the online player by id.
// Returns nil if the player was not found.
func (p *Proxy) PlayerByID(id uuid.UUID) *Session {
	p.muP.RLock()
	defer p.muP.RUnlock()
	return p.playerIDs[id]
}

// duplicate reports whether a player logging in as name and id would
// collide with a connected player. Offline mode only compares names.
func (p *Proxy) duplicate(name string, id uuid.UUID, onlineMode bool) bool {
	p.muP.RLock()
	defer p.muP.RUnlock()
	if _, ok := p.playerNames[strings.ToLower(name)]; ok {
		return true
	}
	if !onlineMode {
		return false
	}
	_, ok := p.playerIDs[id]
	return ok
}

// registerPlayer registers s unless a player with the same name or id is
// already connected. The existing player is kept.
func (p *Proxy) registerPlayer(s *Session) bool {
	name := strings.ToLower(s.Username())
	p.muP.Lock()
	if p.playerNames[name] != nil || p.playerIDs[s.ID()] != nil {
		p.muP.Unlock()
		return false
	}
	p.playerNames[name] = s
	p.playerIDs[s.ID()] = s
	n := len(p.playerIDs)
	p.muP.Unlock()
	p.metrics.SetPlayersOnline(n)
	return true
}

// unregisterPlayer removes s if it is the registered player of its name.
func (p *Proxy) unregisterPlayer(s *Session) bool {
	name := strings.ToLower(s.Username())
	p.muP.Lock()
	found := p.playerIDs[s.ID()] == s
	if found {
		delete(p.playerIDs, s.ID())
	}
	if p.playerNames[name] == s {
		delete(p.playerNames, name)
	}
	n := len(p.playerIDs)
	p.muP.Unlock()
	if found {
		p.metrics.SetPlayersOnline(n)
	}
	return found
}

// lastServer returns the server the player was connected to before
// or nil if unknown or no longer registered.
func (p *Proxy) lastServer(ctx context.Context, id uuid.UUID) *RegisteredServer {
	if p.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.config().ConnectionTimeout))
	defer cancel()
	name, err := p.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.log.Error(err, "error reading reconnect server", "id", id)
		}
		return nil
	}
	return p.Server(name)
}

// storeLastServer remembers server as the reconnect server of the player.
func (p *Proxy) storeLastServer(id uuid.UUID, server *RegisteredServer) {
	if p.store == nil || server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.config().ConnectionTimeout))
	defer cancel()
	if err := p.store.Set(ctx, id, server.Name()); err != nil {
		p.log.Error(err, "error storing reconnect server", "id", id, "server", server.Name())
	}
}
