// Package config holds the proxy configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/xenoncommunity/xenon/pkg/util/configutil"
	"github.com/xenoncommunity/xenon/pkg/util/validation"
)

// DefaultConfig is a default Config.
var DefaultConfig = Config{
	Bind:                   "0.0.0.0:25577",
	OnlineMode:             true,
	IPForward:              false,
	CompressionThreshold:   256,
	CompressionLevel:       -1,
	PlayerLimit:            -1,
	EnforceSecureProfile:   false,
	PluginChannelLimit:     128,
	PluginChannelNameLimit: 128,
	TabThrottle:            configutil.Duration(time.Second),
	ForgeSupport:           true,
	BungeePluginChannel:    true,
	ConnectionTimeout:      configutil.Duration(5 * time.Second),
	ReadTimeout:            configutil.Duration(30 * time.Second),
	LogCommands:            true,
	Motd:                   "&1Another Xenon proxy",
	Favicon:                "server-icon.png",
	ShowMaxPlayers:         1,
	Servers: map[string]string{
		"lobby": "localhost:25565",
	},
	Try:         []string{"lobby"},
	ForcedHosts: map[string][]string{},
	Permissions: map[string][]string{},
	Groups: map[string][]string{
		"default": {"xenon.command.server", "xenon.command.glist"},
		"admin":   {"xenon.command.send", "xenon.command.reload", "xenon.staffchat", "xenon.spy", "xenon.commandwhitelist.bypass"},
	},
	PlayerGroups: map[string][]string{},
	Xenon: Xenon{
		Prefix:          "&b&lXenon &8» &7",
		LoadingMessage:  "&7Connecting you to &b%s&7...",
		InGameBrandName: "Xenon",
		Modules: Modules{
			Enables:          []string{"spy", "staffchat", "commandwhitelist", "brand"},
			SpyExceptions:    []string{"/login", "/register", "/l ", "/reg "},
			SpyBypass:        "xenon.spy.bypass",
			SpyPerm:          "xenon.spy",
			SpyMessage:       "&8[&cSPY&8] &7PLAYER&8: &fCOMMAND",
			StaffChatPerm:    "xenon.staffchat",
			StaffChatMessage: "&8[&bSTAFF&8] &7PLAYER&8: &fMESSAGE",
		},
		CommandWhitelist: CommandWhitelist{
			Bypass:       "xenon.commandwhitelist.bypass",
			BlockMessage: "&cYou are not allowed to use this command here.",
			PerGroup: map[string]GroupCommands{
				"default": {
					Servers:  []string{"lobby"},
					Commands: []string{"/login", "/register", "/server", "/glist", "/help"},
				},
			},
		},
	},
	Reconnect: Reconnect{
		Store: MemoryStore,
		TTL:   configutil.Duration(24 * time.Hour),
	},
	Metrics: Metrics{Enabled: false, Bind: "0.0.0.0:9100"},
	API: API{
		Enabled:      false,
		Bind:         "127.0.0.1:8080",
		AllowOrigins: []string{"*"},
	},
	MQTT: MQTT{
		Enabled:  false,
		Broker:   "tcp://localhost:1883",
		Topic:    "xenon",
		ClientID: "xenon-proxy",
	},
	Quota: Quota{
		Connections: QuotaSettings{Enabled: true, OPS: 5, Burst: 10, MaxEntries: 1000},
	},
}

// Config is the configuration of the proxy.
type Config struct {
	Bind string `yaml:"bind"` // The address to listen for connections.

	OnlineMode bool `yaml:"onlineMode"`
	// Forwards the player's address and authenticated id to backends
	// using the legacy BungeeCord handshake format.
	IPForward bool `yaml:"ipForward"`

	CompressionThreshold int `yaml:"compressionThreshold"`
	CompressionLevel     int `yaml:"compressionLevel"`

	PlayerLimit             int  `yaml:"playerLimit"` // -1 for unlimited
	EnforceSecureProfile    bool `yaml:"enforceSecureProfile"`
	PreventProxyConnections bool `yaml:"preventProxyConnections"` // sends player ip to mojang

	PluginChannelLimit     int                 `yaml:"pluginChannelLimit"`
	PluginChannelNameLimit int                 `yaml:"pluginChannelNameLimit"`
	TabThrottle            configutil.Duration `yaml:"tabThrottle"`
	ForgeSupport           bool                `yaml:"forgeSupport"`
	RejectTransfers        bool                `yaml:"rejectTransfers"`
	// Answers requests of backend plugins on the BungeeCord channel.
	BungeePluginChannel bool `yaml:"bungeePluginChannel"`

	ConnectionTimeout configutil.Duration `yaml:"connectionTimeout"` // Backend connect timeout
	ReadTimeout       configutil.Duration `yaml:"readTimeout"`

	LogPings      bool `yaml:"logPings"`
	LogCommands   bool `yaml:"logCommands"`
	ProxyProtocol bool `yaml:"proxyProtocol"` // ha-proxy compatibility

	Motd            string `yaml:"motd"`
	Favicon         string `yaml:"favicon"`
	ShowMaxPlayers  int    `yaml:"showMaxPlayers"`
	PingPassthrough bool   `yaml:"pingPassthrough"`

	Servers     map[string]string   `yaml:"servers"` // name:address
	Try         []string            `yaml:"try"`     // Try server names order
	ForcedHosts map[string][]string `yaml:"forcedHosts"`

	Permissions  map[string][]string `yaml:"permissions"`  // player:permissions
	Groups       map[string][]string `yaml:"groups"`       // group:permissions
	PlayerGroups map[string][]string `yaml:"playerGroups"` // player:groups

	Xenon     Xenon     `yaml:"xenon"`
	Reconnect Reconnect `yaml:"reconnect"`
	Metrics   Metrics   `yaml:"metrics"`
	API       API       `yaml:"api"`
	MQTT      MQTT      `yaml:"mqtt"`
	Quota     Quota     `yaml:"quota"`

	Debug bool `yaml:"debug,omitempty"`
}

type (
	// Xenon holds the settings of the bundled modules.
	Xenon struct {
		Prefix           string           `yaml:"prefix"`
		LoadingMessage   string           `yaml:"loadingMessage"`
		InGameBrandName  string           `yaml:"inGameBrandName"`
		Modules          Modules          `yaml:"modules"`
		CommandWhitelist CommandWhitelist `yaml:"commandWhitelist"`
	}
	Modules struct {
		Enables          []string `yaml:"enables"`
		SpyExceptions    []string `yaml:"spyExceptions"`
		SpyBypass        string   `yaml:"spyBypass"`
		SpyPerm          string   `yaml:"spyPerm"`
		SpyMessage       string   `yaml:"spyMessage"`
		StaffChatPerm    string   `yaml:"staffChatPerm"`
		StaffChatMessage string   `yaml:"staffChatMessage"`
	}
	CommandWhitelist struct {
		Bypass       string                   `yaml:"bypass"`
		BlockMessage string                   `yaml:"blockMessage"`
		PerGroup     map[string]GroupCommands `yaml:"perGroup"`
	}
	GroupCommands struct {
		Servers  []string `yaml:"servers"`
		Commands []string `yaml:"commands"`
	}
	Reconnect struct {
		Store StoreType           `yaml:"store"`
		DSN   string              `yaml:"dsn,omitempty"`
		TTL   configutil.Duration `yaml:"ttl"`
	}
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Bind    string `yaml:"bind"`
	}
	API struct {
		Enabled      bool     `yaml:"enabled"`
		Bind         string   `yaml:"bind"`
		AllowOrigins []string `yaml:"allowOrigins"`
	}
	// Quota limits connection attempts per client address range.
	Quota struct {
		Connections QuotaSettings `yaml:"connections"`
	}
	QuotaSettings struct {
		Enabled    bool    `yaml:"enabled"`
		OPS        float32 `yaml:"ops"` // allowed operations/events per second
		Burst      int     `yaml:"burst"`
		MaxEntries int     `yaml:"maxEntries"` // tracked address ranges
	}
	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Broker   string `yaml:"broker"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"clientId"`
	}
)

// StoreType is the backend of the reconnect store.
type StoreType string

const (
	NoneStore     StoreType = "none"
	MemoryStore   StoreType = "memory"
	RedisStore    StoreType = "redis"
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

// ModuleEnabled reports whether the named module is listed in xenon.modules.enables.
func (c *Config) ModuleEnabled(name string) bool {
	for _, m := range c.Xenon.Modules.Enables {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

// SetDefaults sets Config defaults used with Viper.
func SetDefaults(i configutil.SetDefault) {
	d := DefaultConfig
	i.SetDefault("bind", d.Bind)
	i.SetDefault("onlineMode", d.OnlineMode)
	i.SetDefault("ipForward", d.IPForward)
	i.SetDefault("compressionThreshold", d.CompressionThreshold)
	i.SetDefault("compressionLevel", d.CompressionLevel)
	i.SetDefault("playerLimit", d.PlayerLimit)
	i.SetDefault("pluginChannelLimit", d.PluginChannelLimit)
	i.SetDefault("pluginChannelNameLimit", d.PluginChannelNameLimit)
	i.SetDefault("tabThrottle", time.Duration(d.TabThrottle).String())
	i.SetDefault("forgeSupport", d.ForgeSupport)
	i.SetDefault("bungeePluginChannel", d.BungeePluginChannel)
	i.SetDefault("connectionTimeout", time.Duration(d.ConnectionTimeout).String())
	i.SetDefault("readTimeout", time.Duration(d.ReadTimeout).String())
	i.SetDefault("logCommands", d.LogCommands)
	i.SetDefault("motd", d.Motd)
	i.SetDefault("favicon", d.Favicon)
	i.SetDefault("showMaxPlayers", d.ShowMaxPlayers)
	i.SetDefault("pingPassthrough", d.PingPassthrough)
	i.SetDefault("enforceSecureProfile", d.EnforceSecureProfile)
	i.SetDefault("preventProxyConnections", d.PreventProxyConnections)
	i.SetDefault("rejectTransfers", d.RejectTransfers)
	i.SetDefault("logPings", d.LogPings)
	i.SetDefault("proxyProtocol", d.ProxyProtocol)

	i.SetDefault("xenon.prefix", d.Xenon.Prefix)
	i.SetDefault("xenon.loadingMessage", d.Xenon.LoadingMessage)
	i.SetDefault("xenon.inGameBrandName", d.Xenon.InGameBrandName)
	i.SetDefault("xenon.modules.spyBypass", d.Xenon.Modules.SpyBypass)
	i.SetDefault("xenon.modules.spyPerm", d.Xenon.Modules.SpyPerm)
	i.SetDefault("xenon.modules.spyMessage", d.Xenon.Modules.SpyMessage)
	i.SetDefault("xenon.modules.staffChatPerm", d.Xenon.Modules.StaffChatPerm)
	i.SetDefault("xenon.modules.staffChatMessage", d.Xenon.Modules.StaffChatMessage)
	i.SetDefault("xenon.commandWhitelist.bypass", d.Xenon.CommandWhitelist.Bypass)
	i.SetDefault("xenon.commandWhitelist.blockMessage", d.Xenon.CommandWhitelist.BlockMessage)

	i.SetDefault("reconnect.store", d.Reconnect.Store)
	i.SetDefault("reconnect.ttl", time.Duration(d.Reconnect.TTL).String())
	i.SetDefault("reconnect.dsn", d.Reconnect.DSN)
	i.SetDefault("metrics.enabled", d.Metrics.Enabled)
	i.SetDefault("metrics.bind", d.Metrics.Bind)
	i.SetDefault("api.enabled", d.API.Enabled)
	i.SetDefault("api.bind", d.API.Bind)
	i.SetDefault("api.allowOrigins", d.API.AllowOrigins)
	i.SetDefault("mqtt.enabled", d.MQTT.Enabled)
	i.SetDefault("mqtt.broker", d.MQTT.Broker)
	i.SetDefault("mqtt.topic", d.MQTT.Topic)
	i.SetDefault("mqtt.clientId", d.MQTT.ClientID)
	i.SetDefault("quota.connections.enabled", d.Quota.Connections.Enabled)
	i.SetDefault("quota.connections.ops", d.Quota.Connections.OPS)
	i.SetDefault("quota.connections.burst", d.Quota.Connections.Burst)
	i.SetDefault("quota.connections.maxEntries", d.Quota.Connections.MaxEntries)
}

// Validate validates Config.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c == nil {
		e("config must not be nil")
		return
	}

	if len(c.Bind) == 0 {
		e("Bind is empty")
	} else if err := validation.ValidHostPort(c.Bind); err != nil {
		e("Invalid bind %q: %v", c.Bind, err)
	}

	if !c.OnlineMode {
		w("Proxy is running in offline mode!")
	}
	if c.OnlineMode && !c.IPForward {
		w("ipForward is disabled! Backend servers will see players with " +
			"offline-mode UUIDs and the same IP as the proxy.")
	}

	if len(c.Servers) == 0 {
		w("No backend servers configured.")
	}
	for name, addr := range c.Servers {
		if !validation.ValidServerName(name) {
			e("Invalid server name format %q: %s and length be 1-%d", name,
				validation.QualifiedNameErrMsg, validation.QualifiedNameMaxLength)
		}
		if err := validation.ValidHostPort(addr); err != nil {
			e("Invalid address %q for server %q: %w", addr, name, err)
		}
	}
	for _, name := range c.Try {
		if _, ok := c.Servers[name]; !ok {
			e("Fallback/try server %q must be registered under servers", name)
		}
	}
	for host, servers := range c.ForcedHosts {
		for _, name := range servers {
			if _, ok := c.Servers[name]; !ok {
				e("Forced host %q server %q must be registered under servers", host, name)
			}
		}
	}

	if c.CompressionLevel < -1 || c.CompressionLevel > 9 {
		e("Unsupported compression level %d: must be -1..9", c.CompressionLevel)
	} else if c.CompressionLevel == 0 {
		w("All packets going through the proxy are uncompressed, this increases bandwidth usage.")
	}
	if c.CompressionThreshold < -1 {
		e("Invalid compression threshold %d: must be >= -1", c.CompressionThreshold)
	} else if c.CompressionThreshold == 0 {
		w("All packets going through the proxy will be compressed, this lowers bandwidth, " +
			"but has lower throughput and increases CPU usage.")
	}

	if c.PluginChannelLimit < 1 {
		e("Invalid pluginChannelLimit %d: must be >= 1", c.PluginChannelLimit)
	}
	if c.PluginChannelNameLimit < 1 {
		e("Invalid pluginChannelNameLimit %d: must be >= 1", c.PluginChannelNameLimit)
	}
	if c.TabThrottle < 0 {
		e("Invalid tabThrottle %s: must not be negative", time.Duration(c.TabThrottle))
	}
	if c.ConnectionTimeout <= 0 {
		e("Invalid connectionTimeout %s: must be positive", time.Duration(c.ConnectionTimeout))
	}

	switch c.Reconnect.Store {
	case "", NoneStore, MemoryStore:
	case RedisStore, SQLiteStore, PostgresStore:
		if c.Reconnect.DSN == "" {
			e("Reconnect store %q requires a dsn", c.Reconnect.Store)
		}
	default:
		e("Unknown reconnect store %q, must be one of none,memory,redis,sqlite,postgres", c.Reconnect.Store)
	}

	if c.Metrics.Enabled {
		if err := validation.ValidHostPort(c.Metrics.Bind); err != nil {
			e("Invalid metrics bind %q: %v", c.Metrics.Bind, err)
		}
	}
	if c.API.Enabled {
		if err := validation.ValidHostPort(c.API.Bind); err != nil {
			e("Invalid api bind %q: %v", c.API.Bind, err)
		}
	}
	if q := c.Quota.Connections; q.Enabled && (q.OPS <= 0 || q.Burst < 1 || q.MaxEntries < 1) {
		e("Invalid connection quota: ops must be positive, burst and maxEntries at least 1")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		e("MQTT is enabled but no broker is set")
	}

	return
}
