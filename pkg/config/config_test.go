package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig_Valid(t *testing.T) {
	c := DefaultConfig
	warns, errs := c.Validate()
	assert.Empty(t, errs)
	assert.NotEmpty(t, warns) // ipForward is off by default
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errs   int
	}{
		{name: "empty bind", mutate: func(c *Config) { c.Bind = "" }, errs: 1},
		{name: "unknown try server", mutate: func(c *Config) { c.Try = []string{"lobby", "hub"} }, errs: 1},
		{name: "forced host to unknown server", mutate: func(c *Config) {
			c.ForcedHosts = map[string][]string{"pvp.example.com": {"pvp"}}
		}, errs: 1},
		{name: "bad compression level", mutate: func(c *Config) { c.CompressionLevel = 11 }, errs: 1},
		{name: "redis without dsn", mutate: func(c *Config) { c.Reconnect.Store = RedisStore }, errs: 1},
		{name: "unknown store", mutate: func(c *Config) { c.Reconnect.Store = "etcd" }, errs: 1},
		{name: "invalid server name", mutate: func(c *Config) {
			c.Servers = map[string]string{"lobby": "localhost:25565", "Bad Name": "localhost:25566"}
		}, errs: 1},
		{name: "zero connection timeout", mutate: func(c *Config) { c.ConnectionTimeout = 0 }, errs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig
			c.Xenon.Modules.Enables = append([]string(nil), c.Xenon.Modules.Enables...)
			tt.mutate(&c)
			_, errs := c.Validate()
			assert.Len(t, errs, tt.errs, "%v", errs)
		})
	}
}

func TestModuleEnabled(t *testing.T) {
	c := DefaultConfig
	assert.True(t, c.ModuleEnabled("Spy"))
	assert.False(t, c.ModuleEnabled("maintenance"))
}

func TestDefaultConfig_YAML(t *testing.T) {
	out, err := yaml.Marshal(DefaultConfig)
	require.NoError(t, err)
	assert.Contains(t, string(out), "tabThrottle: 1s")
	assert.Contains(t, string(out), "onlineMode: true")

	var m map[string]any
	require.NoError(t, yaml.Unmarshal(out, &m))
	assert.Contains(t, m, "xenon")
}

type recorder map[string]any

func (r recorder) SetDefault(key string, value any) { r[key] = value }

func TestSetDefaults(t *testing.T) {
	r := recorder{}
	SetDefaults(r)
	assert.Equal(t, "0.0.0.0:25577", r["bind"])
	assert.Equal(t, "1s", r["tabThrottle"])
	assert.Equal(t, MemoryStore, r["reconnect.store"])
}
