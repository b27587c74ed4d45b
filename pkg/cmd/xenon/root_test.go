package xenon

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/version"
)

func testApp(out *bytes.Buffer) *cli.App {
	app := App()
	app.Writer = out
	app.ErrWriter = out
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func TestApp_Flags(t *testing.T) {
	app := App()
	assert.Equal(t, version.String(), app.Version)

	flags := make(map[string]bool)
	for _, flag := range app.Flags {
		for _, name := range flag.Names() {
			assert.False(t, flags[name], "flag conflict: %s", name)
			flags[name] = true
		}
	}
	for _, name := range []string{"config", "c", "debug", "d", "verbosity", "v"} {
		assert.True(t, flags[name], "missing flag %s", name)
	}

	help, err := app.ToMarkdown()
	require.NoError(t, err)
	assert.Contains(t, help, "--version")
	assert.Contains(t, help, "-V")
}

func TestConfigCommand_Stdout(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"xenon", "config"}))

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, config.DefaultConfig.Bind, cfg.Bind)
	assert.Equal(t, config.DefaultConfig.Servers, cfg.Servers)
	assert.Contains(t, out.String(), "# Xenon proxy configuration.")
}

func TestConfigCommand_Write(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.yml")
	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"xenon", "config", "--write", "--file", file}))
	assert.Contains(t, out.String(), "Configuration written to "+file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tabThrottle: 1s")
}

func TestCheckCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
onlineMode: true
ipForward: true
servers:
  lobby: localhost:25565
  survival: localhost:25566
try: [lobby]
forcedHosts:
  play.example.com: [survival]
`), 0644))

	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"xenon", "--config", file, "check"}))
	s := out.String()
	assert.Contains(t, s, "SERVER")
	assert.Contains(t, s, "localhost:25566")
	assert.Contains(t, s, "play.example.com")
	assert.Contains(t, s, "Config is valid, 2 server(s) configured.")
}

func TestCheckCommand_Invalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte("servers:\n  lobby: localhost:25565\ntry: [hub]\n"), 0644))

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"xenon", "--config", file, "check"})
	require.Error(t, err)
	assert.Contains(t, out.String(), `ERROR Fallback/try server "hub" must be registered under servers`)
}

func TestCheckCommand_MissingExplicitFile(t *testing.T) {
	var out bytes.Buffer
	err := testApp(&out).Run([]string{"xenon", "--config", filepath.Join(t.TempDir(), "nope.yml"), "check"})
	require.Error(t, err)
}

func TestServerRows(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Servers = map[string]string{"b": "localhost:2", "a": "localhost:1"}
	cfg.Try = []string{"b", "a"}
	cfg.ForcedHosts = map[string][]string{"y.example.com": {"a"}, "x.example.com": {"a"}}
	assert.Equal(t, [][]string{
		{"a", "localhost:1", "2", "x.example.com, y.example.com"},
		{"b", "localhost:2", "1", ""},
	}, serverRows(&cfg))
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(false, 1)
	require.NoError(t, err)
	assert.True(t, log.V(1).Enabled())
	assert.False(t, log.V(2).Enabled())

	log, err = newLogger(true, 0)
	require.NoError(t, err)
	assert.True(t, log.V(2).Enabled())
}
