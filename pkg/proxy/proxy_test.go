package proxy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
	"github.com/xenoncommunity/xenon/pkg/util/permission"
)

func newTestProxy(t *testing.T, servers map[string]string, try ...string) *Proxy {
	t.Helper()
	cfg := config.DefaultConfig
	cfg.Servers = servers
	cfg.Try = try
	p, err := New(Options{Config: &cfg})
	require.NoError(t, err)
	p.registerServers(p.config())
	return p
}

func newTestSession(p *Proxy) *Session {
	return &Session{
		proxy:           p,
		pendingConnects: map[string]*backendLink{},
	}
}

type consoleSource struct {
	messages []string
}

func (c *consoleSource) HasPermission(string) bool { return true }
func (c *consoleSource) PermissionValue(string) permission.TriState {
	return permission.True
}
func (c *consoleSource) SendMessage(msg component.Component) error {
	c.messages = append(c.messages, componentutil.Plain(msg))
	return nil
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Bind = ""
	_, err := New(Options{Config: &cfg})
	require.Error(t, err)

	_, err = New(Options{})
	require.Error(t, err)
}

func TestProxy_RegisterServers(t *testing.T) {
	p := newTestProxy(t, map[string]string{
		"Lobby": "localhost:25565",
		"games": "localhost:25566",
	}, "Lobby")

	require.NotNil(t, p.Server("lobby"))
	require.NotNil(t, p.Server("LOBBY"))
	assert.Len(t, p.Servers(), 2)

	cfg := p.Config()
	cfg.Servers = map[string]string{"lobby": "localhost:25565"}
	p.registerServers(&cfg)
	assert.Nil(t, p.Server("games"))
	assert.NotNil(t, p.Server("lobby"))
}

func TestProxy_Reload(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")

	cfg := p.Config()
	cfg.Servers = map[string]string{"lobby": "localhost:25565", "survival": "localhost:25570"}
	cfg.Motd = "&aReloaded"
	require.NoError(t, p.Reload(&cfg))
	assert.NotNil(t, p.Server("survival"))
	assert.Equal(t, "&aReloaded", p.Config().Motd)

	bad := p.Config()
	bad.Try = []string{"missing"}
	require.Error(t, p.Reload(&bad))
	assert.NotNil(t, p.Server("survival"))
}

func TestProxy_ReloadCommandWithoutSource(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	require.ErrorIs(t, p.reloadFromSource(), errNoReloader)

	called := false
	p.reloader = func() (*config.Config, error) {
		called = true
		cfg := p.Config()
		return &cfg, nil
	}
	require.NoError(t, p.reloadFromSource())
	assert.True(t, called)
}

func TestBuiltinCommands_Glist(t *testing.T) {
	p := newTestProxy(t, map[string]string{
		"lobby": "localhost:25565",
		"games": "localhost:25566",
	}, "lobby")
	p.registerBuiltinCommands()

	src := &consoleSource{}
	require.NoError(t, p.command.Do(context.Background(), src, "glist"))
	require.Equal(t, []string{
		"[games] (0): ",
		"[lobby] (0): ",
		"Total players online: 0",
	}, src.messages)
}

func TestBuiltinCommands_Server(t *testing.T) {
	p := newTestProxy(t, map[string]string{
		"lobby": "localhost:25565",
		"games": "localhost:25566",
	}, "lobby")
	p.registerBuiltinCommands()

	src := &consoleSource{}
	require.NoError(t, p.command.Do(context.Background(), src, "server"))
	require.Equal(t, []string{"You may connect to the following servers at this time: games, lobby"}, src.messages)

	src.messages = nil
	require.NoError(t, p.command.Do(context.Background(), src, "server lobby"))
	require.Equal(t, []string{"Only in game players can use this command"}, src.messages)
}

func TestBuiltinCommands_Send(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	p.registerBuiltinCommands()

	src := &consoleSource{}
	require.NoError(t, p.command.Do(context.Background(), src, "send"))
	require.Len(t, src.messages, 1)
	assert.Contains(t, src.messages[0], "Not enough arguments")

	src.messages = nil
	require.NoError(t, p.command.Do(context.Background(), src, "send nobody lobby"))
	require.Equal(t, []string{"That user is not online"}, src.messages)

	src.messages = nil
	require.NoError(t, p.command.Do(context.Background(), src, "send all nowhere"))
	require.Equal(t, []string{"The specified server does not exist."}, src.messages)

	src.messages = nil
	require.NoError(t, p.command.Do(context.Background(), src, "send all lobby"))
	require.Equal(t, []string{"Successfully summoned 0 player(s) to lobby"}, src.messages)
}
