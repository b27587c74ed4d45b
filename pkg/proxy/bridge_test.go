package proxy

import (
	"bytes"
	"testing"
	"time"

	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/chat"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/proxy/forge"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
)

func TestChatViolation(t *testing.T) {
	tests := []struct {
		msg  string
		key  message.Key
		char string
	}{
		{msg: "hi"},
		{msg: "/server lobby"},
		{msg: "", key: message.EmptyChat},
		{msg: "   ", key: message.EmptyChat},
		{msg: "hi\x07", key: message.IllegalChatCharacters, char: "U+0007"},
		{msg: "§cred", key: message.IllegalChatCharacters, char: "U+00A7"},
		{msg: "del\x7f", key: message.IllegalChatCharacters, char: "U+007F"},
	}
	for _, tt := range tests {
		key, char := chatViolation(tt.msg)
		assert.Equal(t, tt.key, key, "message %q", tt.msg)
		assert.Equal(t, tt.char, char, "message %q", tt.msg)
	}
}

func TestSession_HandleKeepAlive(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	s := newTestSession(p)
	l := &backendLink{session: s, server: p.Server("lobby")}
	s.backend = l

	sent := time.Now()
	l.recordKeepAlive(42, sent)

	assert.Equal(t, Suppress, s.handleKeepAlive(&packet.KeepAlive{RandomID: 7}, sent.Add(10*time.Millisecond)))
	assert.Equal(t, 1, l.keepAlives.Len())

	assert.Equal(t, Suppress, s.handleKeepAlive(&packet.KeepAlive{RandomID: 42}, sent.Add(50*time.Millisecond)))
	assert.Equal(t, 50*time.Millisecond, s.ping.Load())
	assert.Zero(t, l.keepAlives.Len())
}

func TestBackendLink_RelayKeepAlive(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	s, client := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)
	l, backend := newLinkedBackend(t, s, "lobby")

	payload := []byte{0x26, 0, 0, 0, 0, 0, 0, 0, 42}
	l.relayKeepAlive(&packet.KeepAlive{RandomID: 42}, payload)

	require.Len(t, backend.written(), 1, "the proxy answers the backend")
	assert.Equal(t, &packet.KeepAlive{RandomID: 42}, backend.written()[0])
	require.Len(t, client.raw(), 1)
	assert.Equal(t, payload, client.raw()[0])
	assert.Equal(t, 1, l.keepAlives.Len())

	assert.Equal(t, Suppress, s.handleKeepAlive(&packet.KeepAlive{RandomID: 42}, time.Now()))
	assert.Zero(t, l.keepAlives.Len())
	assert.GreaterOrEqual(t, s.Ping(), time.Duration(0))
	assert.Len(t, backend.written(), 1, "the answer of the client is not relayed")
}

func TestSession_HandleKeepAliveWithoutBackend(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	s := newTestSession(p)
	assert.Equal(t, Suppress, s.handleKeepAlive(&packet.KeepAlive{RandomID: 1}, time.Now()))
}

func TestSession_TabCompleteThrottled(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	s := newTestSession(p)
	s.tabLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, s.tabLimiter.Allow())

	// The session has no connection, any response or forward would panic.
	res := s.handleTabComplete(&packet.TabCompleteRequest{Command: "/ser", TransactionID: 3})
	assert.Equal(t, Suppress, res)
}

func TestTabCompleteResponse(t *testing.T) {
	req := &packet.TabCompleteRequest{Command: "/server lo", TransactionID: 9}

	res := tabCompleteResponse(version.Minecraft_1_13.Protocol, req, []string{"lobby", "login"})
	assert.Equal(t, 9, res.TransactionID)
	assert.Equal(t, 8, res.Start)
	assert.Equal(t, 2, res.Length)
	require.Len(t, res.Offers, 2)
	assert.Equal(t, "lobby", res.Offers[0].Text)

	legacy := tabCompleteResponse(version.Minecraft_1_12_2.Protocol, req, []string{"lobby"})
	assert.Zero(t, legacy.Start)
	assert.Zero(t, legacy.Length)
	assert.Len(t, legacy.Offers, 1)
}

func TestTabCompleteResponse_UTF16Range(t *testing.T) {
	req := &packet.TabCompleteRequest{Command: "/msg Jürgen 😀x"}
	res := tabCompleteResponse(version.Minecraft_1_13.Protocol, req, []string{"😀xyz"})
	assert.Equal(t, 12, res.Start)
	assert.Equal(t, 3, res.Length)
}

func TestRewriteChat(t *testing.T) {
	legacy := rewriteChat(&chat.LegacyChat{Message: "hello"}, "bye")
	require.IsType(t, &chat.LegacyChat{}, legacy)
	assert.Equal(t, "bye", legacy.(*chat.LegacyChat).Message)

	unsigned := rewriteChat(&chat.SessionPlayerChat{Message: "hello"}, "bye")
	require.IsType(t, &chat.SessionPlayerChat{}, unsigned)
	assert.Equal(t, "bye", unsigned.(*chat.SessionPlayerChat).Message)

	signed := &chat.SessionPlayerChat{Message: "hello", Signature: make([]byte, 256)}
	assert.Nil(t, rewriteChat(signed, "bye"))

	cmd := rewriteChat(&chat.UnsignedPlayerCommand{Command: "spawn"}, "/hub")
	require.IsType(t, &chat.UnsignedPlayerCommand{}, cmd)
	assert.Equal(t, "hub", cmd.(*chat.UnsignedPlayerCommand).Command)
}

func TestSession_ForgeHandshake(t *testing.T) {
	hello := &plugin.Message{Channel: forge.LegacyHandshakeChannel, Data: []byte{forge.ClientHelloDiscriminator, 2}}

	t.Run("consumed with forge support", func(t *testing.T) {
		p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
		s, _ := newConnectedSession(t, p, version.Minecraft_1_12_2.Protocol)
		_, backend := newLinkedBackend(t, s, "lobby")

		fired := false
		event.Subscribe(p.Event(), 0, func(*PluginMessageEvent) { fired = true })

		assert.Equal(t, Suppress, s.handleClientPluginMessage(hello))
		assert.False(t, fired)
		require.Len(t, backend.written(), 1, "the handshake continues with the backend")
		assert.Same(t, hello, backend.written()[0])

		race := &plugin.Message{Channel: forge.LegacyChannel, Data: []byte{1, 0}}
		assert.Equal(t, Suppress, s.handleClientPluginMessage(race))
		assert.Len(t, backend.written(), 1)
	})

	t.Run("relayed without forge support", func(t *testing.T) {
		p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
		p.config().ForgeSupport = false
		s, _ := newConnectedSession(t, p, version.Minecraft_1_12_2.Protocol)
		newLinkedBackend(t, s, "lobby")

		var channels []string
		event.Subscribe(p.Event(), 0, func(e *PluginMessageEvent) { channels = append(channels, e.Channel()) })

		assert.Equal(t, Forward, s.handleClientPluginMessage(hello))
		assert.Equal(t, Forward, s.handleClientPluginMessage(&plugin.Message{Channel: forge.LegacyChannel, Data: []byte{1}}))
		assert.Equal(t, []string{forge.LegacyHandshakeChannel, forge.LegacyChannel}, channels)
		assert.False(t, s.forge.ResetNeeded(), "the handshake is not tracked")
	})
}

func TestSession_OversizedPluginMessage(t *testing.T) {
	big := &plugin.Message{Channel: "mod:big", Data: bytes.Repeat([]byte{1}, maxPluginMessageSize+1)}

	t.Run("dropped for vanilla backend", func(t *testing.T) {
		p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
		s, _ := newConnectedSession(t, p, version.Minecraft_1_12_2.Protocol)
		newLinkedBackend(t, s, "lobby")

		// A modded client does not change what the backend accepts.
		mods := &plugin.Message{Channel: forge.LegacyHandshakeChannel, Data: []byte{forge.ModListDiscriminator, 0}}
		assert.Equal(t, Suppress, s.handleClientPluginMessage(mods))
		require.True(t, s.forge.Modded())

		assert.Equal(t, Suppress, s.handleClientPluginMessage(big))
	})

	t.Run("relayed to forge backend", func(t *testing.T) {
		p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
		s, _ := newConnectedSession(t, p, version.Minecraft_1_12_2.Protocol)
		l, _ := newLinkedBackend(t, s, "lobby")

		l.observeForge(&plugin.Message{Channel: forge.LegacyHandshakeChannel, Data: []byte{forge.ServerHelloDiscriminator, 2}})
		require.True(t, l.forge)
		assert.Same(t, l, s.forgeLink)

		assert.Equal(t, Forward, s.handleClientPluginMessage(big))
	})

	t.Run("relayed without forge support", func(t *testing.T) {
		p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
		p.config().ForgeSupport = false
		s, _ := newConnectedSession(t, p, version.Minecraft_1_12_2.Protocol)
		newLinkedBackend(t, s, "lobby")

		assert.Equal(t, Forward, s.handleClientPluginMessage(big))
	})
}

func TestSession_RegisterLimits(t *testing.T) {
	register := func(channels string) *plugin.Message {
		return &plugin.Message{Channel: plugin.RegisterChannel, Data: []byte(channels)}
	}

	t.Run("channel name length", func(t *testing.T) {
		p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
		p.config().PluginChannelNameLimit = 12
		s, conn := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)

		assert.Equal(t, Forward, s.handleClientPluginMessage(register("xenon:a")))
		assert.Equal(t, SuppressAndClose, s.handleClientPluginMessage(register("xenon:b\x00xenon:too_long")))
		assert.True(t, s.Closed())
		require.NotEmpty(t, conn.written())
		assert.IsType(t, &packet.Disconnect{}, conn.written()[0])
	})

	t.Run("channel count", func(t *testing.T) {
		p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
		p.config().PluginChannelLimit = 2
		s, _ := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)

		assert.Equal(t, Forward, s.handleClientPluginMessage(register("xenon:a\x00xenon:b")))
		assert.Equal(t, 2, s.channels.Len())
		assert.Equal(t, Forward, s.handleClientPluginMessage(&plugin.Message{
			Channel: plugin.UnregisterChannel, Data: []byte("xenon:b"),
		}))
		assert.Equal(t, Forward, s.handleClientPluginMessage(register("xenon:c")))
		assert.Equal(t, SuppressAndClose, s.handleClientPluginMessage(register("xenon:d")))
		assert.True(t, s.Closed())
	})
}
