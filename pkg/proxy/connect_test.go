package proxy

import (
	"testing"

	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

func TestSession_Admit(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	s := newTestSession(p)
	lobby := p.Server("lobby")

	res, ok := s.admit(lobby)
	require.True(t, ok)
	assert.Equal(t, Success, res)

	res, ok = s.admit(lobby)
	require.False(t, ok)
	assert.Equal(t, AlreadyConnecting, res)
	assert.Equal(t, "already_connecting", res.String())
}

func TestSession_AdmitAlreadyConnected(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	s := newTestSession(p)
	lobby := p.Server("lobby")
	s.current.Store(lobby)
	s.backend = &backendLink{session: s, server: lobby}

	res, ok := s.admit(lobby)
	require.False(t, ok)
	assert.Equal(t, AlreadyConnected, res)
	assert.Empty(t, s.pendingConnects)
}

func TestSession_NextFallback(t *testing.T) {
	servers := map[string]string{
		"s1": "localhost:25565",
		"s2": "localhost:25566",
		"s3": "localhost:25567",
	}

	t.Run("next in order", func(t *testing.T) {
		p := newTestProxy(t, servers, "s1", "s2", "s3")
		s := newTestSession(p)
		next := s.nextFallback(p.Server("s1"))
		require.NotNil(t, next)
		assert.Equal(t, "s2", next.Name())
	})

	t.Run("skips current server", func(t *testing.T) {
		p := newTestProxy(t, servers, "s1", "s2", "s3")
		s := newTestSession(p)
		s.current.Store(p.Server("s2"))
		next := s.nextFallback(p.Server("s1"))
		require.NotNil(t, next)
		assert.Equal(t, "s3", next.Name())
	})

	t.Run("consumes the list", func(t *testing.T) {
		p := newTestProxy(t, servers, "s1", "s2")
		s := newTestSession(p)
		require.NotNil(t, s.nextFallback(nil))
		require.NotNil(t, s.nextFallback(nil))
		assert.Nil(t, s.nextFallback(nil))
	})
}

func TestConnectReason_String(t *testing.T) {
	assert.Equal(t, "lobby_fallback", LobbyFallback.String())
	assert.Equal(t, "command", CommandConnect.String())
}

type connectOutcome struct {
	res ConnectResult
	err error
}

func recordOutcome(ch chan connectOutcome) func(ConnectResult, error) {
	return func(res ConnectResult, err error) { ch <- connectOutcome{res, err} }
}

// failConnect registers a pending connect of s to server and fails it on the executor.
func failConnect(t *testing.T, s *Session, req *ConnectRequest) {
	t.Helper()
	require.NoError(t, s.exec().Run(func() {
		_, ok := s.admit(req.Target)
		assert.True(t, ok)
		l := newBackendLink(s, req.Target, req)
		s.pendingConnects[pendingKey(req.Target)] = l
		s.connectFailed(l, errConnectTimeout, nil)
	}))
}

func TestSession_InitialConnectFailureDisconnects(t *testing.T) {
	p := newTestProxy(t, map[string]string{"s1": "localhost:25565"}, "s1")
	s, conn := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)

	done := make(chan connectOutcome, 1)
	failConnect(t, s, &ConnectRequest{
		Target:   p.Server("s1"),
		Retry:    true,
		Reason:   JoinProxy,
		Callback: recordOutcome(done),
	})

	out := waitFor(t, done)
	assert.Equal(t, Fail, out.res)
	assert.ErrorIs(t, out.err, errConnectTimeout)
	assert.True(t, s.Closed())
	written := conn.written()
	require.NotEmpty(t, written)
	assert.IsType(t, &packet.Disconnect{}, written[len(written)-1])
}

func TestSession_SwitchFailureKeepsBackend(t *testing.T) {
	p := newTestProxy(t, map[string]string{
		"s1": "localhost:25565",
		"s2": "localhost:25566",
	}, "s1")
	s, conn := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)
	current, _ := newLinkedBackend(t, s, "s1")

	done := make(chan connectOutcome, 1)
	failConnect(t, s, &ConnectRequest{
		Target:   p.Server("s2"),
		Reason:   CommandConnect,
		Callback: recordOutcome(done),
	})

	out := waitFor(t, done)
	assert.Equal(t, Fail, out.res)
	assert.False(t, s.Closed())
	assert.Same(t, current, s.backend)
	written := conn.written()
	require.Len(t, written, 1, "the failure is reported in chat")
	_, kicked := written[0].(*packet.Disconnect)
	assert.False(t, kicked)
	assert.Empty(t, s.pendingConnects)
}

func TestSession_ConnectFailureTriesFallback(t *testing.T) {
	p := newTestProxy(t, map[string]string{
		"s1": "localhost:25565",
		"s2": "localhost:25566",
	}, "s1", "s2")
	s, _ := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)

	attempts := make(chan *ServerConnectEvent, 1)
	event.Subscribe(p.Event(), 0, func(e *ServerConnectEvent) {
		// Stop the chain here, there is no server to dial.
		e.SetCancelled(true)
		attempts <- e
	})

	done := make(chan connectOutcome, 1)
	failConnect(t, s, &ConnectRequest{
		Target:   p.Server("s1"),
		Retry:    true,
		Reason:   JoinProxy,
		Callback: recordOutcome(done),
	})

	e := waitFor(t, attempts)
	assert.Equal(t, "s2", e.Target().Name())
	assert.Equal(t, LobbyFallback, e.Reason())
	assert.Equal(t, EventCancel, waitFor(t, done).res)
}

func TestSession_ConnectCancelled(t *testing.T) {
	p := newTestProxy(t, map[string]string{
		"s1": "localhost:25565",
		"s2": "localhost:25566",
	}, "s1")

	t.Run("without backend", func(t *testing.T) {
		s, conn := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)
		done := make(chan connectOutcome, 1)
		req := &ConnectRequest{Target: p.Server("s1"), Callback: recordOutcome(done)}
		e := &ServerConnectEvent{player: s, target: req.Target, cancelled: true}

		require.NoError(t, s.exec().Run(func() { s.connect(req, e) }))
		assert.Equal(t, EventCancel, waitFor(t, done).res)
		assert.True(t, s.Closed())
		require.NotEmpty(t, conn.written())
		assert.IsType(t, &packet.Disconnect{}, conn.written()[0])
	})

	t.Run("with backend", func(t *testing.T) {
		s, _ := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)
		newLinkedBackend(t, s, "s1")
		done := make(chan connectOutcome, 1)
		req := &ConnectRequest{Target: p.Server("s2"), Callback: recordOutcome(done)}
		e := &ServerConnectEvent{player: s, target: req.Target, cancelled: true}

		require.NoError(t, s.exec().Run(func() { s.connect(req, e) }))
		assert.Equal(t, EventCancel, waitFor(t, done).res)
		assert.False(t, s.Closed())
		assert.Empty(t, s.pendingConnects)
	})
}

func TestSession_ConnectAlreadyConnecting(t *testing.T) {
	p := newTestProxy(t, map[string]string{"s1": "localhost:25565"}, "s1")
	s, conn := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)
	target := p.Server("s1")
	s.pendingConnects[pendingKey(target)] = nil

	done := make(chan connectOutcome, 1)
	req := &ConnectRequest{Target: target, SendFeedback: true, Callback: recordOutcome(done)}
	e := &ServerConnectEvent{player: s, target: target}
	require.NoError(t, s.exec().Run(func() { s.connect(req, e) }))

	assert.Equal(t, AlreadyConnecting, waitFor(t, done).res)
	assert.Len(t, conn.written(), 1, "feedback is sent")
	assert.False(t, s.Closed())
}

func TestSession_SetCompressionOnce(t *testing.T) {
	p := newTestProxy(t, map[string]string{"s1": "localhost:25565"}, "s1")
	s, _ := newConnectedSession(t, p, version.Minecraft_1_20_5.Protocol)

	assert.EqualValues(t, -1, s.compression.Load())
	assert.True(t, s.setCompression(256))
	assert.False(t, s.setCompression(64))
	assert.EqualValues(t, 256, s.compression.Load())
}
