package proxy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

func TestBackendLink_AnswerKeepAlive(t *testing.T) {
	l := &backendLink{}
	sent := time.Unix(1000, 0)
	l.recordKeepAlive(42, sent)
	l.recordKeepAlive(43, sent.Add(time.Second))

	_, ok := l.answerKeepAlive(43, sent.Add(time.Second))
	require.False(t, ok, "only the oldest keep-alive may be answered")
	assert.Equal(t, 2, l.keepAlives.Len())

	d, ok := l.answerKeepAlive(42, sent.Add(50*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, d)

	d, ok = l.answerKeepAlive(43, sent.Add(1100*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 100*time.Millisecond, d)

	_, ok = l.answerKeepAlive(44, sent)
	assert.False(t, ok)
}

func TestBungeeForwardingHost(t *testing.T) {
	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")

	host, err := bungeeForwardingHost("play.example.com", "10.0.0.7", id, nil)
	require.NoError(t, err)
	assert.Equal(t, "play.example.com\x0010.0.0.7\x00069a79f444e94726a5befca90e38aaf5", host)

	host, err = bungeeForwardingHost("play.example.com", "10.0.0.7", id, []profile.Property{
		{Name: "textures", Value: "abc", Signature: "sig"},
	})
	require.NoError(t, err)
	parts := strings.Split(host, "\x00")
	require.Len(t, parts, 4)
	assert.JSONEq(t, `[{"name":"textures","value":"abc","signature":"sig"}]`, parts[3])
}

func TestBackendLink_Finish(t *testing.T) {
	p := newTestProxy(t, map[string]string{"lobby": "localhost:25565"}, "lobby")
	s := newTestSession(p)
	lobby := p.Server("lobby")

	_, ok := s.admit(lobby)
	require.True(t, ok)
	l := newBackendLink(s, lobby, &ConnectRequest{Target: lobby})
	s.pendingConnects[pendingKey(lobby)] = l

	require.True(t, l.finish())
	assert.Empty(t, s.pendingConnects)
	assert.False(t, l.finish())
}
