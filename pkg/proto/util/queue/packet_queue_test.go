package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/chat"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

type sink struct {
	written []any
	flushes int
}

func (s *sink) BufferPacket(p proto.Packet) error { s.written = append(s.written, p); return nil }
func (s *sink) BufferPayload(b []byte) error      { s.written = append(s.written, b); return nil }
func (s *sink) Flush() error                      { s.flushes++; return nil }

func TestPlayPacketQueue(t *testing.T) {
	q := NewPlayPacketQueue(version.Minecraft_1_20_5.Protocol, proto.ClientBound)

	assert.False(t, q.Queue(&packet.KeepAlive{}), "keep-alive exists in config state")
	sys := &chat.SystemChat{}
	assert.True(t, q.Queue(sys))
	q.QueuePayload([]byte{0x01, 0x02})
	assert.Equal(t, 2, q.Len())

	s := new(sink)
	require.NoError(t, q.ReleaseQueue(s))
	require.Len(t, s.written, 2)
	assert.Same(t, sys, s.written[0])
	assert.Equal(t, []byte{0x01, 0x02}, s.written[1])
	assert.Equal(t, 1, s.flushes)
	assert.Zero(t, q.Len())

	require.NoError(t, q.ReleaseQueue(s))
	assert.Equal(t, 1, s.flushes, "empty queue must not flush")
}

func TestPlayPacketQueue_Nil(t *testing.T) {
	var q *PlayPacketQueue
	assert.False(t, q.Queue(&packet.KeepAlive{}))
	assert.NoError(t, q.ReleaseQueue(new(sink)))
}
