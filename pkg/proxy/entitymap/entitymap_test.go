package entitymap

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

func payload(id int, write func(b *bytes.Buffer)) []byte {
	b := new(bytes.Buffer)
	_ = util.WriteVarInt(b, id)
	write(b)
	return b.Bytes()
}

func TestForProtocol(t *testing.T) {
	assert.NotNil(t, ForProtocol(version.Minecraft_1_8.Protocol))
	assert.Nil(t, ForProtocol(version.Minecraft_1_20_5.Protocol))
}

func TestRewriteClientBound_VarInt(t *testing.T) {
	table := ForProtocol(version.Minecraft_1_8.Protocol)
	// entity velocity of the player on the backend (id 300) becomes the client's id 7
	in := payload(0x12, func(b *bytes.Buffer) {
		_ = util.WriteVarInt(b, 300)
		_ = util.WriteInt16(b, 1)
	})
	out := table.RewriteClientBound(in, 300, 7)
	want := payload(0x12, func(b *bytes.Buffer) {
		_ = util.WriteVarInt(b, 7)
		_ = util.WriteInt16(b, 1)
	})
	assert.Equal(t, want, out)

	// an unrelated entity keeps its id, the client's id is swapped back
	other := payload(0x12, func(b *bytes.Buffer) { _ = util.WriteVarInt(b, 7) })
	assert.Equal(t, payload(0x12, func(b *bytes.Buffer) { _ = util.WriteVarInt(b, 300) }),
		table.RewriteClientBound(other, 300, 7))
}

func TestRewriteClientBound_Int(t *testing.T) {
	table := ForProtocol(version.Minecraft_1_8.Protocol)
	in := payload(0x1A, func(b *bytes.Buffer) {
		_ = util.WriteInt(b, 300)
		_ = util.WriteByte(b, 9)
	})
	out := table.RewriteClientBound(in, 300, 7)
	require.Len(t, out, len(in))
	assert.Equal(t, int32(7), int32(binary.BigEndian.Uint32(out[1:])))
	assert.Equal(t, byte(9), out[5])
	assert.Equal(t, int32(300), int32(binary.BigEndian.Uint32(in[1:])), "input must not be modified")
}

func TestRewriteClientBound_DestroyEntities(t *testing.T) {
	table := ForProtocol(version.Minecraft_1_8.Protocol)
	in := payload(0x13, func(b *bytes.Buffer) {
		_ = util.WriteVarInt(b, 3)
		for _, id := range []int{1, 300, 2} {
			_ = util.WriteVarInt(b, id)
		}
	})
	want := payload(0x13, func(b *bytes.Buffer) {
		_ = util.WriteVarInt(b, 3)
		for _, id := range []int{1, 7, 2} {
			_ = util.WriteVarInt(b, id)
		}
	})
	assert.Equal(t, want, table.RewriteClientBound(in, 300, 7))
}

func TestRewriteServerBound(t *testing.T) {
	table := ForProtocol(version.Minecraft_1_8.Protocol)
	in := payload(0x0B, func(b *bytes.Buffer) {
		_ = util.WriteVarInt(b, 7)
		_ = util.WriteVarInt(b, 0)
	})
	want := payload(0x0B, func(b *bytes.Buffer) {
		_ = util.WriteVarInt(b, 300)
		_ = util.WriteVarInt(b, 0)
	})
	assert.Equal(t, want, table.RewriteServerBound(in, 7, 300))

	unknown := payload(0x01, func(b *bytes.Buffer) { _ = util.WriteVarInt(b, 7) })
	assert.Equal(t, unknown, table.RewriteServerBound(unknown, 7, 300))
}

func TestNilTable(t *testing.T) {
	var table *Table
	in := []byte{0x12, 0x01}
	assert.Equal(t, in, table.RewriteClientBound(in, 1, 2))
}
