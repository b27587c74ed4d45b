package codec

import (
	"bytes"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/common/minecraft/component"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

func newPair(t *testing.T, s *state.Registry, protocol *proto.Version) (*bytes.Buffer, *Encoder, func() *Decoder) {
	t.Helper()
	buf := new(bytes.Buffer)
	enc := NewEncoder(buf, proto.ClientBound, logr.Discard())
	enc.SetState(s)
	enc.SetProtocol(protocol.Protocol)
	return buf, enc, func() *Decoder {
		dec := NewDecoder(buf, proto.ClientBound, logr.Discard())
		dec.SetState(s)
		dec.SetProtocol(protocol.Protocol)
		return dec
	}
}

func TestEncodeDecode(t *testing.T) {
	_, enc, newDec := newPair(t, state.Play, version.Minecraft_1_20_5)
	_, err := enc.WritePacket(&packet.KeepAlive{RandomID: 42})
	require.NoError(t, err)

	ctx, err := newDec().Decode()
	require.NoError(t, err)
	require.True(t, ctx.KnownPacket())
	assert.Equal(t, proto.PacketID(0x26), ctx.PacketID)
	assert.Equal(t, int64(42), ctx.Packet.(*packet.KeepAlive).RandomID)
}

func TestCompression(t *testing.T) {
	_, enc, newDec := newPair(t, state.Play, version.Minecraft_1_12_2)
	require.NoError(t, enc.SetCompression(64, -1))

	big := &packet.Disconnect{Reason: packet.FromComponent(textOf(strings.Repeat("a", 500)))}
	small := &packet.KeepAlive{RandomID: 7}
	_, err := enc.WritePacket(big)
	require.NoError(t, err)
	_, err = enc.WritePacket(small)
	require.NoError(t, err)

	dec := newDec()
	dec.SetCompressionThreshold(64)
	ctx, err := dec.Decode()
	require.NoError(t, err)
	assert.IsType(t, &packet.Disconnect{}, ctx.Packet)
	ctx, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, int64(7), ctx.Packet.(*packet.KeepAlive).RandomID)
}

func TestUnknownPacketIsRelayed(t *testing.T) {
	buf, _, newDec := newPair(t, state.Play, version.Minecraft_1_20_5)
	payload := []byte{0x7A, 1, 2, 3}
	require.NoError(t, util.WriteVarInt(buf, len(payload)))
	buf.Write(payload)

	ctx, err := newDec().Decode()
	require.NoError(t, err)
	assert.False(t, ctx.KnownPacket())
	assert.Equal(t, payload, ctx.Payload)
}

func TestDecoderLeftBytes(t *testing.T) {
	buf, _, newDec := newPair(t, state.Play, version.Minecraft_1_20_5)
	payload := new(bytes.Buffer)
	_ = util.WriteVarInt(payload, 0x26)
	_ = util.WriteInt64(payload, 1)
	payload.WriteString("extra")
	_ = util.WriteVarInt(buf, payload.Len())
	buf.Write(payload.Bytes())

	ctx, err := newDec().Decode()
	assert.ErrorIs(t, err, proto.ErrDecoderLeftBytes)
	require.NotNil(t, ctx)
	assert.IsType(t, &packet.KeepAlive{}, ctx.Packet)
}

func TestReadFrame_ThenDecodeWithNewState(t *testing.T) {
	buf := new(bytes.Buffer)
	enc := NewEncoder(buf, proto.ServerBound, logr.Discard())
	enc.SetState(state.Login)
	enc.SetProtocol(version.Minecraft_1_20_2.Protocol)
	_, err := enc.WritePacket(&packet.LoginAcknowledged{})
	require.NoError(t, err)
	enc.SetState(state.Config)
	_, err = enc.WritePacket(&packet.KeepAlive{RandomID: 5})
	require.NoError(t, err)

	dec := NewDecoder(buf, proto.ServerBound, logr.Discard())
	dec.SetState(state.Login)
	dec.SetProtocol(version.Minecraft_1_20_2.Protocol)

	f, err := dec.ReadFrame()
	require.NoError(t, err)
	next, err := dec.ReadFrame()
	require.NoError(t, err)

	ctx, err := dec.DecodeFrame(f)
	require.NoError(t, err)
	assert.IsType(t, &packet.LoginAcknowledged{}, ctx.Packet)

	dec.SetState(state.Config)
	ctx, err = dec.DecodeFrame(next)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ctx.Packet.(*packet.KeepAlive).RandomID)
}

func TestLegacyPing(t *testing.T) {
	for name, tc := range map[string]struct {
		data    []byte
		version packet.LegacyPingVersion
	}{
		"beta": {[]byte{0xFE}, packet.LegacyPingBeta},
		"1.4":  {[]byte{0xFE, 0x01}, packet.LegacyPing1_4},
		"1.6":  {[]byte{0xFE, 0x01, 0xFA, 0x00, 0x0B}, packet.LegacyPing1_6},
	} {
		t.Run(name, func(t *testing.T) {
			dec := NewDecoder(bytes.NewReader(tc.data), proto.ServerBound, logr.Discard())
			ctx, err := dec.Decode()
			require.NoError(t, err)
			ping, ok := ctx.Packet.(*packet.LegacyPing)
			require.True(t, ok)
			assert.Equal(t, tc.version, ping.Version)
		})
	}
}

func TestHandshakeIsNotLegacyPing(t *testing.T) {
	buf := new(bytes.Buffer)
	enc := NewEncoder(buf, proto.ServerBound, logr.Discard())
	_, err := enc.WritePacket(&packet.Handshake{ProtocolVersion: 767, ServerAddress: "localhost", Port: 25565, NextStatus: 1})
	require.NoError(t, err)

	ctx, err := NewDecoder(buf, proto.ServerBound, logr.Discard()).Decode()
	require.NoError(t, err)
	assert.Equal(t, "localhost", ctx.Packet.(*packet.Handshake).ServerAddress)
}

func TestCipher(t *testing.T) {
	secret := make([]byte, 16)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	w, err := NewEncryptWriter(buf, secret)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello encrypted world"))
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "hello")

	r, err := NewDecryptReader(buf, secret)
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello encrypted world", string(plain))
}

func TestInvalidFrameLength(t *testing.T) {
	buf := new(bytes.Buffer)
	_ = util.WriteVarInt(buf, maxFrameLength+1)
	dec := NewDecoder(buf, proto.ServerBound, logr.Discard())
	dec.SetState(state.Play)
	_, err := dec.Decode()
	assert.Error(t, err)
}

func textOf(s string) *component.Text { return &component.Text{Content: s} }
