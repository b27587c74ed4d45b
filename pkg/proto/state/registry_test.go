package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/chat"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

func TestPacketID(t *testing.T) {
	tests := []struct {
		registry *PacketRegistry
		protocol *proto.Version
		packet   proto.Packet
		id       proto.PacketID
	}{
		{Play.ServerBound, version.Minecraft_1_8, &packet.KeepAlive{}, 0x00},
		{Play.ServerBound, version.Minecraft_1_12_2, &packet.KeepAlive{}, 0x0B},
		{Play.ServerBound, version.Minecraft_1_21, &packet.KeepAlive{}, 0x18},
		{Play.ClientBound, version.Minecraft_1_16_4, &plugin.Message{}, 0x17},
		{Play.ClientBound, version.Minecraft_1_20_3, &chat.SystemChat{}, 0x69},
		{Config.ClientBound, version.Minecraft_1_20_2, &packet.Disconnect{}, 0x01},
		{Config.ClientBound, version.Minecraft_1_20_5, &packet.Disconnect{}, 0x02},
		{Login.ClientBound, version.Minecraft_1_19, &packet.LoginPluginMessage{}, 0x04},
	}
	for _, tt := range tests {
		id, ok := tt.registry.ProtocolRegistry(tt.protocol.Protocol).PacketID(tt.packet)
		require.True(t, ok, "%T at %s", tt.packet, tt.protocol)
		assert.Equal(t, tt.id, id, "%T at %s", tt.packet, tt.protocol)
	}
}

func TestLastValidVersion(t *testing.T) {
	_, ok := Play.ServerBound.ProtocolRegistry(version.Minecraft_1_18_2.Protocol).PacketID(&chat.LegacyChat{})
	assert.True(t, ok)
	_, ok = Play.ServerBound.ProtocolRegistry(version.Minecraft_1_19.Protocol).PacketID(&chat.LegacyChat{})
	assert.False(t, ok)

	_, ok = Play.ServerBound.ProtocolRegistry(version.Minecraft_1_19_1.Protocol).PacketID(&chat.KeyedPlayerChat{})
	assert.True(t, ok)
	_, ok = Play.ServerBound.ProtocolRegistry(version.Minecraft_1_19_3.Protocol).PacketID(&chat.KeyedPlayerChat{})
	assert.False(t, ok)

	_, ok = Play.ClientBound.ProtocolRegistry(version.Minecraft_1_20_2.Protocol).PacketID(&packet.JoinGame{})
	assert.False(t, ok)
}

func TestCreatePacket(t *testing.T) {
	r := FromDirection(proto.ServerBound, Handshake, version.Minecraft_1_21.Protocol)
	assert.IsType(t, &packet.Handshake{}, r.CreatePacket(0x00))
	assert.Nil(t, r.CreatePacket(0x7f))
}

func TestFallback(t *testing.T) {
	// unknown protocols use the minimum version in states without version changes
	assert.NotNil(t, Handshake.ServerBound.ProtocolRegistry(4))
	assert.Nil(t, Play.ServerBound.ProtocolRegistry(4))
}

func TestRegister_Conflicts(t *testing.T) {
	r := NewPacketRegistry(proto.ServerBound)
	r.Register(&packet.KeepAlive{}, m(0x00, version.Minecraft_1_8))
	assert.Panics(t, func() { r.Register(&packet.StatusPing{}, m(0x00, version.Minecraft_1_8)) })
	assert.Panics(t, func() { r.Register(&packet.KeepAlive{}, m(0x01, version.Minecraft_1_20)) })
	assert.Panics(t, func() {
		r.Register(&packet.Transfer{}, m(0x02, version.Minecraft_1_12), m(0x03, version.Minecraft_1_9))
	})
}

func TestByState(t *testing.T) {
	for _, s := range []State{HandshakeState, StatusState, LoginState, ConfigState, PlayState} {
		assert.Equal(t, s, ByState(s).State)
	}
	assert.Equal(t, "Config", ConfigState.String())
}
