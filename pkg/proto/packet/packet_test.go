package packet_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/key"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/chat"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/config"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/cookie"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
	"github.com/xenoncommunity/xenon/pkg/util/profile"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

var testUUID = uuid.MustParse(`123e4567-e89b-12d3-a456-426614174000`)

// Packets without length constraints are filled with fake data at runtime.
var faked = []proto.Packet{
	&packet.KeepAlive{},
	&packet.StatusPing{},
	&packet.SetCompression{},
	&packet.LoginPluginMessage{},
	&packet.LoginPluginResponse{},
	&packet.Transfer{},
	&chat.ChatAcknowledgement{},
}

// Packets valid in all supported versions.
var packets = []proto.Packet{
	&plugin.Message{Channel: "minecraft:brand", Data: []byte("\x07vanilla")},
	&packet.ClientSettings{Locale: "en_US", ViewDistance: 12, ChatColors: true, SkinParts: 0x7f, MainHand: 1},
	&packet.Disconnect{Reason: packet.FromComponent(&component.Text{Content: "kicked"})},
	&packet.LoginDisconnect{Reason: packet.FromComponent(&component.Text{Content: "bye"})},
	&packet.Handshake{ProtocolVersion: 47, ServerAddress: "play.example.com", Port: 25565, NextStatus: packet.LoginIntent},
	&packet.ServerLogin{Username: "Notch", HolderID: testUUID},
	&packet.EncryptionRequest{ServerID: "", PublicKey: []byte("pubkey"), VerifyToken: []byte{1, 2, 3, 4}, ShouldAuthenticate: true},
	&packet.EncryptionResponse{SharedSecret: []byte("secret"), VerifyToken: []byte{1, 2, 3, 4}},
	&packet.ServerLoginSuccess{UUID: testUUID, Username: "Notch", Properties: []profile.Property{{Name: "textures", Value: "v", Signature: "s"}}},
	&packet.StatusRequest{},
	&packet.StatusResponse{Status: `{"version":{"name":"Xenon","protocol":47}}`},
	&packet.TabCompleteRequest{Command: "/server lo", TransactionID: 3, HasPosition: true, Position: 42},
	&packet.TabCompleteResponse{TransactionID: 3, Start: 8, Length: 2, Offers: []packet.TabCompleteOffer{
		{Text: "lobby"},
		{Text: "lobby2", Tooltip: packet.FromComponent(&component.Text{Content: "second lobby"})},
	}},
	&chat.LegacyChat{Message: "hello", Type: chat.SystemMessageType},
}

func init() {
	for _, p := range faked {
		if err := faker.FakeData(p); err != nil {
			panic(fmt.Sprintf("error fake %T: %v", p, err))
		}
	}
}

func TestPackets(t *testing.T) {
	all := append(append([]proto.Packet{}, faked...), packets...)
	PacketCodings(t,
		[]proto.Direction{proto.ServerBound, proto.ClientBound},
		vRange(version.MinimumVersion, version.MaximumVersion),
		all...)
}

func TestWorldPackets(t *testing.T) {
	registry, err := util.JsonToBinaryTag([]byte(`{"minecraft:dimension_type":{"type":"minecraft:dimension_type"}}`))
	require.NoError(t, err)
	info := &packet.DimensionInfo{RegistryIdentifier: "minecraft:overworld", LevelName: "minecraft:overworld"}
	PacketCodings(t,
		[]proto.Direction{proto.ClientBound},
		vRange(version.MinimumVersion, version.Minecraft_1_20),
		&packet.JoinGame{
			EntityID:          7,
			Gamemode:          1,
			LevelNames:        []string{"minecraft:overworld"},
			Registry:          registry,
			DimensionData:     registry,
			DimensionInfo:     info,
			PartialHashedSeed: 99,
			MaxPlayers:        20,
			LevelType:         "default",
			ViewDistance:      10,
			SimulationDist:    8,
			ShowRespawnScreen: true,
			PortalCooldown:    5,
		},
		&packet.Respawn{
			Dimension:            -1,
			Gamemode:             2,
			LevelType:            "flat",
			DataToKeep:           1,
			DimensionInfo:        info,
			CurrentDimensionData: registry,
			LastDeathPosition:    &packet.DeathPosition{Key: "minecraft:the_nether", Value: 1234},
		},
	)
}

func TestChatPackets(t *testing.T) {
	sig := bytes.Repeat([]byte{0xab}, 256)
	PacketCodings(t,
		[]proto.Direction{proto.ServerBound},
		vRange(version.Minecraft_1_19, version.Minecraft_1_19_1),
		&chat.KeyedPlayerChat{Message: "hi", Timestamp: 1, Salt: 2, Signature: []byte("sig"),
			LastSeen: chat.KeyedLastSeen{
				Previous: []chat.SignaturePair{{Signer: testUUID, Signature: []byte("a")}},
				Last:     &chat.SignaturePair{Signer: testUUID, Signature: []byte("b")},
			}},
		&chat.KeyedPlayerCommand{Command: "server lobby", Timestamp: 1, Salt: 2,
			Arguments: []chat.ArgumentSignature{{Name: "server", Signature: []byte("x")}}},
	)
	PacketCodings(t,
		[]proto.Direction{proto.ServerBound},
		vRange(version.Minecraft_1_19_3, version.MaximumVersion),
		&chat.SessionPlayerChat{Message: "hi", Timestamp: 1, Salt: 2, Signature: sig,
			LastSeen: chat.LastSeenMessages{Offset: 2, Acknowledged: [3]byte{1, 0, 8}}},
		&chat.SessionPlayerChat{Message: "unsigned"},
		&chat.SessionPlayerCommand{Command: "glist", Arguments: []chat.ArgumentSignature{{Name: "a", Signature: sig}}},
		&chat.UnsignedPlayerCommand{Command: "xenon reload"},
	)
	PacketCodings(t,
		[]proto.Direction{proto.ClientBound},
		vRange(version.Minecraft_1_19, version.MaximumVersion),
		chat.NewSystemChat(&component.Text{Content: "system"}),
		&chat.SystemChat{Component: packet.FromComponent(&component.Text{Content: "bar"}), Type: chat.GameInfoMessageType},
	)
}

func TestCookiePackets(t *testing.T) {
	k := key.New("xenon", "session")
	PacketCodings(t,
		[]proto.Direction{proto.ServerBound, proto.ClientBound},
		vRange(version.Minecraft_1_20_5, version.MaximumVersion),
		&cookie.Request{Key: k},
		&cookie.Response{Key: k, Payload: []byte("data")},
		&cookie.Response{Key: k},
		&cookie.Store{Key: k, Payload: []byte("data")},
		&config.StartUpdate{},
		&config.AcknowledgeConfiguration{},
		&config.FinishedUpdate{},
		&packet.LoginAcknowledged{},
	)
}

func TestCookieResponse_PayloadTooLarge(t *testing.T) {
	c := &proto.PacketContext{Direction: proto.ServerBound, Protocol: version.Minecraft_1_20_5.Protocol}
	buf := new(bytes.Buffer)
	p := &cookie.Response{Key: key.New("xenon", "big"), Payload: make([]byte, cookie.MaxPayloadSize+1)}
	require.NoError(t, p.Encode(c, buf))
	assert.Error(t, new(cookie.Response).Decode(c, buf))
}

func TestCookieResponse_MissingPayload(t *testing.T) {
	c := &proto.PacketContext{Direction: proto.ServerBound, Protocol: version.Minecraft_1_20_5.Protocol}
	buf := new(bytes.Buffer)
	require.NoError(t, (&cookie.Response{Key: key.New("xenon", "a")}).Encode(c, buf))
	got := &cookie.Response{Payload: []byte("stale")}
	require.NoError(t, got.Decode(c, buf))
	assert.Nil(t, got.Payload)
	assert.Equal(t, "xenon:a", got.Key.String())
}

func TestServerLogin_EmptyUsername(t *testing.T) {
	c := &proto.PacketContext{Direction: proto.ServerBound, Protocol: version.Minecraft_1_8.Protocol}
	buf := new(bytes.Buffer)
	require.NoError(t, util.WriteString(buf, ""))
	assert.Error(t, new(packet.ServerLogin).Decode(c, buf))
}

func TestRespawnFromJoinGame(t *testing.T) {
	info := &packet.DimensionInfo{RegistryIdentifier: "minecraft:the_end"}
	r := packet.RespawnFromJoinGame(&packet.JoinGame{Dimension: 1, Gamemode: 3, LevelType: "default", DimensionInfo: info, PortalCooldown: 4})
	assert.Equal(t, 1, r.Dimension)
	assert.Equal(t, int16(3), r.Gamemode)
	assert.Equal(t, "default", r.LevelType)
	assert.Same(t, info, r.DimensionInfo)
	assert.Equal(t, 4, r.PortalCooldown)
}

func TestChatBuilder(t *testing.T) {
	comp := &component.Text{Content: "hello"}

	p, err := (&chat.Builder{Protocol: version.Minecraft_1_18_2.Protocol, Component: comp}).ToClient()
	require.NoError(t, err)
	legacy, ok := p.(*chat.LegacyChat)
	require.True(t, ok)
	assert.JSONEq(t, `{"text":"hello"}`, legacy.Message)
	assert.Equal(t, chat.SystemMessageType, legacy.Type)

	p, err = (&chat.Builder{Protocol: version.Minecraft_1_19_4.Protocol, Component: comp, Type: chat.GameInfoMessageType}).ToClient()
	require.NoError(t, err)
	sys, ok := p.(*chat.SystemChat)
	require.True(t, ok)
	assert.Equal(t, chat.GameInfoMessageType, sys.Type)
}

// PacketCodings compares encoding and decoding for the given versions and packets.
func PacketCodings(t *testing.T,
	directions []proto.Direction,
	versions []*proto.Version,
	samples ...proto.Packet,
) {
	t.Helper()

	message := func(direction proto.Direction, v *proto.Version, packet reflect.Type) string {
		return fmt.Sprintf("Type: %s, Direction: %s, Version: %s", packet.String(), direction, v)
	}

	bufA1, bufA2 := new(bytes.Buffer), new(bytes.Buffer)
	bufB1, bufB2 := new(bytes.Buffer), new(bytes.Buffer)
	for _, direction := range directions {
		for _, v := range versions {
			c := &proto.PacketContext{Direction: direction, Protocol: v.Protocol}
			for _, sample := range samples {
				packetType := reflect.TypeOf(sample).Elem()
				msg := message(direction, v, packetType)

				// Encode sample at protocol version to drop data unused by that version
				require.NoError(t, sample.Encode(c, io.MultiWriter(bufA1, bufA2)), msg)
				a := reflect.New(packetType).Interface().(proto.Packet)
				require.NoError(t, a.Decode(c, bufA1), msg)

				require.NoError(t, a.Encode(c, io.MultiWriter(bufB1, bufB2)), msg)
				b := reflect.New(packetType).Interface().(proto.Packet)
				require.NoError(t, b.Decode(c, bufB1), msg)

				if !bytes.Equal(bufA2.Bytes(), bufB2.Bytes()) {
					jsonA, err := json.MarshalIndent(a, "", "  ")
					require.NoError(t, err)
					jsonB, err := json.MarshalIndent(b, "", "  ")
					require.NoError(t, err)
					assert.Equal(t, string(jsonA), string(jsonB), msg)
				}

				assert.Equal(t, 0, bufA1.Len(), msg, "bufA1 not empty")
				assert.Equal(t, 0, bufB1.Len(), msg, "bufB1 not empty")

				bufA1.Reset()
				bufA2.Reset()
				bufB1.Reset()
				bufB2.Reset()
			}
		}
	}
}

func vRange(start, endInclusive *proto.Version) (vers []*proto.Version) {
	for _, v := range version.SupportedVersions {
		if v.GreaterEqual(start) && v.LowerEqual(endInclusive) {
			vers = append(vers, v)
		}
	}
	return
}
