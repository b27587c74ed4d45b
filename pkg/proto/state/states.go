package state

import (
	"github.com/xenoncommunity/xenon/pkg/proto/packet"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/chat"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/config"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/cookie"
	"github.com/xenoncommunity/xenon/pkg/proto/packet/plugin"
	. "github.com/xenoncommunity/xenon/pkg/proto/version"
)

// State is a connection state of the protocol.
type State int

const (
	HandshakeState State = iota
	StatusState
	LoginState
	ConfigState
	PlayState
)

func (s State) String() string {
	switch s {
	case HandshakeState:
		return "Handshake"
	case StatusState:
		return "Status"
	case LoginState:
		return "Login"
	case ConfigState:
		return "Config"
	case PlayState:
		return "Play"
	}
	return "Unknown"
}

// The registries of the packets the proxy decodes per connection state.
// Packets not registered are passed through without decoding.
var (
	Handshake = NewRegistry(HandshakeState)
	Status    = NewRegistry(StatusState)
	Login     = NewRegistry(LoginState)
	Config    = NewRegistry(ConfigState)
	Play      = NewRegistry(PlayState)
)

// ByState returns the registry of s.
func ByState(s State) *Registry {
	switch s {
	case StatusState:
		return Status
	case LoginState:
		return Login
	case ConfigState:
		return Config
	case PlayState:
		return Play
	default:
		return Handshake
	}
}

func init() {
	Handshake.ServerBound.Register(&packet.Handshake{},
		m(0x00, Minecraft_1_8))

	Status.ServerBound.Register(&packet.StatusRequest{},
		m(0x00, Minecraft_1_8))
	Status.ServerBound.Register(&packet.StatusPing{},
		m(0x01, Minecraft_1_8))

	Status.ClientBound.Register(&packet.StatusResponse{},
		m(0x00, Minecraft_1_8))
	Status.ClientBound.Register(&packet.StatusPing{},
		m(0x01, Minecraft_1_8))

	Login.ServerBound.Register(&packet.ServerLogin{},
		m(0x00, Minecraft_1_8))
	Login.ServerBound.Register(&packet.EncryptionResponse{},
		m(0x01, Minecraft_1_8))
	Login.ServerBound.Register(&packet.LoginPluginResponse{},
		m(0x02, Minecraft_1_13))
	Login.ServerBound.Register(&packet.LoginAcknowledged{},
		m(0x03, Minecraft_1_20_2))
	Login.ServerBound.Register(&cookie.Response{},
		m(0x04, Minecraft_1_20_5))

	Login.ClientBound.Register(&packet.LoginDisconnect{},
		m(0x00, Minecraft_1_8))
	Login.ClientBound.Register(&packet.EncryptionRequest{},
		m(0x01, Minecraft_1_8))
	Login.ClientBound.Register(&packet.ServerLoginSuccess{},
		m(0x02, Minecraft_1_8))
	Login.ClientBound.Register(&packet.SetCompression{},
		m(0x03, Minecraft_1_8))
	Login.ClientBound.Register(&packet.LoginPluginMessage{},
		m(0x04, Minecraft_1_13))
	Login.ClientBound.Register(&cookie.Request{},
		m(0x05, Minecraft_1_20_5))

	Config.ServerBound.Fallback = false
	Config.ClientBound.Fallback = false

	Config.ServerBound.Register(&packet.ClientSettings{},
		m(0x00, Minecraft_1_20_2))
	Config.ServerBound.Register(&cookie.Response{},
		m(0x01, Minecraft_1_20_5))
	Config.ServerBound.Register(&plugin.Message{},
		m(0x01, Minecraft_1_20_2),
		m(0x02, Minecraft_1_20_5))
	Config.ServerBound.Register(&config.FinishedUpdate{},
		m(0x02, Minecraft_1_20_2),
		m(0x03, Minecraft_1_20_5))
	Config.ServerBound.Register(&packet.KeepAlive{},
		m(0x03, Minecraft_1_20_2),
		m(0x04, Minecraft_1_20_5))

	Config.ClientBound.Register(&cookie.Request{},
		m(0x00, Minecraft_1_20_5))
	Config.ClientBound.Register(&plugin.Message{},
		m(0x00, Minecraft_1_20_2),
		m(0x01, Minecraft_1_20_5))
	Config.ClientBound.Register(&packet.Disconnect{},
		m(0x01, Minecraft_1_20_2),
		m(0x02, Minecraft_1_20_5))
	Config.ClientBound.Register(&config.FinishedUpdate{},
		m(0x02, Minecraft_1_20_2),
		m(0x03, Minecraft_1_20_5))
	Config.ClientBound.Register(&packet.KeepAlive{},
		m(0x03, Minecraft_1_20_2),
		m(0x04, Minecraft_1_20_5))
	Config.ClientBound.Register(&cookie.Store{},
		m(0x0A, Minecraft_1_20_5))
	Config.ClientBound.Register(&packet.Transfer{},
		m(0x0B, Minecraft_1_20_5))

	Play.ServerBound.Fallback = false
	Play.ClientBound.Fallback = false

	Play.ServerBound.Register(&packet.TabCompleteRequest{},
		m(0x14, Minecraft_1_8),
		m(0x01, Minecraft_1_9),
		m(0x02, Minecraft_1_12),
		m(0x01, Minecraft_1_12_1),
		m(0x05, Minecraft_1_13),
		m(0x06, Minecraft_1_14),
		m(0x08, Minecraft_1_19),
		m(0x09, Minecraft_1_19_1),
		m(0x08, Minecraft_1_19_3),
		m(0x09, Minecraft_1_19_4),
		m(0x0A, Minecraft_1_20_2),
		m(0x0B, Minecraft_1_20_5))
	Play.ServerBound.Register(&chat.LegacyChat{},
		m(0x01, Minecraft_1_8),
		m(0x02, Minecraft_1_9),
		m(0x03, Minecraft_1_12),
		m(0x02, Minecraft_1_12_1),
		ml(0x03, Minecraft_1_14, Minecraft_1_18_2))
	Play.ServerBound.Register(&chat.KeyedPlayerCommand{},
		m(0x03, Minecraft_1_19),
		ml(0x04, Minecraft_1_19_1, Minecraft_1_19_1))
	Play.ServerBound.Register(&chat.KeyedPlayerChat{},
		m(0x04, Minecraft_1_19),
		ml(0x05, Minecraft_1_19_1, Minecraft_1_19_1))
	Play.ServerBound.Register(&chat.ChatAcknowledgement{},
		m(0x03, Minecraft_1_19_3))
	Play.ServerBound.Register(&chat.UnsignedPlayerCommand{},
		m(0x04, Minecraft_1_20_5))
	Play.ServerBound.Register(&chat.SessionPlayerCommand{},
		m(0x04, Minecraft_1_19_3),
		m(0x05, Minecraft_1_20_5))
	Play.ServerBound.Register(&chat.SessionPlayerChat{},
		m(0x05, Minecraft_1_19_3),
		m(0x06, Minecraft_1_20_5))
	Play.ServerBound.Register(&packet.ClientSettings{},
		m(0x15, Minecraft_1_8),
		m(0x04, Minecraft_1_9),
		m(0x05, Minecraft_1_12),
		m(0x04, Minecraft_1_12_1),
		m(0x05, Minecraft_1_14),
		m(0x07, Minecraft_1_19),
		m(0x08, Minecraft_1_19_1),
		m(0x07, Minecraft_1_19_3),
		m(0x08, Minecraft_1_19_4),
		m(0x09, Minecraft_1_20_2),
		m(0x0A, Minecraft_1_20_5))
	Play.ServerBound.Register(&cookie.Response{},
		m(0x11, Minecraft_1_20_5))
	Play.ServerBound.Register(&plugin.Message{},
		m(0x17, Minecraft_1_8),
		m(0x09, Minecraft_1_9),
		m(0x0A, Minecraft_1_12),
		m(0x09, Minecraft_1_12_1),
		m(0x0A, Minecraft_1_13),
		m(0x0B, Minecraft_1_14),
		m(0x0A, Minecraft_1_17),
		m(0x0C, Minecraft_1_19),
		m(0x0D, Minecraft_1_19_1),
		m(0x0C, Minecraft_1_19_3),
		m(0x0D, Minecraft_1_19_4),
		m(0x0F, Minecraft_1_20_2),
		m(0x10, Minecraft_1_20_3),
		m(0x12, Minecraft_1_20_5))
	Play.ServerBound.Register(&packet.KeepAlive{},
		m(0x00, Minecraft_1_8),
		m(0x0B, Minecraft_1_9),
		m(0x0C, Minecraft_1_12),
		m(0x0B, Minecraft_1_12_1),
		m(0x0E, Minecraft_1_13),
		m(0x0F, Minecraft_1_14),
		m(0x10, Minecraft_1_16),
		m(0x0F, Minecraft_1_17),
		m(0x11, Minecraft_1_19),
		m(0x12, Minecraft_1_19_1),
		m(0x11, Minecraft_1_19_3),
		m(0x12, Minecraft_1_19_4),
		m(0x14, Minecraft_1_20_2),
		m(0x15, Minecraft_1_20_3),
		m(0x18, Minecraft_1_20_5))
	Play.ServerBound.Register(&config.AcknowledgeConfiguration{},
		m(0x0B, Minecraft_1_20_2),
		m(0x0C, Minecraft_1_20_5))

	Play.ClientBound.Register(&packet.KeepAlive{},
		m(0x00, Minecraft_1_8),
		m(0x1F, Minecraft_1_9),
		m(0x21, Minecraft_1_13),
		m(0x20, Minecraft_1_14),
		m(0x21, Minecraft_1_15),
		m(0x20, Minecraft_1_16),
		m(0x1F, Minecraft_1_16_2),
		m(0x21, Minecraft_1_17),
		m(0x1E, Minecraft_1_19),
		m(0x20, Minecraft_1_19_1),
		m(0x1F, Minecraft_1_19_3),
		m(0x23, Minecraft_1_19_4),
		m(0x24, Minecraft_1_20_2),
		m(0x26, Minecraft_1_20_5))
	Play.ClientBound.Register(&packet.JoinGame{},
		m(0x01, Minecraft_1_8),
		m(0x23, Minecraft_1_9),
		m(0x25, Minecraft_1_13),
		m(0x26, Minecraft_1_15),
		m(0x25, Minecraft_1_16),
		m(0x24, Minecraft_1_16_2),
		m(0x26, Minecraft_1_17),
		m(0x23, Minecraft_1_19),
		m(0x25, Minecraft_1_19_1),
		m(0x24, Minecraft_1_19_3),
		ml(0x28, Minecraft_1_19_4, Minecraft_1_20))
	Play.ClientBound.Register(&packet.Respawn{},
		m(0x07, Minecraft_1_8),
		m(0x33, Minecraft_1_9),
		m(0x34, Minecraft_1_12),
		m(0x35, Minecraft_1_12_1),
		m(0x38, Minecraft_1_13),
		m(0x3A, Minecraft_1_14),
		m(0x3B, Minecraft_1_15),
		m(0x3A, Minecraft_1_16),
		m(0x39, Minecraft_1_16_2),
		m(0x3D, Minecraft_1_17),
		m(0x3B, Minecraft_1_19),
		m(0x3E, Minecraft_1_19_1),
		m(0x3D, Minecraft_1_19_3),
		ml(0x41, Minecraft_1_19_4, Minecraft_1_20))
	Play.ClientBound.Register(&packet.Disconnect{},
		m(0x40, Minecraft_1_8),
		m(0x1A, Minecraft_1_9),
		m(0x1B, Minecraft_1_13),
		m(0x1A, Minecraft_1_14),
		m(0x1B, Minecraft_1_15),
		m(0x1A, Minecraft_1_16),
		m(0x19, Minecraft_1_16_2),
		m(0x1A, Minecraft_1_17),
		m(0x17, Minecraft_1_19),
		m(0x19, Minecraft_1_19_1),
		m(0x17, Minecraft_1_19_3),
		m(0x1A, Minecraft_1_19_4),
		m(0x1B, Minecraft_1_20_2),
		m(0x1D, Minecraft_1_20_5))
	Play.ClientBound.Register(&plugin.Message{},
		m(0x3F, Minecraft_1_8),
		m(0x18, Minecraft_1_9),
		m(0x19, Minecraft_1_13),
		m(0x18, Minecraft_1_14),
		m(0x19, Minecraft_1_15),
		m(0x18, Minecraft_1_16),
		m(0x17, Minecraft_1_16_2),
		m(0x18, Minecraft_1_17),
		m(0x15, Minecraft_1_19),
		m(0x16, Minecraft_1_19_1),
		m(0x15, Minecraft_1_19_3),
		m(0x17, Minecraft_1_19_4),
		m(0x18, Minecraft_1_20_2),
		m(0x19, Minecraft_1_20_5))
	Play.ClientBound.Register(&packet.TabCompleteResponse{},
		m(0x3A, Minecraft_1_8),
		m(0x0E, Minecraft_1_9),
		m(0x10, Minecraft_1_13),
		m(0x11, Minecraft_1_15),
		m(0x10, Minecraft_1_16),
		m(0x0F, Minecraft_1_16_2),
		m(0x11, Minecraft_1_17),
		m(0x0E, Minecraft_1_19),
		m(0x0D, Minecraft_1_19_3),
		m(0x0F, Minecraft_1_19_4),
		m(0x10, Minecraft_1_20_2))
	Play.ClientBound.Register(&chat.LegacyChat{},
		m(0x02, Minecraft_1_8),
		m(0x0F, Minecraft_1_9),
		m(0x0E, Minecraft_1_13),
		m(0x0F, Minecraft_1_15),
		m(0x0E, Minecraft_1_16),
		ml(0x0F, Minecraft_1_17, Minecraft_1_18_2))
	Play.ClientBound.Register(&chat.SystemChat{},
		m(0x5F, Minecraft_1_19),
		m(0x62, Minecraft_1_19_1),
		m(0x60, Minecraft_1_19_3),
		m(0x64, Minecraft_1_19_4),
		m(0x67, Minecraft_1_20_2),
		m(0x69, Minecraft_1_20_3),
		m(0x6C, Minecraft_1_20_5))
	Play.ClientBound.Register(&config.StartUpdate{},
		m(0x65, Minecraft_1_20_2),
		m(0x67, Minecraft_1_20_3),
		m(0x69, Minecraft_1_20_5))
	Play.ClientBound.Register(&cookie.Request{},
		m(0x16, Minecraft_1_20_5))
	Play.ClientBound.Register(&cookie.Store{},
		m(0x6B, Minecraft_1_20_5))
	Play.ClientBound.Register(&packet.Transfer{},
		m(0x73, Minecraft_1_20_5))
}
