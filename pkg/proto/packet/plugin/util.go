package plugin

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

const (
	BrandChannelLegacy      = "MC|Brand"
	BrandChannel            = "minecraft:brand"
	RegisterChannelLegacy   = "REGISTER"
	RegisterChannel         = "minecraft:register"
	UnregisterChannelLegacy = "UNREGISTER"
	UnregisterChannel       = "minecraft:unregister"
	BungeeCordChannelLegacy = "BungeeCord"
	BungeeCordChannel       = "bungeecord:main"
)

var invalidIdentifier = regexp.MustCompile(`[^a-z0-9\-_]*`)

// McBrand reports whether p carries the client or server brand.
func McBrand(p *Message) bool {
	return p != nil &&
		(strings.EqualFold(p.Channel, BrandChannelLegacy) ||
			strings.EqualFold(p.Channel, BrandChannel))
}

// IsRegister reports whether p registers plugin channels.
func IsRegister(p *Message) bool {
	return p != nil &&
		(strings.EqualFold(p.Channel, RegisterChannelLegacy) ||
			strings.EqualFold(p.Channel, RegisterChannel))
}

// IsUnregister reports whether p unregisters plugin channels.
func IsUnregister(p *Message) bool {
	return p != nil &&
		(strings.EqualFold(p.Channel, UnregisterChannelLegacy) ||
			strings.EqualFold(p.Channel, UnregisterChannel))
}

// IsBungeeCord reports whether p is sent on the BungeeCord messaging channel.
func IsBungeeCord(p *Message) bool {
	return p != nil && (p.Channel == BungeeCordChannelLegacy || p.Channel == BungeeCordChannel)
}

// Channels returns the channels of a register or unregister message.
func Channels(p *Message) []string {
	if p == nil || len(p.Data) == 0 || (!IsRegister(p) && !IsUnregister(p)) {
		return nil
	}
	return strings.Split(string(p.Data), "\x00")
}

// TransformLegacyToModernChannel maps a pre-1.13 channel name to its
// namespaced form.
func TransformLegacyToModernChannel(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	switch name {
	case RegisterChannelLegacy:
		return RegisterChannel
	case UnregisterChannelLegacy:
		return UnregisterChannel
	case BrandChannelLegacy:
		return BrandChannel
	case BungeeCordChannelLegacy:
		return BungeeCordChannel
	default:
		return "legacy:" + invalidIdentifier.ReplaceAllString(strings.ToLower(name), "")
	}
}

// BrandChannelFor returns the brand channel name used by protocol.
func BrandChannelFor(protocol proto.Protocol) string {
	if protocol.GreaterEqual(version.Minecraft_1_13) {
		return BrandChannel
	}
	return BrandChannelLegacy
}

// ConstructChannelsPacket builds a register message for channels.
// channels must not be empty.
func ConstructChannelsPacket(protocol proto.Protocol, channels ...string) *Message {
	if len(channels) == 0 {
		panic("channels must not be empty")
	}
	name := RegisterChannelLegacy
	if protocol.GreaterEqual(version.Minecraft_1_13) {
		name = RegisterChannel
	}
	return &Message{
		Channel: name,
		Data:    []byte(strings.Join(channels, "\x00")),
	}
}

// RewriteMinecraftBrand replaces the brand of a server brand message.
// Non-brand messages and unchanged brands are returned as is.
func RewriteMinecraftBrand(message *Message, brand string) *Message {
	if !McBrand(message) || brand == "" || brand == ReadBrand(message.Data) {
		return message
	}
	buf := new(bytes.Buffer)
	_ = util.WriteString(buf, brand)
	return &Message{Channel: message.Channel, Data: buf.Bytes()}
}

// FormatBrand renders the brand shown in the debug screen of a client.
func FormatBrand(proxyBrand, serverBrand string) string {
	if serverBrand == "" {
		return proxyBrand
	}
	return fmt.Sprintf("%s (%s)", proxyBrand, serverBrand)
}

// ReadBrand reads the brand string of a brand message payload.
// Some clients send it without length prefix.
func ReadBrand(data []byte) string {
	s, err := util.ReadString(bytes.NewReader(data))
	if err != nil {
		return string(data)
	}
	return s
}
