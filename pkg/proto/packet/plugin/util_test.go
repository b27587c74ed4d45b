package plugin

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/proto/util"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

func TestTransformLegacyToModernChannel(t *testing.T) {
	assert.Equal(t, RegisterChannel, TransformLegacyToModernChannel(RegisterChannelLegacy))
	assert.Equal(t, BrandChannel, TransformLegacyToModernChannel(BrandChannelLegacy))
	assert.Equal(t, BungeeCordChannel, TransformLegacyToModernChannel(BungeeCordChannelLegacy))
	assert.Equal(t, "legacy:fmlhs", TransformLegacyToModernChannel("FML|HS"))
	assert.Equal(t, "my:channel", TransformLegacyToModernChannel("my:channel"))
}

func TestChannels(t *testing.T) {
	p := ConstructChannelsPacket(version.Minecraft_1_13.Protocol, "a:b", "c:d")
	assert.Equal(t, RegisterChannel, p.Channel)
	assert.True(t, IsRegister(p))
	assert.Equal(t, []string{"a:b", "c:d"}, Channels(p))

	legacy := ConstructChannelsPacket(version.Minecraft_1_12_2.Protocol, "FML")
	assert.Equal(t, RegisterChannelLegacy, legacy.Channel)

	assert.Nil(t, Channels(&Message{Channel: BrandChannel, Data: []byte("x")}))
	assert.Panics(t, func() { ConstructChannelsPacket(version.Minecraft_1_8.Protocol) })
}

func TestRewriteMinecraftBrand(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, util.WriteString(buf, "Paper"))
	msg := &Message{Channel: BrandChannel, Data: buf.Bytes()}

	rewritten := RewriteMinecraftBrand(msg, FormatBrand("Xenon", "Paper"))
	assert.Equal(t, BrandChannel, rewritten.Channel)
	assert.Equal(t, "Xenon (Paper)", ReadBrand(rewritten.Data))

	other := &Message{Channel: "minecraft:register", Data: []byte("a")}
	assert.Same(t, other, RewriteMinecraftBrand(other, "Xenon"))
	assert.Same(t, msg, RewriteMinecraftBrand(msg, ""))
	assert.Same(t, msg, RewriteMinecraftBrand(msg, "Paper"))
}

func TestFormatBrand(t *testing.T) {
	assert.Equal(t, "Xenon (Paper)", FormatBrand("Xenon", "Paper"))
	assert.Equal(t, "Xenon", FormatBrand("Xenon", ""))
}

func TestReadBrand_WithoutLength(t *testing.T) {
	// 0xff starts an invalid VarInt and forces the raw fallback
	assert.Equal(t, "\xffbot", ReadBrand([]byte("\xffbot")))
}
