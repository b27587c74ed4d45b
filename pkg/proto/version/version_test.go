package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionsOrdered(t *testing.T) {
	for i := 1; i < len(SupportedVersions); i++ {
		require.Less(t, SupportedVersions[i-1].Protocol, SupportedVersions[i].Protocol,
			"%s must come before %s", SupportedVersions[i-1], SupportedVersions[i])
	}
	require.Equal(t, Minecraft_1_8, MinimumVersion)
	require.Equal(t, Minecraft_1_21, MaximumVersion)
	require.Equal(t, "1.8-1.21.1", SupportedVersionsString)
}

func TestProtocol(t *testing.T) {
	require.True(t, Protocol(760).Supported())
	require.False(t, Protocol(5).Supported())
	require.False(t, Protocol(-1).Supported())
	require.Equal(t, "1.19.1-1.19.2(760)", Protocol(760).String())
	require.Equal(t, "12345", Protocol(12345).String())
}
