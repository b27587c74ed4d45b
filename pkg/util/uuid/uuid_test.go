package uuid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOfflinePlayerUUID(t *testing.T) {
	id := OfflinePlayerUUID("bob")
	require.Equal(t, id, OfflinePlayerUUID("bob"))
	require.NotEqual(t, id, OfflinePlayerUUID("Bob"))
	// Version 3 and RFC 4122 variant bits.
	require.Equal(t, byte(0x30), id[6]&0xf0)
	require.Equal(t, byte(0x80), id[8]&0xc0)
}

func TestParseUndashed(t *testing.T) {
	id, err := Parse("069a79f444e94726a5befca90e38aaf5")
	require.NoError(t, err)
	require.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", id.String())
	require.Equal(t, "069a79f444e94726a5befca90e38aaf5", id.Undashed())
	require.Equal(t, uint64(0x069a79f444e94726), id.MostSignificantBits())
	require.Equal(t, uint64(0xa5befca90e38aaf5), id.LeastSignificantBits())
}

func TestUUID_JSON(t *testing.T) {
	id := OfflinePlayerUUID("bob")
	b, err := id.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"`+id.String()+`"`, string(b))

	var id2 UUID
	require.NoError(t, id2.UnmarshalJSON(b))
	require.Equal(t, id, id2)
}
