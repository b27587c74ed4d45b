package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := New("minecraft:brand", "bungeecord:main")
	assert.Equal(t, 1, s.Insert("bungeecord:main", "fml:handshake"))
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("fml:handshake"))

	s.Delete("minecraft:brand", "unknown")
	assert.False(t, s.Has("minecraft:brand"))
	assert.ElementsMatch(t, []string{"bungeecord:main", "fml:handshake"}, s.UnsortedList())
}
