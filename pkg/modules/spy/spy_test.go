package spy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenoncommunity/xenon/pkg/config"
)

func TestWatched(t *testing.T) {
	m := config.DefaultConfig.Xenon.Modules
	none := func(string) bool { return false }
	bypass := func(perm string) bool { return perm == m.SpyBypass }

	assert.True(t, Watched(&m, "/gamemode creative", none))
	assert.False(t, Watched(&m, "/LOGIN secret", none))
	assert.False(t, Watched(&m, "/reg pass pass", none))
	assert.False(t, Watched(&m, "/gamemode creative", bypass))
}
