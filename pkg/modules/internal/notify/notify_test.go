package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

func TestFormat(t *testing.T) {
	c := Format("&8[&cSPY&8] &7PLAYER&8: &fCOMMAND", "PLAYER", "Alice", "COMMAND", "/msg bob hi")
	assert.Equal(t, "[SPY] Alice: /msg bob hi", componentutil.Plain(c))
}

func TestFormat_StripsCodesFromValues(t *testing.T) {
	c := Format("MESSAGE", "MESSAGE", "&4red")
	assert.Equal(t, "4red", componentutil.Plain(c))
}
