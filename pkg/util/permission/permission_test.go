package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromList(t *testing.T) {
	fn := FromList("xenon.command.server", "xenon.staff.*", "-xenon.staff.spy.bypass")

	assert.Equal(t, True, fn("xenon.command.server"))
	assert.Equal(t, True, fn("Xenon.Command.Server"))
	assert.Equal(t, True, fn("xenon.staff.chat"))
	assert.Equal(t, False, fn("xenon.staff.spy.bypass"))
	assert.Equal(t, Undefined, fn("xenon.command.send"))

	all := FromList("*", "-xenon.command.send")
	assert.True(t, all("anything").Bool())
	assert.Equal(t, False, all("xenon.command.send"))
}
