package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUsername(t *testing.T) {
	tests := []struct {
		name    string
		online  bool
		allowed bool
	}{
		{"Notch", true, true},
		{"jeb_", true, true},
		{"", true, false},
		{"ThisNameIsWayTooLong", true, false},
		{"with-dash", true, false},
		{"with-dash", false, true},
		{"with space", false, false},
		{"ümlaut", false, true},
		{"ümlaut", true, false},
		{"bad\u0007bell", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, ValidUsername(tt.name, tt.online), "%q online=%v", tt.name, tt.online)
	}
}

func TestChatAllowed(t *testing.T) {
	assert.True(t, ChatAllowed("hi"))
	assert.True(t, ChatAllowed("   "))
	assert.False(t, ChatAllowed("hi\u0000"))
	assert.False(t, ChatAllowed("§cred"))
	assert.False(t, ChatAllowed("del\u007f"))
}

func TestValidServerName(t *testing.T) {
	assert.True(t, ValidServerName("lobby-1"))
	assert.False(t, ValidServerName("-lobby"))
	assert.False(t, ValidServerName(""))
}
