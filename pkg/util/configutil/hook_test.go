package configutil

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationHook(t *testing.T) {
	to := reflect.TypeOf(Duration(0))
	tests := []struct {
		in   any
		want Duration
	}{
		{"1500ms", Duration(1500 * time.Millisecond)},
		{5, Duration(5 * time.Second)},
		{0.5, Duration(500 * time.Millisecond)},
		{2 * time.Minute, Duration(2 * time.Minute)},
	}
	for _, tt := range tests {
		got, err := DurationHook(reflect.TypeOf(tt.in), to, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := DurationHook(reflect.TypeOf(""), to, "soon")
	assert.Error(t, err)

	got, err := DurationHook(reflect.TypeOf(""), reflect.TypeOf(""), "5s")
	require.NoError(t, err)
	assert.Equal(t, "5s", got)
}
