package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSilentError(t *testing.T) {
	err := fmt.Errorf("reading frame: %w", WrapSilent(io.EOF))
	require.True(t, IsSilent(err))
	require.ErrorIs(t, err, io.EOF)
	require.False(t, IsSilent(io.EOF))
}

func TestIsConnClosedErr(t *testing.T) {
	require.True(t, IsConnClosedErr(errors.New("read tcp 1.2.3.4:1->5.6.7.8:2: use of closed network connection")))
	require.True(t, IsConnClosedErr(errors.New("write: broken pipe")))
	require.False(t, IsConnClosedErr(nil))
	require.False(t, IsConnClosedErr(io.EOF))
}
