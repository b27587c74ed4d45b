package future

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ThenAccept(t *testing.T) {
	f := New[int]()
	var got []int
	f.ThenAccept(func(v int) { got = append(got, v) })
	f.Complete(10)
	f.Complete(11)
	assert.Equal(t, []int{10}, got)

	// Completed futures call back immediately.
	f.ThenAccept(func(v int) { got = append(got, v*2) })
	assert.Equal(t, []int{10, 20}, got)
}

func TestFuture_Get(t *testing.T) {
	f := New[string]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Complete("payload")
	}()
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
	<-f.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New[string]().Get(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
