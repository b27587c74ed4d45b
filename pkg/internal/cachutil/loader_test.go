package cachutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Get(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	l := NewLoader(ttlcache.New[string, string](ttlcache.WithTTL[string, string](time.Minute)),
		func(ctx context.Context, key string) (string, error) {
			calls.Add(1)
			<-release
			return "status of " + key, nil
		})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background(), "lobby")
			assert.NoError(t, err)
			assert.Equal(t, "status of lobby", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	v, err := l.Get(context.Background(), "lobby")
	require.NoError(t, err)
	assert.Equal(t, "status of lobby", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_ErrorNotCached(t *testing.T) {
	var calls int
	l := NewLoader(ttlcache.New[string, int](),
		func(context.Context, string) (int, error) {
			calls++
			return 0, errors.New("unreachable")
		})
	_, err := l.Get(context.Background(), "a")
	require.Error(t, err)
	_, err = l.Get(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
