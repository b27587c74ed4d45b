// Package cachutil contains helpers around ttlcache.
package cachutil

import (
	"context"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// LoadFunc loads the value of key.
type LoadFunc[V any] func(ctx context.Context, key string) (V, error)

// Loader caches the results of a LoadFunc and suppresses duplicate
// concurrent loads of the same key.
// Failed loads are not cached.
type Loader[V any] struct {
	cache *ttlcache.Cache[string, V]
	load  LoadFunc[V]
	group singleflight.Group
}

// NewLoader returns a Loader caching values in cache.
func NewLoader[V any](cache *ttlcache.Cache[string, V], load LoadFunc[V]) *Loader[V] {
	return &Loader[V]{cache: cache, load: load}
}

// Get returns the cached value of key or loads it.
// Concurrent callers of the same key share one load.
func (l *Loader[V]) Get(ctx context.Context, key string) (V, error) {
	if item := l.cache.Get(key); item != nil {
		return item.Value(), nil
	}
	res, err, _ := l.group.Do(key, func() (any, error) {
		v, err := l.load(ctx, key)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, v, ttlcache.DefaultTTL)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
