package store

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

type memory struct {
	cache *ttlcache.Cache[uuid.UUID, string]
}

// NewMemory returns an in-memory Store forgetting entries after ttl.
// A ttl of zero keeps entries until the process exits.
func NewMemory(ttl time.Duration) Store {
	cache := ttlcache.New[uuid.UUID, string](
		ttlcache.WithTTL[uuid.UUID, string](ttl),
	)
	go cache.Start()
	return &memory{cache: cache}
}

func (m *memory) Get(_ context.Context, player uuid.UUID) (string, error) {
	item := m.cache.Get(player)
	if item == nil {
		return "", ErrNotFound
	}
	return item.Value(), nil
}

func (m *memory) Set(_ context.Context, player uuid.UUID, server string) error {
	m.cache.Set(player, server, ttlcache.DefaultTTL)
	return nil
}

func (m *memory) Close() error {
	m.cache.Stop()
	return nil
}
