// Package store persists the last backend server of players so they
// reconnect to it on their next login.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

// ErrNotFound is returned when no server is stored for a player.
var ErrNotFound = errors.New("no server stored for player")

// Store is a reconnect store.
type Store interface {
	// Get returns the server the player was last connected to.
	Get(ctx context.Context, player uuid.UUID) (server string, err error)
	// Set stores the server the player is leaving from.
	Set(ctx context.Context, player uuid.UUID, server string) error
	// Close releases the store's resources.
	Close() error
}

// New returns the store configured by c. A NoneStore yields a nil Store.
func New(ctx context.Context, c config.Reconnect) (Store, error) {
	ttl := time.Duration(c.TTL)
	switch c.Store {
	case config.NoneStore:
		return nil, nil
	case "", config.MemoryStore:
		return NewMemory(ttl), nil
	case config.RedisStore:
		return NewRedis(ctx, c.DSN, ttl)
	case config.SQLiteStore:
		return NewSQLite(ctx, c.DSN)
	case config.PostgresStore:
		return NewPostgres(ctx, c.DSN)
	}
	return nil, fmt.Errorf("unknown reconnect store %q", c.Store)
}
