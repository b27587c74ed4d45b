package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	player := uuid.OfflinePlayerUUID("Steve")

	_, err := s.Get(ctx, player)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, player, "lobby"))
	require.NoError(t, s.Set(ctx, player, "survival"))
	server, err := s.Get(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, "survival", server)

	_, err = s.Get(ctx, uuid.OfflinePlayerUUID("Alex"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory(t *testing.T) {
	s := NewMemory(time.Hour)
	defer s.Close()
	testStore(t, s)
}

func TestMemory_Expires(t *testing.T) {
	s := NewMemory(10 * time.Millisecond)
	defer s.Close()
	player := uuid.OfflinePlayerUUID("Steve")
	require.NoError(t, s.Set(context.Background(), player, "lobby"))
	time.Sleep(30 * time.Millisecond)
	_, err := s.Get(context.Background(), player)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite(t *testing.T) {
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "reconnect.db"))
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.Reconnect{Store: config.NoneStore})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(context.Background(), config.Reconnect{Store: config.MemoryStore})
	require.NoError(t, err)
	assert.NotNil(t, s)
	_ = s.Close()

	_, err = New(context.Background(), config.Reconnect{Store: "etcd"})
	assert.Error(t, err)
}
