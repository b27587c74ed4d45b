package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS reconnect (
	player TEXT PRIMARY KEY,
	server TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type sqliteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates the SQLite database at path.
func NewSQLite(ctx context.Context, path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)
	if _, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Get(ctx context.Context, player uuid.UUID) (server string, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT server FROM reconnect WHERE player = ?", player.String()).Scan(&server)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return server, err
}

func (s *sqliteStore) Set(ctx context.Context, player uuid.UUID, server string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO reconnect (player, server, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(player) DO UPDATE SET server = excluded.server, updated_at = excluded.updated_at`,
		player.String(), server)
	return err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
