package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenoncommunity/xenon/pkg/util/uuid"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS xenon_reconnect (
	player UUID PRIMARY KEY,
	server TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the PostgreSQL database at connString.
func NewPostgres(ctx context.Context, connString string) (Store, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err = pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &postgresStore{pool: pool}, nil
}

func (p *postgresStore) Get(ctx context.Context, player uuid.UUID) (server string, err error) {
	err = p.pool.QueryRow(ctx,
		"SELECT server FROM xenon_reconnect WHERE player = $1", player.String()).Scan(&server)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return server, err
}

func (p *postgresStore) Set(ctx context.Context, player uuid.UUID, server string) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO xenon_reconnect (player, server, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (player) DO UPDATE SET server = EXCLUDED.server, updated_at = EXCLUDED.updated_at`,
		player.String(), server)
	return err
}

func (p *postgresStore) Close() error {
	p.pool.Close()
	return nil
}
