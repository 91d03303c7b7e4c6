// Package postgres implements the storage.Store interface using PostgreSQL
// via pgx. It is selected over SQLite when a DATABASE_URL is configured.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitkaro/splitkaro/internal/storage"
)

// PostgresStore implements the Store interface backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Assert that PostgresStore implements the Store interface.
var _ storage.Store = (*PostgresStore)(nil)

// New creates a PostgreSQL-backed store, verifies connectivity, and runs
// migrations.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
