package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectValueSQL = `SELECT value FROM local_storage
		WHERE owner = $1 AND key = $2 AND (expires_at IS NULL OR expires_at > now())`

	upsertValueSQL = `INSERT INTO local_storage (owner, key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (owner, key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`

	deleteValueSQL = `DELETE FROM local_storage WHERE owner = $1 AND key = $2`
)

// PostgresStorage keeps values in the local_storage table.
type PostgresStorage struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresStorage wraps a migrated pool.
func NewPostgresStorage(pool *pgxpool.Pool, ttl time.Duration) *PostgresStorage {
	return &PostgresStorage{pool: pool, ttl: ttl}
}

func (s *PostgresStorage) Get(ctx context.Context, owner, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, selectValueSQL, owner, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStorage) Set(ctx context.Context, owner, key string, value []byte) error {
	var expiresAt pgtype.Timestamptz
	if s.ttl > 0 {
		expiresAt = pgtype.Timestamptz{Time: time.Now().Add(s.ttl), Valid: true}
	}

	if _, err := s.pool.Exec(ctx, upsertValueSQL, owner, key, value, expiresAt); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, owner, key string) error {
	if _, err := s.pool.Exec(ctx, deleteValueSQL, owner, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
