/*
Package storage provides the server-side counterpart of the browser's local storage: small
values keyed by owner and key.

The web gateway keeps the denormalized identity copy (`user_info`) and UI choices
(`navigator_preference`) here. Backends: in-process memory, Redis, or PostgreSQL.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vibecheck/internal/app/db"
)

// Well-known keys.
const (
	KeyUserInfo            = "user_info"
	KeyNavigatorPreference = "navigator_preference"
)

// Driver names accepted by NewLocalStorage.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned by Get when owner has no value under key.
var ErrNotFound = errors.New("storage: key not found")

// LocalStorage stores opaque values per owner.
type LocalStorage interface {
	// Get returns the value, or ErrNotFound.
	Get(ctx context.Context, owner, key string) ([]byte, error)

	// Set stores value, replacing any previous one.
	Set(ctx context.Context, owner, key string, value []byte) error

	// Delete removes the value. Deleting a missing key is not an error.
	Delete(ctx context.Context, owner, key string) error

	// Close releases backend resources.
	Close() error
}

// ServiceConfig selects and configures the backend.
type ServiceConfig struct {
	Driver      string
	RedisURL    string
	DatabaseDSN string

	// TTL bounds how long values live. Zero keeps them until deleted.
	TTL time.Duration
}

// NewLocalStorage is the factory for LocalStorage.
func NewLocalStorage(ctx context.Context, cfg ServiceConfig) (LocalStorage, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStorage(cfg.TTL), nil

	case DriverRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}

		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return NewRedisStorage(client, cfg.TTL), nil

	case DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresStorage(pool, cfg.TTL), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
