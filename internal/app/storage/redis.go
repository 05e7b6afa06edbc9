package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vibecheck:ls:"

// RedisStorage keeps values in Redis under `vibecheck:ls:<owner>:<key>`.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStorage wraps an already connected client.
func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func redisKey(owner, key string) string {
	return redisKeyPrefix + owner + ":" + key
}

func (s *RedisStorage) Get(ctx context.Context, owner, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, redisKey(owner, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStorage) Set(ctx context.Context, owner, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKey(owner, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, owner, key string) error {
	if err := s.client.Del(ctx, redisKey(owner, key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
