package codestore

import (
	"context"
	"errors"
	"time"

	"go-shortlink/internal/domain"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "code:"

// RedisStore implements Store on Redis. SetIfAbsent maps to SET NX.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(code string) string {
	return s.prefix + code
}

func (s *RedisStore) Exists(ctx context.Context, code string) (bool, error) {
	const op = "codestore.RedisStore.Exists"

	n, err := s.rdb.Exists(ctx, s.key(code)).Result()
	if err != nil {
		return false, domain.Transient(op, err)
	}
	return n > 0, nil
}

func (s *RedisStore) SetWithExpiry(ctx context.Context, code, destinationURL string, ttl time.Duration) error {
	const op = "codestore.RedisStore.SetWithExpiry"

	if err := s.rdb.Set(ctx, s.key(code), destinationURL, ttl).Err(); err != nil {
		return domain.Transient(op, err)
	}
	return nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, code, destinationURL string, ttl time.Duration) (bool, error) {
	const op = "codestore.RedisStore.SetIfAbsent"

	ok, err := s.rdb.SetNX(ctx, s.key(code), destinationURL, ttl).Result()
	if err != nil {
		return false, domain.Transient(op, err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, code string) (string, error) {
	const op = "codestore.RedisStore.Get"

	val, err := s.rdb.Get(ctx, s.key(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", domain.Transient(op, err)
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, code string) (int64, error) {
	const op = "codestore.RedisStore.Delete"

	n, err := s.rdb.Del(ctx, s.key(code)).Result()
	if err != nil {
		return 0, domain.Transient(op, err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	const op = "codestore.RedisStore.Ping"

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return domain.Transient(op, err)
	}
	return nil
}
