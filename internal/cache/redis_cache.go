package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	// CacheOrExecute fills dest from the cache, or from fn on a miss and
	// stores the result for ttl.
	CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error
}

type redisCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, prefix string, logger *slog.Logger) CacheService {
	return &redisCache{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *redisCache) key(k string) string {
	return r.prefix + ":" + k
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Del(ctx, full...).Err()
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, r.key(pattern), 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (r *redisCache) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	err := r.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.logger.WarnContext(ctx, "Cache read failed, falling back to source", "key", key, "error", err)
	}

	value, err := fn()
	if err != nil {
		return err
	}
	if err := assign(dest, value); err != nil {
		return err
	}
	if err := r.Set(ctx, key, value, ttl); err != nil {
		r.logger.WarnContext(ctx, "Cache write failed", "key", key, "error", err)
	}
	return nil
}

// assign copies value into dest through its JSON form so cached and uncached
// reads produce identical results.
func assign(dest, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return json.Unmarshal(data, dest)
}
