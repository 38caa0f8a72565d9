package pkg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/config"
)

const cachePrefix = "evaluation-service"

func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

// NewCacheService returns a redis backed cache, or a no-op cache when
// REDIS_URL is unset. The returned close func is never nil.
func NewCacheService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.CacheService, func() error, error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, caching disabled")
		return cache.NewNoopCache(), func() error { return nil }, nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisCache(client, cachePrefix, logger), client.Close, nil
}
