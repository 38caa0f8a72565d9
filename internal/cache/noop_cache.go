package cache

import (
	"context"
	"time"
)

// noopCache is used when no redis URL is configured.
type noopCache struct{}

func NewNoopCache() CacheService {
	return noopCache{}
}

func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (noopCache) Get(context.Context, string, interface{}) error                { return ErrCacheMiss }
func (noopCache) Delete(context.Context, ...string) error                       { return nil }
func (noopCache) DeletePattern(context.Context, string) error                   { return nil }

func (noopCache) CacheOrExecute(_ context.Context, _ string, dest interface{}, _ time.Duration, fn func() (interface{}, error)) error {
	value, err := fn()
	if err != nil {
		return err
	}
	return assign(dest, value)
}
