package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LayeredCache reads through an in-process cache in front of Redis. Writes go to
// both layers; locks are always taken in Redis so they hold across processes.
type LayeredCache struct {
	l1    *MemoryCache
	l2    *RedisCache
	l1TTL time.Duration
}

func NewLayeredCache(rc *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000, MemoryTTL: time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		l1:    NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		l2:    rc,
		l1TTL: cfg.MemoryTTL,
	}
}

// Set fills the memory layer even when Redis rejects the write; the Redis error is
// still returned.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l1.Set(ctx, key, value, lc.memTTL(expiration)); err != nil {
		return err
	}
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Get serves from memory, then Redis. A Redis failure is reported as a miss wrapped
// around the cause so callers can refetch.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	}

	err := lc.l2.Get(ctx, key, dest)
	switch {
	case err == nil:
		_ = lc.l1.Set(ctx, key, dest, lc.l1TTL)
		return nil
	case errors.Is(err, ErrCacheMiss):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrCacheMiss, err)
	}
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.l1.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}

func (lc *LayeredCache) memTTL(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.l1TTL {
		return expiration
	}
	return lc.l1TTL
}
