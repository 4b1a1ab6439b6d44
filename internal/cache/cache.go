// Package cache keeps rarely changing catalog data in Redis in front of
// the Postgres repositories.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "florist:catalog:"

// Cache stores jx-encoded values with a fixed TTL. A Cache with a nil
// client is disabled: reads always miss and writes are dropped.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New creates a Cache.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// get runs decode on the cached value for key and reports whether the key
// existed. Redis and decode failures are logged and treated as misses.
func (c *Cache) get(ctx context.Context, key string, decode func(d *jx.Decoder) error) bool {
	if !c.enabled() {
		return false
	}
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zctx.From(ctx).Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		zctx.From(ctx).Warn("Cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, data []byte) {
	if !c.enabled() {
		return
	}
	if err := c.client.Set(ctx, KeyPrefix+key, data, c.ttl).Err(); err != nil {
		zctx.From(ctx).Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = KeyPrefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, "invalidate cache")
	}
	return nil
}
