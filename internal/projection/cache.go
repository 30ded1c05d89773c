// Package projection caches read models derived from the database, such as
// the admin dashboard aggregates.
package projection

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// KeyAdminOverview holds the admin dashboard aggregate.
const KeyAdminOverview = "projection:admin:overview"

// Cache is a read-through cache over a Store. Store failures degrade to a
// direct load and are only logged.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache keeps entries for ttl.
func NewCache(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// ReadThrough returns the cached value under key or calls load and stores
// its result. Load errors are returned and never cached.
func ReadThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	err := GetJSON(ctx, c.store, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn("projection read failed", "key", key, "error", err)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := SetJSON(ctx, c.store, key, v, c.ttl); err != nil {
		c.logger.Warn("projection write failed", "key", key, "error", err)
	}
	return v, nil
}

// Invalidate drops key so the next read reloads it.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("projection invalidate failed", "key", key, "error", err)
	}
}
