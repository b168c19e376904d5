package authz

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const catalogKeyPrefix = "authz:perm:"

// CachedCatalog fronts a Catalog with a Redis TTL cache. Only successful
// lookups are cached: misses and store failures always fall through to the
// inner catalog on the next call, so a deny caused by an outage is
// re-evaluated rather than remembered.
type CachedCatalog struct {
	inner  Catalog
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedCatalog instantiates the cache helper. A nil client disables
// caching and delegates directly.
func NewCachedCatalog(inner Catalog, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCatalog{inner: inner, client: client, ttl: ttl, logger: logger}
}

// FindActiveByCode resolves a permission, serving repeated lookups from Redis
// and coalescing concurrent misses for the same code.
func (c *CachedCatalog) FindActiveByCode(ctx context.Context, code string) (Permission, error) {
	if c.client == nil {
		return c.inner.FindActiveByCode(ctx, code)
	}

	key := catalogKeyPrefix + code
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var perm Permission
		if jsonErr := json.Unmarshal(payload, &perm); jsonErr == nil {
			return perm, nil
		}
		// Corrupt entry: drop it and reload.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("authz catalog cache read", slog.String("code", code), slog.Any("error", err))
	}

	value, err, _ := c.group.Do(code, func() (any, error) {
		perm, err := c.inner.FindActiveByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		c.store(ctx, perm)
		return perm, nil
	})
	if err != nil {
		return Permission{}, err
	}
	return value.(Permission), nil
}

// Warm primes the cache with the given catalog rows.
func (c *CachedCatalog) Warm(ctx context.Context, perms []Permission) {
	if c.client == nil {
		return
	}
	for _, perm := range perms {
		c.store(ctx, perm)
	}
}

// Invalidate drops the cached entry for a code.
func (c *CachedCatalog) Invalidate(ctx context.Context, code string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, catalogKeyPrefix+code).Err(); err != nil {
		c.logger.Warn("authz catalog cache invalidate", slog.String("code", code), slog.Any("error", err))
	}
}

func (c *CachedCatalog) store(ctx context.Context, perm Permission) {
	raw, err := json.Marshal(perm)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, catalogKeyPrefix+perm.Code, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("authz catalog cache write", slog.String("code", perm.Code), slog.Any("error", err))
	}
}
