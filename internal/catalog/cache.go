package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultCacheTTL = 24 * time.Hour
	cacheKeyPrefix  = "catalog:track:"
)

// CachedCatalog keeps resolved tracks in redis. Redis failures are logged
// and the lookup goes to the wrapped catalog.
type CachedCatalog struct {
	next Catalog
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedCatalog(next Catalog, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedCatalog) Resolve(ctx context.Context, trackID string) (*Track, error) {
	key := cacheKeyPrefix + trackID

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t Track
		if err := json.Unmarshal(raw, &t); err == nil {
			return &t, nil
		}
		c.log.Warn("catalog cache: bad entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("catalog cache: get", zap.String("key", key), zap.Error(err))
	}

	t, err := c.next.Resolve(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(t); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn("catalog cache: set", zap.String("key", key), zap.Error(err))
		}
	}
	return t, nil
}

// Search results depend on offset and change often; they are not cached.
func (c *CachedCatalog) Search(ctx context.Context, query string, offset int) ([]Track, error) {
	return c.next.Search(ctx, query, offset)
}
