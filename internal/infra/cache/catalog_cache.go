package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"counter_harvester/internal/domain/catalog"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const catalogKeyPrefix = "harvester:catalog:"

// CatalogCache is a read-through Redis cache in front of a catalog
// repository. Redis failures degrade to the repository.
type CatalogCache struct {
	next catalog.Repository
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *logrus.Entry
}

func NewCatalogCache(next catalog.Repository, rdb redis.Cmdable, ttl time.Duration, log *logrus.Entry) *CatalogCache {
	return &CatalogCache{next: next, rdb: rdb, ttl: ttl, log: log}
}

func catalogKey(code int) string {
	return fmt.Sprintf("%s%d", catalogKeyPrefix, code)
}

func (c *CatalogCache) Get(ctx context.Context, code int) (*catalog.Entry, error) {
	if e, ok := c.lookup(ctx, code); ok {
		return e, nil
	}
	e, err := c.next.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	c.store(ctx, e)
	return e, nil
}

func (c *CatalogCache) FindOrCreate(ctx context.Context, code int, fallback *catalog.Entry) (*catalog.Entry, error) {
	if e, ok := c.lookup(ctx, code); ok {
		return e, nil
	}
	e, err := c.next.FindOrCreate(ctx, code, fallback)
	if err != nil {
		return nil, err
	}
	c.store(ctx, e)
	return e, nil
}

func (c *CatalogCache) List(ctx context.Context) ([]*catalog.Entry, error) {
	return c.next.List(ctx)
}

func (c *CatalogCache) lookup(ctx context.Context, code int) (*catalog.Entry, bool) {
	data, err := c.rdb.Get(ctx, catalogKey(code)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("code", code).Debug("Catalog cache read failed")
		}
		return nil, false
	}
	e := &catalog.Entry{}
	if err := json.Unmarshal(data, e); err != nil {
		c.log.WithError(err).WithField("code", code).Warn("Dropping undecodable catalog cache entry")
		c.rdb.Del(ctx, catalogKey(code))
		return nil, false
	}
	return e, true
}

func (c *CatalogCache) store(ctx context.Context, e *catalog.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, catalogKey(e.Code), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("code", e.Code).Debug("Catalog cache write failed")
	}
}
