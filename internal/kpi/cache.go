package kpi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "kpi:"

// ResultCache is a short-TTL read-through cache for KPI query responses,
// backed by Redis. The ingest job flushes it after every successful run, so
// staleness is bounded by the TTL between runs only. All methods are
// best-effort: a Redis failure degrades to a direct store query.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewResultCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ResultCache {
	return &ResultCache{client: client, ttl: ttl, logger: logger}
}

// Get unmarshals the cached value for key into v, reporting whether it hit.
func (c *ResultCache) Get(ctx context.Context, key string, v interface{}) bool {
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, cacheKeyPrefix+key)
		return false
	}
	return true
}

// Set stores v under key for the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Flush removes all cached KPI results. Called after a successful ingest run.
func (c *ResultCache) Flush(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Debug("cache flush failed", zap.Error(err))
	}
}
