package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

// RedisCache decorates a Sink with a cross-run duplicate cache. An item
// saved within the TTL window is not written again; the cache failing
// never blocks a write.
type RedisCache struct {
	next   Sink
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache wraps next with a Redis-backed duplicate cache.
func NewRedisCache(next Sink, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{next: next, client: client, ttl: ttl, logger: logger}
}

func cacheKey(item pipeline.ScrapedItem) string {
	switch v := item.(type) {
	case *pipeline.RawArticle:
		return "dealcrawl:article:" + v.URL
	case *pipeline.CandidateDeal:
		return "dealcrawl:deal:" + v.Fingerprint
	case *pipeline.CompanyInfo:
		return "dealcrawl:company:" + v.Name
	default:
		return ""
	}
}

// Save implements Sink.
func (c *RedisCache) Save(ctx context.Context, item pipeline.ScrapedItem) (string, error) {
	key := cacheKey(item)
	if key == "" {
		return c.next.Save(ctx, item)
	}
	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		c.logger.Warn("redis cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	id, err := c.next.Save(ctx, item)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, id, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache store failed", zap.String("key", key), zap.Error(err))
	}
	return id, nil
}

// SaveBatch implements Sink. Cached items keep their cached identifier;
// only the misses are forwarded downstream.
func (c *RedisCache) SaveBatch(ctx context.Context, items []pipeline.ScrapedItem) ([]string, error) {
	ids := make([]string, len(items))
	var misses []pipeline.ScrapedItem
	var missIdx []int
	for i, item := range items {
		key := cacheKey(item)
		if key != "" {
			cached, err := c.client.Get(ctx, key).Result()
			if err == nil {
				ids[i] = cached
				continue
			}
			if err != redis.Nil {
				c.logger.Warn("redis cache lookup failed", zap.String("key", key), zap.Error(err))
			}
		}
		misses = append(misses, item)
		missIdx = append(missIdx, i)
	}
	if len(misses) == 0 {
		return ids, nil
	}
	saved, err := c.next.SaveBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, id := range saved {
		ids[missIdx[j]] = id
		if key := cacheKey(misses[j]); key != "" {
			if serr := c.client.Set(ctx, key, id, c.ttl).Err(); serr != nil {
				c.logger.Warn("redis cache store failed", zap.String("key", key), zap.Error(serr))
			}
		}
	}
	return ids, nil
}

// Ping implements Sink.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return c.next.Ping(ctx)
}

// Close implements Sink.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return c.next.Close()
}
