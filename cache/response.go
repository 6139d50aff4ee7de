package cache

import (
	"context"
	"time"

	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/schema"
)

// ResponseCache layers the in-process LRU over the optional Redis tier.
// Reads check L1 first; L1 misses that hit Redis re-populate L1. Results
// are cloned on both paths so callers can never mutate a cached entry.
type ResponseCache struct {
	l1    Cache
	redis *RedisCache
	l1TTL time.Duration
}

// NewResponseCache assembles the cache tiers from config. Either tier may
// be disabled; with both off every Get is a miss.
func NewResponseCache(ctx context.Context, cfg config.CacheConfig) (*ResponseCache, error) {
	rc := &ResponseCache{}
	if cfg.L1 != nil && cfg.L1.Enable {
		rc.l1TTL = time.Duration(cfg.L1.TTLSeconds) * time.Second
		rc.l1 = NewLRU(cfg.L1.MaxEntries, rc.l1TTL)
	}
	if cfg.Redis != nil && cfg.Redis.Enable {
		r, err := NewRedisCache(ctx, *cfg.Redis)
		if err != nil {
			return nil, err
		}
		rc.redis = r
	}
	return rc, nil
}

func (c *ResponseCache) Get(ctx context.Context, key string) (*schema.PipelineResult, bool) {
	if c.l1 != nil {
		if res, ok := c.l1.Get(key); ok {
			return res.Clone(), true
		}
	}
	if c.redis != nil {
		res, ok, err := c.redis.Get(ctx, key)
		if err != nil {
			logger.Warnf("cache: redis get failed, treating as miss, err: %v", err)
			return nil, false
		}
		if ok {
			if c.l1 != nil {
				c.l1.Set(key, res.Clone(), c.l1TTL)
			}
			return res, true
		}
	}
	return nil, false
}

func (c *ResponseCache) Set(ctx context.Context, key string, res *schema.PipelineResult) {
	stored := res.Clone()
	if c.l1 != nil {
		c.l1.Set(key, stored, c.l1TTL)
	}
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, stored); err != nil {
			logger.Warnf("cache: redis set failed, err: %v", err)
		}
	}
}

// Purge drops the in-process tier. Redis entries age out by TTL.
func (c *ResponseCache) Purge() {
	if c.l1 != nil {
		c.l1.Purge()
	}
}

func (c *ResponseCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
