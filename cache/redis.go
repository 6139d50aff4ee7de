package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/schema"
)

// RedisCache is the shared second cache tier. Entries are JSON-encoded
// pipeline results with a server-side TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg config.RedisCacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed, err: %w", err)
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*schema.PipelineResult, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed, err: %w", err)
	}
	var res schema.PipelineResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached result failed, err: %w", err)
	}
	return &res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, res *schema.PipelineResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result failed, err: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed, err: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
