package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/verdantiq/climatechat/config"
)

const defaultFeedbackKey = "chat:feedback"

// redisStore appends feedback to a capped Redis list so all instances share
// one log.
type redisStore struct {
	client *redis.Client
	key    string
	max    int64
}

func newRedisStore(ctx context.Context, cfg config.RedisCacheConfig) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed, err: %w", err)
	}
	key := cfg.KeyPrefix
	if key == "" {
		key = defaultFeedbackKey
	}
	return &redisStore{client: client, key: key, max: 100000}, nil
}

func (s *redisStore) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode feedback failed, err: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, raw)
	pipe.LTrim(ctx, s.key, 0, s.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save feedback failed, err: %w", err)
	}
	return nil
}

func (s *redisStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	raws, err := s.client.LRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list feedback failed, err: %w", err)
	}
	out := make([]*Record, 0, len(raws))
	for _, raw := range raws {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}
