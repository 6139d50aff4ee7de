package climatechat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/config"
)

// RedisSessionStore persists sessions in Redis so all instances share
// conversation history.
//
// Data model:
//   - prefix+"session:"+id => JSON(Session) with TTL
//   - prefix+"idx"         => sorted set of ids scored by last activity
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(ctx context.Context, cfg config.SessionConfig) (*RedisSessionStore, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis session store requires redis config")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed, err: %w", err)
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	prefix := cfg.Redis.KeyPrefix
	if prefix == "" {
		prefix = "chat:sess:"
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}, nil
}

func (s *RedisSessionStore) idxKey() string          { return s.prefix + "idx" }
func (s *RedisSessionStore) sessKey(id string) string { return s.prefix + "session:" + id }

func (s *RedisSessionStore) Create() *Session {
	ctx := context.Background()
	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now(), Messages: []ChatMessage{}}
	if err := s.write(ctx, sess); err != nil {
		logger.Warnf("session: redis create failed: %v", err)
	}
	return sess
}

func (s *RedisSessionStore) Get(id string) (*Session, bool) {
	ctx := context.Background()
	raw, err := s.client.Get(ctx, s.sessKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		logger.Warnf("session: corrupt record %s: %v", id, err)
		return nil, false
	}
	return &sess, true
}

func (s *RedisSessionStore) Delete(id string) bool {
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.sessKey(id))
	pipe.ZRem(ctx, s.idxKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false
	}
	return del.Val() > 0
}

func (s *RedisSessionStore) AddMessage(id string, msg ChatMessage) bool {
	sess, ok := s.Get(id)
	if !ok {
		return false
	}
	sess.Messages = append(sess.Messages, msg)
	if err := s.write(context.Background(), sess); err != nil {
		logger.Warnf("session: redis update failed: %v", err)
		return false
	}
	return true
}

func (s *RedisSessionStore) ListRange(offset, limit int) []*Session {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []*Session{}
	}
	ctx := context.Background()
	ids, err := s.client.ZRevRange(ctx, s.idxKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return []*Session{}
	}
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.Get(id); ok {
			out = append(out, sess)
		}
	}
	return out
}

func (s *RedisSessionStore) Clean(max int) error {
	if max <= 0 {
		return nil
	}
	ctx := context.Background()
	total, err := s.client.ZCard(ctx, s.idxKey()).Result()
	if err != nil || total <= int64(max) {
		return err
	}
	ids, err := s.client.ZRange(ctx, s.idxKey(), 0, total-int64(max)-1).Result()
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.sessKey(id))
		pipe.ZRem(ctx, s.idxKey(), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) write(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessKey(sess.ID), raw, s.ttl)
	pipe.ZAdd(ctx, s.idxKey(), redis.Z{Score: float64(time.Now().Unix()), Member: sess.ID})
	_, err = pipe.Exec(ctx)
	return err
}
