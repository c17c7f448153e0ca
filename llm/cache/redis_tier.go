package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisTier 远端二级缓存。所有操作 best-effort：Redis 不可达时直接降级为
// 纯本地缓存，绝不让缓存故障污染采样结果或阻塞投票。
type redisTier struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// WithRedis attaches a write-through Redis tier. The remote TTL is applied
// server-side; a zero ttl falls back to the local TTL.
func WithRedis(client *redis.Client, ttl time.Duration) Option {
	return func(c *ResponseCache) {
		if client == nil {
			return
		}
		if ttl <= 0 {
			ttl = c.ttl
		}
		c.remote = &redisTier{
			client: client,
			ttl:    ttl,
			logger: c.logger,
		}
	}
}

func (t *redisTier) get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := t.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		t.logger.Debug("redis tier get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		t.logger.Warn("redis tier entry corrupted, dropping", zap.String("key", key), zap.Error(err))
		t.client.Del(ctx, key)
		return nil, false
	}
	return &entry, true
}

func (t *redisTier) put(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := t.client.Set(ctx, key, data, t.ttl).Err(); err != nil {
		t.logger.Debug("redis tier put failed", zap.String("key", key), zap.Error(err))
	}
}
