package gate

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"banking-router/internal/common/logger"
)

// LRUCache keeps gate verdicts in process memory with a bounded size and TTL.
type LRUCache struct {
	inner *lru.LRU[string, bool]
}

func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{inner: lru.NewLRU[string, bool](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) (bool, bool) {
	return c.inner.Get(key)
}

func (c *LRUCache) Set(_ context.Context, key string, inDomain bool) {
	c.inner.Add(key, inDomain)
}

const redisKeyPrefix = "gate:verdict:"

// RedisCache shares gate verdicts across router instances. Redis errors are
// logged and treated as cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (bool, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		c.logger.Warn("gate cache read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false, false
	}
	return val == "1", true
}

func (c *RedisCache) Set(ctx context.Context, key string, inDomain bool) {
	val := "0"
	if inDomain {
		val = "1"
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, val, c.ttl).Err(); err != nil {
		c.logger.Warn("gate cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
