package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightstay/membership-api/pkg/logger"
)

// ResponseCache is a short-TTL redis cache for normalized availability
// payloads. Upstream rate windows are expensive (several sequential CRM
// calls per request), so identical lookups within the TTL are served from
// redis. The cache fails open: any redis error degrades to a cache miss.
type ResponseCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.LogManager
}

// New creates a ResponseCache. A nil client disables caching entirely.
func New(rdb *redis.Client, ttl time.Duration, log logger.LogManager) *ResponseCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ResponseCache{rdb: rdb, ttl: ttl, log: log}
}

// Enabled reports whether a redis backend is configured.
func (c *ResponseCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetJSON loads the cached value for key into v. The boolean reports a hit.
func (c *ResponseCache) GetJSON(ctx context.Context, key string, v any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.log != nil {
			c.log.WarnF("response cache get failed key=%s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		if c.log != nil {
			c.log.WarnF("response cache decode failed key=%s: %v", key, err)
		}
		return false
	}
	return true
}

// SetJSON stores v under key for the cache TTL.
func (c *ResponseCache) SetJSON(ctx context.Context, key string, v any) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		if c.log != nil {
			c.log.WarnF("response cache encode failed key=%s: %v", key, err)
		}
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil && c.log != nil {
		c.log.WarnF("response cache set failed key=%s: %v", key, err)
	}
}
