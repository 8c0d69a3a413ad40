package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/domain"
)

const departmentCachePrefix = "livechat:department:"

// DepartmentCache is a read-through cache for single departments: a
// per-process expirable LRU in front of a shared Redis copy. Redis errors
// degrade to a miss. Invalidations are published on a Redis channel so
// every replica running Listen drops its local copy too.
type DepartmentCache struct {
	local   *expirable.LRU[string, domain.Department]
	redis   *redis.Client
	channel string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewDepartmentCache builds the cache. A nil r disables the Redis tier.
func NewDepartmentCache(cfg config.CacheConfig, r *Redis, logger *zap.Logger) *DepartmentCache {
	size := cfg.LocalSize
	if size <= 0 {
		size = 512
	}
	channel := cfg.InvalidationChannel
	if channel == "" {
		channel = "livechat:department:invalidate"
	}
	cache := &DepartmentCache{
		local:   expirable.NewLRU[string, domain.Department](size, nil, cfg.TTL()),
		channel: channel,
		ttl:     cfg.TTL(),
		logger:  logger,
	}
	if r != nil && r.Client != nil {
		cache.redis = r.Client
	}
	return cache
}

// Get returns the cached department and whether it was found.
func (c *DepartmentCache) Get(ctx context.Context, id string) (*domain.Department, bool) {
	if dept, ok := c.local.Get(id); ok {
		return &dept, true
	}
	if c.redis == nil {
		return nil, false
	}

	raw, err := c.redis.Get(ctx, departmentCachePrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("department cache get failed", zap.String("department_id", id), zap.Error(err))
		}
		return nil, false
	}
	var dept domain.Department
	if err := json.Unmarshal(raw, &dept); err != nil {
		c.logger.Warn("department cache entry corrupt", zap.String("department_id", id), zap.Error(err))
		return nil, false
	}
	c.local.Add(id, dept)
	return &dept, true
}

// Set stores dept in both tiers.
func (c *DepartmentCache) Set(ctx context.Context, dept *domain.Department) {
	if dept == nil {
		return
	}
	c.local.Add(dept.ID, *dept)
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(dept)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, departmentCachePrefix+dept.ID, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("department cache set failed", zap.String("department_id", dept.ID), zap.Error(err))
	}
}

// Invalidate drops the given departments from both tiers and tells the
// other replicas to drop their local copies.
func (c *DepartmentCache) Invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		c.local.Remove(id)
		keys = append(keys, departmentCachePrefix+id)
	}
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("department cache invalidate failed", zap.Strings("department_ids", ids), zap.Error(err))
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.redis.Publish(ctx, c.channel, raw).Err(); err != nil {
		c.logger.Warn("department cache invalidation not broadcast", zap.Strings("department_ids", ids), zap.Error(err))
	}
}

// Listen evicts local entries named on the invalidation channel until ctx
// is done. It returns immediately when Redis is not configured.
func (c *DepartmentCache) Listen(ctx context.Context) {
	if c.redis == nil {
		return
	}
	sub := c.redis.Subscribe(ctx, c.channel)
	defer sub.Close() //nolint:errcheck

	c.logger.Info("listening for department cache invalidations", zap.String("channel", c.channel))
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.evict(msg.Payload)
		}
	}
}

func (c *DepartmentCache) evict(payload string) {
	var ids []string
	if err := json.Unmarshal([]byte(payload), &ids); err != nil {
		c.logger.Warn("malformed department cache invalidation", zap.String("payload", payload), zap.Error(err))
		return
	}
	for _, id := range ids {
		c.local.Remove(id)
	}
}
