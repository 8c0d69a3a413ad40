package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/domain"
)

func TestDepartmentCacheLocalTier(t *testing.T) {
	ctx := context.Background()
	cache := NewDepartmentCache(config.CacheConfig{LocalSize: 2, TTLSeconds: 60}, nil, zap.NewNop())

	_, ok := cache.Get(ctx, "d1")
	assert.False(t, ok)

	cache.Set(ctx, &domain.Department{ID: "d1", Name: "Sales", NumAgents: 2})
	got, ok := cache.Get(ctx, "d1")
	require.True(t, ok)
	assert.Equal(t, "Sales", got.Name)
	assert.Equal(t, 2, got.NumAgents)

	cache.Invalidate(ctx, "d1")
	_, ok = cache.Get(ctx, "d1")
	assert.False(t, ok)
}

func TestDepartmentCacheEvictsBeyondSize(t *testing.T) {
	ctx := context.Background()
	cache := NewDepartmentCache(config.CacheConfig{LocalSize: 1, TTLSeconds: 60}, nil, zap.NewNop())

	cache.Set(ctx, &domain.Department{ID: "d1"})
	cache.Set(ctx, &domain.Department{ID: "d2"})

	_, ok := cache.Get(ctx, "d1")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "d2")
	assert.True(t, ok)
}

func TestDepartmentCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewDepartmentCache(config.CacheConfig{LocalSize: 4, TTLSeconds: 1}, nil, zap.NewNop())

	cache.Set(ctx, &domain.Department{ID: "d1"})
	assert.Eventually(t, func() bool {
		_, ok := cache.Get(ctx, "d1")
		return !ok
	}, 3*time.Second, 50*time.Millisecond)
}

func TestDepartmentCacheEvictsOnPeerInvalidation(t *testing.T) {
	ctx := context.Background()
	cache := NewDepartmentCache(config.CacheConfig{LocalSize: 4, TTLSeconds: 60}, nil, zap.NewNop())
	cache.Set(ctx, &domain.Department{ID: "d1"})
	cache.Set(ctx, &domain.Department{ID: "d2"})

	cache.evict(`["d1"]`)
	_, ok := cache.Get(ctx, "d1")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "d2")
	assert.True(t, ok)

	cache.evict(`not json`)
	_, ok = cache.Get(ctx, "d2")
	assert.True(t, ok)
}

func TestDepartmentCacheListenWithoutRedisReturns(t *testing.T) {
	cache := NewDepartmentCache(config.CacheConfig{}, nil, zap.NewNop())
	done := make(chan struct{})
	go func() {
		cache.Listen(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen blocked without a redis client")
	}
}
