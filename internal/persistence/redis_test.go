package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/livechat-service/internal/config"
)

func TestNewRedisWithoutAddressIsDisabled(t *testing.T) {
	r, err := NewRedis(context.Background(), config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, r.Enabled())
	assert.Error(t, r.Ping(context.Background()))
	r.Close()

	cache := NewDepartmentCache(config.CacheConfig{}, r, zap.NewNop())
	assert.Nil(t, cache.redis)
}

func TestNewRedisUnreachable(t *testing.T) {
	// Nothing listens on port 1.
	cfg := config.RedisConfig{Addr: "127.0.0.1:1"}

	r, err := NewRedis(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, r.Enabled())
	r.Close()

	cfg.Required = true
	_, err = NewRedis(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
