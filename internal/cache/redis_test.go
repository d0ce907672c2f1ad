package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "127.0.0.1:1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestAvailabilityCache_ErrorsAreWrapped(t *testing.T) {
	rdb := unreachableClient()
	defer rdb.Close()
	c := NewAvailabilityCache(rdb, time.Minute)
	ctx := context.Background()

	_, err := c.Version(ctx, "room-1")
	assert.ErrorContains(t, err, "read availability version failed")

	_, hit, err := c.Get(ctx, "room-1:v0:1:2")
	assert.False(t, hit)
	assert.ErrorContains(t, err, "read availability cache failed")

	assert.ErrorContains(t, c.Set(ctx, "room-1:v0:1:2", []byte("{}")), "write availability cache failed")
	assert.ErrorContains(t, c.Invalidate(ctx, "room-1"), "invalidate availability cache failed")
}

func TestAvailabilityCache_VersionKey(t *testing.T) {
	c := NewAvailabilityCache(nil, time.Minute)
	assert.Equal(t, "availability:ver:room-1", c.versionKey("room-1"))
}
