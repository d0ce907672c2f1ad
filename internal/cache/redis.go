// Package cache holds the Redis-backed availability cache and the client
// constructor shared with the rate limiter.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to addr and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// AvailabilityCache stores serialized availability reports. Each room has a
// version counter that is part of every key; bumping it orphans all cached
// reports for the room, so a reader racing a writer can only ever populate a
// key nobody will look up again.
type AvailabilityCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewAvailabilityCache(rdb redis.Cmdable, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb, ttl: ttl, prefix: "availability"}
}

func (c *AvailabilityCache) versionKey(roomID string) string {
	return c.prefix + ":ver:" + roomID
}

// Version returns the current version counter for roomID, zero if unset.
func (c *AvailabilityCache) Version(ctx context.Context, roomID string) (int64, error) {
	v, err := c.rdb.Get(ctx, c.versionKey(roomID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read availability version failed: %w", err)
	}
	return v, nil
}

func (c *AvailabilityCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.prefix+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read availability cache failed: %w", err)
	}
	return b, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, c.prefix+":"+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("write availability cache failed: %w", err)
	}
	return nil
}

// Invalidate bumps roomID's version.
func (c *AvailabilityCache) Invalidate(ctx context.Context, roomID string) error {
	if err := c.rdb.Incr(ctx, c.versionKey(roomID)).Err(); err != nil {
		return fmt.Errorf("invalidate availability cache failed: %w", err)
	}
	return nil
}
