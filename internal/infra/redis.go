package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheTimeout caps Redis reads and writes. Cache and rate limit failures are
// tolerated upstream, so a slow Redis should fail fast rather than stall writes.
const cacheTimeout = 500 * time.Millisecond

// NewRedisClient configures a Redis client and verifies connectivity.
// Timeouts given in the URL take precedence over cacheTimeout.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = cacheTimeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = cacheTimeout
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
