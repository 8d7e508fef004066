package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:wallet:"

// RedisLimiter shares fixed window counters between processes through Redis.
// It fails open: when Redis is unreachable the request is admitted.
type RedisLimiter struct {
	client   *redis.Client
	capacity int
	window   time.Duration
	logger   *slog.Logger
}

// NewRedisLimiter builds a Redis backed Admitter.
func NewRedisLimiter(client *redis.Client, capacity int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{client: client, capacity: capacity, window: window, logger: logger}
}

func (l *RedisLimiter) Admit(ctx context.Context, key string) bool {
	if key == "" {
		key = defaultKey
	}
	redisKey := redisKeyPrefix + key

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limit lookup failed, admitting", slog.String("key", key), slog.Any("error", err))
		return true
	}
	if cnt == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.Warn("rate limit expiry failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return cnt <= int64(l.capacity)
}
