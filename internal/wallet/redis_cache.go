package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wallet_api/internal/ledger"
)

const cacheKeyPrefix = "wallet:v1:"

// RedisCache stores JSON-encoded wallet snapshots in Redis without expiry.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache builds a Cache on top of an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, id uuid.UUID) (ledger.Wallet, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.Wallet{}, false, nil
	}
	if err != nil {
		return ledger.Wallet{}, false, fmt.Errorf("cache get: %w", err)
	}

	var w ledger.Wallet
	if err := json.Unmarshal(raw, &w); err != nil {
		return ledger.Wallet{}, false, fmt.Errorf("decode cached wallet: %w", err)
	}
	return w, true, nil
}

func (c *RedisCache) Put(ctx context.Context, w ledger.Wallet) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(w.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (c *RedisCache) Evict(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

func cacheKey(id uuid.UUID) string {
	return cacheKeyPrefix + id.String()
}
