package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const balanceKey = "cashbox:balance"

// RedisBalanceCache caches the derived cash balance in Redis so the
// read path skips the aggregate query between writes. Suitable for
// distributed deployments where multiple instances share one cashbox.
type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBalanceCache creates a cache backed by a fresh Redis client
func NewRedisBalanceCache(cfg config.RedisConfig, ttl time.Duration) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBalanceCache{client: client, ttl: ttl}, nil
}

// NewRedisBalanceCacheWithClient creates a cache over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisBalanceCacheWithClient(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, ttl: ttl}
}

// GetBalance returns the cached balance and whether the key was present
func (c *RedisBalanceCache) GetBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, balanceKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to read cached balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		// A corrupt entry behaves like a miss
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

// SetBalance stores the balance with the configured TTL
func (c *RedisBalanceCache) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	if err := c.client.Set(ctx, balanceKey, balance.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

// Invalidate drops the cached balance. Write operations call this so
// the next read recomputes from the ledger.
func (c *RedisBalanceCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, balanceKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate balance cache: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}
