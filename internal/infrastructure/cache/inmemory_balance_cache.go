package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// InMemoryBalanceCache caches the derived cash balance in process memory.
// This is suitable for single-instance deployments and testing.
type InMemoryBalanceCache struct {
	mu        sync.RWMutex
	balance   decimal.Decimal
	expiresAt time.Time
	set       bool
	ttl       time.Duration
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
func NewInMemoryBalanceCache(ttl time.Duration) *InMemoryBalanceCache {
	return &InMemoryBalanceCache{ttl: ttl}
}

// GetBalance returns the cached balance and whether a live entry was present
func (c *InMemoryBalanceCache) GetBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.set || time.Now().After(c.expiresAt) {
		return decimal.Zero, false, nil
	}
	return c.balance, true, nil
}

// SetBalance stores the balance with the configured TTL
func (c *InMemoryBalanceCache) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balance = balance
	c.expiresAt = time.Now().Add(c.ttl)
	c.set = true
	return nil
}

// Invalidate drops the cached balance
func (c *InMemoryBalanceCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set = false
	return nil
}
