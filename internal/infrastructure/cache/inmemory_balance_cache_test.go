package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBalanceCache(t *testing.T) {
	ctx := context.Background()

	t.Run("misses before anything is stored", func(t *testing.T) {
		cache := NewInMemoryBalanceCache(time.Hour)

		_, found, err := cache.GetBalance(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("returns the stored balance", func(t *testing.T) {
		cache := NewInMemoryBalanceCache(time.Hour)

		require.NoError(t, cache.SetBalance(ctx, decimal.NewFromFloat(512.50)))

		balance, found, err := cache.GetBalance(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, balance.Equal(decimal.NewFromFloat(512.50)))
	})

	t.Run("misses after invalidation", func(t *testing.T) {
		cache := NewInMemoryBalanceCache(time.Hour)

		require.NoError(t, cache.SetBalance(ctx, decimal.NewFromInt(100)))
		require.NoError(t, cache.Invalidate(ctx))

		_, found, err := cache.GetBalance(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("misses once the entry expires", func(t *testing.T) {
		cache := NewInMemoryBalanceCache(10 * time.Millisecond)

		require.NoError(t, cache.SetBalance(ctx, decimal.NewFromInt(100)))
		time.Sleep(20 * time.Millisecond)

		_, found, err := cache.GetBalance(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
