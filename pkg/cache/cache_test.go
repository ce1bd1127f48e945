package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	Price decimal.Decimal `json:"price"`
	At    int64           `json:"at"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	var got quote
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "k", quote{Price: decimal.RequireFromString("1234.56"), At: 7}, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1234.56")))
	assert.EqualValues(t, 7, got.At)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func TestMultiLevelBackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(time.Minute, time.Minute)
	remote := NewMemoryCache(time.Minute, time.Minute)
	m := NewMultiLevelCache(local, remote)

	require.NoError(t, remote.Set(ctx, "k", quote{At: 1}, time.Minute))

	var got quote
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.EqualValues(t, 1, got.At)

	// L1 已回写
	var fromLocal quote
	require.NoError(t, local.Get(ctx, "k", &fromLocal))
	assert.EqualValues(t, 1, fromLocal.At)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrMiss)
}
