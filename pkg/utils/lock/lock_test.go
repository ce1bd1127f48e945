package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	l := NewLocalLock()
	l.nowFn = func() time.Time { return now }

	token, ok, err := l.Acquire(ctx, "sync", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, _ = l.Acquire(ctx, "sync", time.Minute)
	assert.False(t, ok, "second acquire must fail while held")

	_, ok, _ = l.Acquire(ctx, "other", time.Minute)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, l.Release(ctx, "sync", token))
	_, ok, _ = l.Acquire(ctx, "sync", time.Minute)
	assert.True(t, ok)

	// 过期后可重新获取
	now = now.Add(2 * time.Minute)
	_, ok, _ = l.Acquire(ctx, "sync", time.Minute)
	assert.True(t, ok)
}

func TestLocalLockStaleReleaseKeepsNewHolder(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	l := NewLocalLock()
	l.nowFn = func() time.Time { return now }

	first, ok, err := l.Acquire(ctx, "sync", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	second, ok, err := l.Acquire(ctx, "sync", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	// 第一个持有者迟到的释放不影响第二个
	require.NoError(t, l.Release(ctx, "sync", first))
	_, ok, _ = l.Acquire(ctx, "sync", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "sync", second))
	_, ok, _ = l.Acquire(ctx, "sync", time.Minute)
	assert.True(t, ok)
}
