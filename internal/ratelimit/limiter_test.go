package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(3, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.EqualValues(t, 3-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, 50*time.Second, res.RetryAfter)

	other, err := l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	require.True(t, other.Allowed, "keys are limited independently")

	now = now.Add(time.Minute)
	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, res.Allowed, "next window starts from scratch")
	require.EqualValues(t, 1, res.Hits)
}

func TestNew(t *testing.T) {
	l, err := New(Config{Driver: DriverMemory, Max: 1, Window: time.Second})
	require.NoError(t, err)
	require.IsType(t, &MemoryLimiter{}, l)

	_, err = New(Config{Driver: "etcd", Max: 1, Window: time.Second})
	require.Error(t, err)

	_, err = New(Config{Driver: DriverMemory})
	require.Error(t, err)
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("CCX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CCX_TEST_REDIS_ADDR is not set")
	}
	ctx := context.Background()
	client := rdb.NewClient(&rdb.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, "ccx:test:"+t.Name()+":", 2, time.Minute)
	key := time.Now().Format(time.RFC3339Nano)

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Positive(t, res.RetryAfter)
}
