package guard

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func client(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, c.Ping(context.Background()).Err())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(client(t))
	ctx := context.Background()
	subject := uuid.NewString()

	for range 3 {
		ok, _, err := rl.Allow(ctx, "cases", subject, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, ttl, err := rl.Allow(ctx, "cases", subject, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Positive(t, ttl)
}

func TestActionLockExcludes(t *testing.T) {
	lock := NewActionLock(client(t), time.Minute)
	ctx := context.Background()
	user := uuid.NewString()

	release, ok, err := lock.Acquire(ctx, user, "sell")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.Acquire(ctx, user, "sell")
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, err = lock.Acquire(ctx, user, "sell")
	require.NoError(t, err)
	assert.True(t, ok)
}
