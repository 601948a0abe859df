// Package guard throttles and debounces player actions through redis.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit for subject in the current window. It reports the
// remaining TTL when the limit is exceeded.
func (rl *RateLimiter) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (bool, time.Duration, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", scope, subject)
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}
	if count == 1 {
		rl.client.Expire(ctx, key, window)
	}
	if count > int64(limit) {
		ttl, _ := rl.client.TTL(ctx, key).Result()
		return false, ttl, nil
	}
	return true, 0, nil
}

// ActionLock lets one request per user and action through at a time.
type ActionLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewActionLock(client *redis.Client, ttl time.Duration) *ActionLock {
	return &ActionLock{client: client, ttl: ttl}
}

// Acquire takes the lock and returns its release func. ok is false while
// another holder has it.
func (l *ActionLock) Acquire(ctx context.Context, userID, action string) (release func(), ok bool, err error) {
	key := fmt.Sprintf("action_lock:%s:%s", action, userID)
	ok, err = l.client.SetNX(ctx, key, 1, l.ttl).Result()
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() { l.client.Del(context.Background(), key) }, true, nil
}
