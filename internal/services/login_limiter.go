package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per email in Redis. A nil limiter allows everything.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter returns nil when client is nil
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	if client == nil || maxAttempts <= 0 {
		return nil
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func attemptsKey(email string) string {
	return fmt.Sprintf("rate_limit:login:%s", strings.ToLower(email))
}

// Allowed reports whether another attempt may be made for email
func (l *LoginLimiter) Allowed(ctx context.Context, email string) (bool, error) {
	if l == nil {
		return true, nil
	}
	count, err := l.client.Get(ctx, attemptsKey(email)).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return count < l.maxAttempts, nil
}

// RecordFailure increments the counter, starting the window on the first failure
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	key := attemptsKey(email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

// Reset clears the counter after a successful login
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	return l.client.Del(ctx, attemptsKey(email)).Err()
}
