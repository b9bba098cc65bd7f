package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter implements fixed-window rate limiting using Redis.
// The window counter is shared across processes, so a scheduler daemon and
// an API server pointed at the same Redis respect one combined budget.
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters.
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "ecb")
	Limit  int           // Maximum requests allowed per window
	Window time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit.
// Returns (allowed, remaining, error).
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		// If Redis is disabled, allow all requests
		return true, cfg.Limit, nil
	}

	window := time.Now().UnixMilli() / cfg.Window.Milliseconds()
	key := fmt.Sprintf("%s:ratelimit:%s:%d", r.prefix, cfg.Key, window)

	rdb := r.client.Redis()

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr failed: %w", err)
	}
	if count == 1 {
		// First hit in this window owns the expiry
		if err := rdb.PExpire(ctx, key, cfg.Window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}

	if count > int64(cfg.Limit) {
		return false, 0, nil
	}

	return true, cfg.Limit - int(count), nil
}

// Wait blocks until a request is allowed or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
