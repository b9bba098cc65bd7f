package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache provides typed caching utilities on top of Client.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper.
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value. A miss is not an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// Delete removes a cached value.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Del(ctx, fullKey).Err()
}

// DeletePrefix removes all cached values under a key prefix.
// Used to invalidate every cached history window after a refresh.
func (c *Cache) DeletePrefix(ctx context.Context, keyPrefix string) error {
	if !c.client.Enabled() {
		return nil
	}

	pattern := fmt.Sprintf("%s:cache:%s*", c.prefix, keyPrefix)
	iter := c.client.Redis().Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Redis().Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Predefined TTLs
const (
	TTLShort  = 10 * time.Minute // in-flight analysis windows
	TTLDaily  = 24 * time.Hour   // settled daily curves
	TTLStatic = 7 * 24 * time.Hour
)

// HistoryKey builds the cache key for a curve history window.
func HistoryKey(from, to time.Time) string {
	return fmt.Sprintf("curve:history:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// LatestDateKey is the cache key for the most recent available ECB date.
const LatestDateKey = "curve:latest-date"
