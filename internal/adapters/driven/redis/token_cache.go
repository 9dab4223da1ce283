package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TokenCache = (*TokenCache)(nil)

// TokenCache implements driven.TokenCache using Redis.
// Entries carry their own TTL, so expired credentials disappear without
// any sweeping. Sharing the cache across instances means one login per
// tenant serves the whole deployment.
type TokenCache struct {
	client *redis.Client
}

// NewTokenCache creates a new Redis-backed token cache.
func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

// Get returns the cached credential for the key.
func (c *TokenCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cached token: %w", err)
	}
	return value, nil
}

// Set stores a credential with a time-to-live.
func (c *TokenCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// Delete removes a cached credential. Deleting a missing key is a no-op.
func (c *TokenCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cached token: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (c *TokenCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
