package driven

import (
	"context"
	"sync"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// TokenCache stores issued ERP credentials between runs so tenants are
// not re-authenticated on every page loop. Entries expire on their own;
// a forced renewal deletes the entry ahead of time.
type TokenCache interface {
	// Get returns the cached credential for the key.
	// Returns domain.ErrNotFound when absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a credential with a time-to-live.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a cached credential. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
}

// MemoryTokenCache implements TokenCache in process memory.
// It backs single-instance deployments without Redis; a restart loses
// the entries, which only costs one extra login per tenant.
type MemoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]memoryTokenEntry
}

type memoryTokenEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryTokenCache creates an empty in-memory token cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{entries: make(map[string]memoryTokenEntry)}
}

// Get returns the cached credential, dropping it when expired.
func (c *MemoryTokenCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", domain.ErrNotFound
	}
	return entry.value, nil
}

// Set stores a credential with a time-to-live.
func (c *MemoryTokenCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryTokenEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a cached credential.
func (c *MemoryTokenCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}
