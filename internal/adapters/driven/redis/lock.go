package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FleetLock = (*FleetLock)(nil)

// fleetLockKey is the single key guarding fleet runs. Tenant syncs must
// not run concurrently, so one lock covers the whole fleet.
const fleetLockKey = "notesync:lock:fleet"

// FleetLock implements driven.FleetLock using Redis SETNX with TTL.
// A unique owner ID prevents one instance from releasing a lock another
// instance holds.
type FleetLock struct {
	client  *redis.Client
	ownerID string
}

// NewFleetLock creates a new Redis-backed fleet lock.
// The owner ID is generated automatically to identify this instance.
func NewFleetLock(client *redis.Client) *FleetLock {
	return &FleetLock{
		client:  client,
		ownerID: generateOwnerID(),
	}
}

// generateOwnerID creates a unique identifier for this lock holder.
// Format: hostname:pid:random
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// Acquire attempts to take the fleet lock with the given TTL.
// Uses Redis SETNX for atomic acquisition. Returns false when another
// instance already holds the lock.
func (l *FleetLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, fleetLockKey, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire fleet lock: %w", err)
	}
	return acquired, nil
}

// releaseScript deletes the lock only when the current owner matches,
// so an expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release frees the fleet lock if this instance holds it.
// Safe to call when the lock is not held or has already expired.
func (l *FleetLock) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, l.client, []string{fleetLockKey}, l.ownerID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release fleet lock: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *FleetLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID returns the unique identifier for this lock instance.
func (l *FleetLock) OwnerID() string {
	return l.ownerID
}
