package driven

import (
	"context"
	"time"
)

// FleetLock serializes fleet runs across instances. Tenant syncs are not
// safe to run concurrently for the same tenant, so at most one fleet run
// may be active at a time.
type FleetLock interface {
	// Acquire attempts to take the fleet lock with the given TTL.
	// Returns false when another instance already holds it.
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)

	// Release frees the lock if this instance holds it. Best-effort; the
	// TTL expires it anyway.
	Release(ctx context.Context) error
}
