package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FleetLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements FleetLock using PostgreSQL advisory locks.
//
// IMPORTANT LIMITATIONS:
// - Advisory locks are connection-scoped, not TTL-based
// - The TTL parameter is ignored (locks don't expire on their own)
// - If the holding connection is lost, the lock is released automatically
//
// For multi-instance deployments, the Redis lock is recommended. This is
// the fallback when Redis is unavailable.
type AdvisoryLock struct {
	db *DB

	mu   sync.Mutex
	conn *sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// fleetLockID is the advisory lock key guarding fleet runs.
var fleetLockID = hashLockName("notesync:lock:fleet")

// hashLockName converts the lock name to a 64-bit integer for PostgreSQL
// advisory locks. FNV-1a keeps the id stable across instances.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

// Acquire attempts to take the fleet lock on a dedicated connection.
// Advisory locks belong to the connection that took them, so the
// connection is pinned until Release. The TTL parameter is ignored.
func (l *AdvisoryLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Already holding; not reentrant, same as the Redis lock.
	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire fleet lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", fleetLockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("acquire fleet lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Release frees the fleet lock and returns the pinned connection to the
// pool. Safe to call when the lock is not held.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}

	var released bool
	err := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", fleetLockID).Scan(&released)
	closeErr := l.conn.Close()
	l.conn = nil

	if err != nil {
		return fmt.Errorf("release fleet lock: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("release fleet lock connection: %w", closeErr)
	}
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
