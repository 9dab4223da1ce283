package mocks

import (
	"context"
	"sync"
	"time"
)

// MockFleetLock is a mock implementation of FleetLock for testing.
type MockFleetLock struct {
	mu     sync.Mutex
	held   bool
	expiry time.Time

	// Custom behavior hooks (optional)
	AcquireFn func(ttl time.Duration) (bool, error)
	ReleaseFn func() error
}

// NewMockFleetLock creates a new MockFleetLock.
func NewMockFleetLock() *MockFleetLock {
	return &MockFleetLock{}
}

func (m *MockFleetLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held && time.Now().Before(m.expiry) {
		return false, nil
	}
	m.held = true
	m.expiry = time.Now().Add(ttl)
	return true, nil
}

func (m *MockFleetLock) Release(ctx context.Context) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
	return nil
}

// Helper methods for testing

// SetHeld forces the lock into the held state, as if another instance owns it.
func (m *MockFleetLock) SetHeld(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = true
	m.expiry = time.Now().Add(ttl)
}

// IsHeld reports whether the lock is currently held.
func (m *MockFleetLock) IsHeld() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held && time.Now().Before(m.expiry)
}

func (m *MockFleetLock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
}
