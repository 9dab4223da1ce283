package mocks

import (
	"context"
	"sync"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// MockOutcomeSink is a mock implementation of OutcomeSink for testing.
type MockOutcomeSink struct {
	mu       sync.RWMutex
	outcomes []*domain.SyncOutcome

	// Custom behavior hooks (optional)
	RecordOutcomeFn func(ctx context.Context, outcome *domain.SyncOutcome) error
}

// NewMockOutcomeSink creates a new MockOutcomeSink.
func NewMockOutcomeSink() *MockOutcomeSink {
	return &MockOutcomeSink{}
}

func (m *MockOutcomeSink) RecordOutcome(ctx context.Context, outcome *domain.SyncOutcome) error {
	if m.RecordOutcomeFn != nil {
		return m.RecordOutcomeFn(ctx, outcome)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func (m *MockOutcomeSink) ListRecent(ctx context.Context, limit int) ([]*domain.SyncOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.SyncOutcome
	for i := len(m.outcomes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.outcomes[i])
	}
	return out, nil
}

// Helper methods for testing

// Outcomes returns every recorded outcome in record order.
func (m *MockOutcomeSink) Outcomes() []*domain.SyncOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SyncOutcome, len(m.outcomes))
	copy(out, m.outcomes)
	return out
}

func (m *MockOutcomeSink) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.outcomes)
}

func (m *MockOutcomeSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = nil
}
