package mocks

import (
	"context"
	"fmt"
	"sync"
)

// MockTokenSupplier is a mock implementation of TokenSupplier for testing.
// By default it issues "token-1", "token-2", ... with forced renewals
// advancing the sequence. TokenFn overrides everything.
type MockTokenSupplier struct {
	mu     sync.Mutex
	issued int
	renews int

	TokenFn func(ctx context.Context, tenantID int64, forceRenew bool) (string, error)
}

// NewMockTokenSupplier creates a new MockTokenSupplier.
func NewMockTokenSupplier() *MockTokenSupplier {
	return &MockTokenSupplier{}
}

func (m *MockTokenSupplier) Token(ctx context.Context, tenantID int64, forceRenew bool) (string, error) {
	if m.TokenFn != nil {
		if forceRenew {
			m.mu.Lock()
			m.renews++
			m.mu.Unlock()
		}
		return m.TokenFn(ctx, tenantID, forceRenew)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if forceRenew || m.issued == 0 {
		m.issued++
		if forceRenew {
			m.renews++
		}
	}
	return fmt.Sprintf("token-%d", m.issued), nil
}

// Helper methods for testing

// Renewals returns how many forced renewals were requested.
func (m *MockTokenSupplier) Renewals() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renews
}

// Current returns the most recently issued token, or "" before any issue.
func (m *MockTokenSupplier) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.issued == 0 {
		return ""
	}
	return fmt.Sprintf("token-%d", m.issued)
}

func (m *MockTokenSupplier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued = 0
	m.renews = 0
}
