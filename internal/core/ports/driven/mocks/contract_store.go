package mocks

import (
	"context"
	"sync"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// MockContractStore is a mock implementation of ContractStore for testing.
type MockContractStore struct {
	mu        sync.RWMutex
	contracts map[int64]*domain.Contract
	lookups   int

	// Custom behavior hooks (optional)
	ActiveContractFn func(ctx context.Context, tenantID int64) (*domain.Contract, error)
}

// NewMockContractStore creates a new MockContractStore.
func NewMockContractStore() *MockContractStore {
	return &MockContractStore{
		contracts: make(map[int64]*domain.Contract),
	}
}

func (m *MockContractStore) ActiveContract(ctx context.Context, tenantID int64) (*domain.Contract, error) {
	m.mu.Lock()
	m.lookups++
	fn := m.ActiveContractFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, tenantID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	contract, ok := m.contracts[tenantID]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	return contract, nil
}

// Helper methods for testing

// SetContract registers the tenant's active contract.
func (m *MockContractStore) SetContract(contract *domain.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[contract.TenantID] = contract
}

// Lookups returns how many store lookups were made.
func (m *MockContractStore) Lookups() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookups
}

func (m *MockContractStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts = make(map[int64]*domain.Contract)
	m.lookups = 0
}
