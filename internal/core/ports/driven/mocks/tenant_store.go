package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// MockTenantStore is a mock implementation of TenantStore for testing.
type MockTenantStore struct {
	mu      sync.RWMutex
	tenants map[int64]*domain.Tenant

	// Custom behavior hooks (optional)
	ListActiveFn func(ctx context.Context) ([]*domain.Tenant, error)
	GetFn        func(ctx context.Context, id int64) (*domain.Tenant, error)
}

// NewMockTenantStore creates a new MockTenantStore.
func NewMockTenantStore() *MockTenantStore {
	return &MockTenantStore{
		tenants: make(map[int64]*domain.Tenant),
	}
}

// Add registers a tenant.
func (m *MockTenantStore) Add(tenant *domain.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[tenant.ID] = tenant
}

func (m *MockTenantStore) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Tenant
	for _, t := range m.tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockTenantStore) Get(ctx context.Context, id int64) (*domain.Tenant, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

// Helper methods for testing

func (m *MockTenantStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants = make(map[int64]*domain.Tenant)
}

func (m *MockTenantStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tenants)
}
