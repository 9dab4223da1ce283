package mocks

import (
	"context"
	"sync"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// FetchCall records one FetchPage invocation for test assertions.
type FetchCall struct {
	TenantID int64
	Token    string
	Page     int
}

// MockNoteSource is a mock implementation of NoteSource for testing.
// By default it serves canned pages; FetchPageFn overrides everything.
type MockNoteSource struct {
	mu    sync.Mutex
	pages []domain.NotePage
	calls []FetchCall

	FetchPageFn func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error)
}

// NewMockNoteSource creates a new MockNoteSource.
func NewMockNoteSource() *MockNoteSource {
	return &MockNoteSource{}
}

// SetPages installs canned pages. Every page except the last reports more
// pages available.
func (m *MockNoteSource) SetPages(pages ...[]domain.NoteRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = nil
	for i, notes := range pages {
		m.pages = append(m.pages, domain.NotePage{
			Notes:   notes,
			HasMore: i < len(pages)-1,
		})
	}
}

func (m *MockNoteSource) FetchPage(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, FetchCall{TenantID: tenantID, Token: token, Page: page})
	m.mu.Unlock()

	if m.FetchPageFn != nil {
		return m.FetchPageFn(ctx, tenantID, token, page)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if page < 0 || page >= len(m.pages) {
		return &domain.NotePage{}, nil
	}
	p := m.pages[page]
	return &p, nil
}

// Helper methods for testing

func (m *MockNoteSource) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FetchCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockNoteSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *MockNoteSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = nil
	m.calls = nil
}
