package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// MockMirrorStore is an in-memory MirrorStore for testing. Batches buffer
// their writes and apply them on Commit, so rollback behavior is
// observable. Failure hooks let tests poison individual operations.
type MockMirrorStore struct {
	mu   sync.RWMutex
	rows map[string]*domain.MirrorNote

	openSessions int
	commits      int
	rollbacks    int

	// Custom behavior hooks (optional)
	SessionFn   func(ctx context.Context) (driven.MirrorSession, error)
	MarkStaleFn func(tenantID int64, at time.Time) (int64, error)
	ExistsFn    func(tenantID, noteID int64) (bool, error)
	InsertFn    func(tenantID int64, note *domain.NoteRecord, at time.Time) error
	UpdateFn    func(tenantID int64, note *domain.NoteRecord, at time.Time) error
	CommitFn    func() error
	StatsFn     func(tenantID *int64) ([]domain.TenantSyncStats, error)
}

// NewMockMirrorStore creates a new MockMirrorStore.
func NewMockMirrorStore() *MockMirrorStore {
	return &MockMirrorStore{
		rows: make(map[string]*domain.MirrorNote),
	}
}

func rowKey(tenantID, noteID int64) string {
	return fmt.Sprintf("%d:%d", tenantID, noteID)
}

func (m *MockMirrorStore) Session(ctx context.Context) (driven.MirrorSession, error) {
	if m.SessionFn != nil {
		return m.SessionFn(ctx)
	}
	m.mu.Lock()
	m.openSessions++
	m.mu.Unlock()
	return &mockMirrorSession{store: m}, nil
}

func (m *MockMirrorStore) Stats(ctx context.Context, tenantID *int64) ([]domain.TenantSyncStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(tenantID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	byTenant := make(map[int64]*domain.TenantSyncStats)
	for _, row := range m.rows {
		if tenantID != nil && row.TenantID != *tenantID {
			continue
		}
		st, ok := byTenant[row.TenantID]
		if !ok {
			st = &domain.TenantSyncStats{TenantID: row.TenantID}
			byTenant[row.TenantID] = st
		}
		st.TotalNotes++
		if row.Active == domain.FlagActive {
			st.ActiveNotes++
		} else {
			st.InactiveNotes++
		}
		if st.LastRefreshAt == nil || row.RefreshedAt.After(*st.LastRefreshAt) {
			at := row.RefreshedAt
			st.LastRefreshAt = &at
		}
	}

	var out []domain.TenantSyncStats
	for _, st := range byTenant {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

type mockMirrorSession struct {
	store  *MockMirrorStore
	closed bool
}

func (s *mockMirrorSession) MarkActiveStale(ctx context.Context, tenantID int64, at time.Time) (int64, error) {
	if s.store.MarkStaleFn != nil {
		return s.store.MarkStaleFn(tenantID, at)
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var n int64
	for _, row := range s.store.rows {
		if row.TenantID == tenantID && row.Active == domain.FlagActive {
			row.Active = domain.FlagInactive
			row.RefreshedAt = at
			n++
		}
	}
	return n, nil
}

func (s *mockMirrorSession) Begin(ctx context.Context) (driven.MirrorBatch, error) {
	return &mockMirrorBatch{store: s.store}, nil
}

func (s *mockMirrorSession) Close() error {
	if !s.closed {
		s.closed = true
		s.store.mu.Lock()
		s.store.openSessions--
		s.store.mu.Unlock()
	}
	return nil
}

type mockMirrorBatch struct {
	store   *MockMirrorStore
	pending []func()
	done    bool
}

func (b *mockMirrorBatch) Exists(ctx context.Context, tenantID, noteID int64) (bool, error) {
	if b.store.ExistsFn != nil {
		return b.store.ExistsFn(tenantID, noteID)
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	_, ok := b.store.rows[rowKey(tenantID, noteID)]
	return ok, nil
}

func (b *mockMirrorBatch) Insert(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error {
	if b.store.InsertFn != nil {
		if err := b.store.InsertFn(tenantID, note, at); err != nil {
			return err
		}
	}
	n := *note
	b.pending = append(b.pending, func() {
		b.store.rows[rowKey(tenantID, n.NoteID)] = &domain.MirrorNote{
			TenantID:      tenantID,
			NoteID:        n.NoteID,
			OperationType: n.OperationType,
			SaleType:      n.SaleType,
			PartnerCode:   n.PartnerCode,
			Salesperson:   n.Salesperson,
			TotalAmount:   n.TotalAmount,
			NegotiatedAt:  n.NegotiatedAt,
			MovementType:  n.MovementType,
			Active:        domain.FlagActive,
			RefreshedAt:   at,
			CreatedAt:     at,
		}
	})
	return nil
}

func (b *mockMirrorBatch) Update(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error {
	if b.store.UpdateFn != nil {
		if err := b.store.UpdateFn(tenantID, note, at); err != nil {
			return err
		}
	}
	n := *note
	b.pending = append(b.pending, func() {
		row, ok := b.store.rows[rowKey(tenantID, n.NoteID)]
		if !ok {
			return
		}
		row.OperationType = n.OperationType
		row.SaleType = n.SaleType
		row.PartnerCode = n.PartnerCode
		row.Salesperson = n.Salesperson
		row.TotalAmount = n.TotalAmount
		row.NegotiatedAt = n.NegotiatedAt
		row.MovementType = n.MovementType
		row.Active = domain.FlagActive
		row.RefreshedAt = at
	})
	return nil
}

func (b *mockMirrorBatch) Commit() error {
	if b.store.CommitFn != nil {
		if err := b.store.CommitFn(); err != nil {
			return err
		}
	}
	if b.done {
		return nil
	}
	b.done = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, apply := range b.pending {
		apply()
	}
	b.pending = nil
	b.store.commits++
	return nil
}

func (b *mockMirrorBatch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	b.pending = nil

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.rollbacks++
	return nil
}

// Helper methods for testing

// Seed inserts a row directly, bypassing batch mechanics.
func (m *MockMirrorStore) Seed(row *domain.MirrorNote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rowKey(row.TenantID, row.NoteID)] = row
}

// Row returns the stored row for (tenant, note), or nil.
func (m *MockMirrorStore) Row(tenantID, noteID int64) *domain.MirrorNote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows[rowKey(tenantID, noteID)]
}

// ActiveNoteIDs returns the sorted note ids currently flagged active for
// the tenant.
func (m *MockMirrorStore) ActiveNoteIDs(tenantID int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for _, row := range m.rows {
		if row.TenantID == tenantID && row.Active == domain.FlagActive {
			ids = append(ids, row.NoteID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the total number of rows across tenants.
func (m *MockMirrorStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Commits returns how many batches committed.
func (m *MockMirrorStore) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

// Rollbacks returns how many batches rolled back.
func (m *MockMirrorStore) Rollbacks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rollbacks
}

// OpenSessions returns the number of sessions not yet closed.
func (m *MockMirrorStore) OpenSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openSessions
}

func (m *MockMirrorStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]*domain.MirrorNote)
	m.openSessions = 0
	m.commits = 0
	m.rollbacks = 0
}
