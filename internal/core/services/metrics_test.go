package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Mock implementations for local testing

// MockNoteSource is a mock implementation of driven.NoteSource
type MockNoteSource struct {
	mock.Mock
}

func (m *MockNoteSource) FetchPage(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
	args := m.Called(ctx, tenantID, token, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotePage), args.Error(1)
}

// MockTokenSupplier is a mock implementation of driven.TokenSupplier
type MockTokenSupplier struct {
	mock.Mock
}

func (m *MockTokenSupplier) Token(ctx context.Context, tenantID int64, forceRenew bool) (string, error) {
	args := m.Called(ctx, tenantID, forceRenew)
	return args.String(0), args.Error(1)
}

// MockMirrorStore is a mock implementation of driven.MirrorStore
type MockMirrorStore struct {
	mock.Mock
}

func (m *MockMirrorStore) Session(ctx context.Context) (driven.MirrorSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driven.MirrorSession), args.Error(1)
}

func (m *MockMirrorStore) Stats(ctx context.Context, tenantID *int64) ([]domain.TenantSyncStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TenantSyncStats), args.Error(1)
}

// MockMirrorSession is a mock implementation of driven.MirrorSession
type MockMirrorSession struct {
	mock.Mock
}

func (m *MockMirrorSession) MarkActiveStale(ctx context.Context, tenantID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMirrorSession) Begin(ctx context.Context) (driven.MirrorBatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driven.MirrorBatch), args.Error(1)
}

func (m *MockMirrorSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMirrorBatch is a mock implementation of driven.MirrorBatch
type MockMirrorBatch struct {
	mock.Mock
}

func (m *MockMirrorBatch) Exists(ctx context.Context, tenantID, noteID int64) (bool, error) {
	args := m.Called(ctx, tenantID, noteID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMirrorBatch) Insert(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error {
	args := m.Called(ctx, tenantID, note, at)
	return args.Error(0)
}

func (m *MockMirrorBatch) Update(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error {
	args := m.Called(ctx, tenantID, note, at)
	return args.Error(0)
}

func (m *MockMirrorBatch) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMirrorBatch) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// TestMetrics_SuccessRecorded tests that a clean sync moves the success
// counter and the fetched-notes counter
func TestMetrics_SuccessRecorded(t *testing.T) {
	ctx := context.Background()

	successBefore := testutil.ToFloat64(syncRuns.WithLabelValues("success"))
	failureBefore := testutil.ToFloat64(syncRuns.WithLabelValues("failure"))
	fetchedBefore := testutil.ToFloat64(notesFetched)

	source := new(MockNoteSource)
	tokens := new(MockTokenSupplier)
	mirror := new(MockMirrorStore)
	session := new(MockMirrorSession)
	batch := new(MockMirrorBatch)

	// Forced renewal at the start of the run
	tokens.On("Token", ctx, int64(7), true).Return("tok-1", nil)

	// One page, two fresh notes
	page := &domain.NotePage{
		Notes: []domain.NoteRecord{
			{NoteID: 101, MovementType: "V"},
			{NoteID: 102, MovementType: "V"},
		},
		HasMore: false,
		Total:   2,
	}
	source.On("FetchPage", ctx, int64(7), "tok-1", 0).Return(page, nil)

	mirror.On("Session", ctx).Return(session, nil)
	session.On("MarkActiveStale", ctx, int64(7), mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	session.On("Begin", ctx).Return(batch, nil)
	session.On("Close").Return(nil)

	batch.On("Exists", ctx, int64(7), int64(101)).Return(false, nil)
	batch.On("Exists", ctx, int64(7), int64(102)).Return(false, nil)
	batch.On("Insert", ctx, int64(7), mock.AnythingOfType("*domain.NoteRecord"), mock.AnythingOfType("time.Time")).Return(nil)
	batch.On("Commit").Return(nil)

	orchestrator := NewSyncOrchestrator(SyncOrchestratorConfig{
		Retriever: NewRetriever(RetrieverConfig{
			Source:         source,
			Tokens:         tokens,
			RetryDelay:     time.Millisecond,
			PageDelay:      time.Millisecond,
			AuthRetryDelay: time.Millisecond,
		}),
		Reconciler: NewReconciler(ReconcilerConfig{}),
		Tokens:     tokens,
		Mirror:     mirror,
	})

	outcome := orchestrator.SyncTenant(ctx, 7, "acme")

	require.NotNil(t, outcome)
	require.True(t, outcome.Success, "sync failed: %s", outcome.Error)
	assert.Equal(t, 2, outcome.Fetched)
	assert.Equal(t, 2, outcome.Inserted)

	assert.Equal(t, successBefore+1, testutil.ToFloat64(syncRuns.WithLabelValues("success")))
	assert.Equal(t, failureBefore, testutil.ToFloat64(syncRuns.WithLabelValues("failure")))
	assert.Equal(t, fetchedBefore+2, testutil.ToFloat64(notesFetched))

	source.AssertExpectations(t)
	tokens.AssertExpectations(t)
	mirror.AssertExpectations(t)
	session.AssertExpectations(t)
	batch.AssertExpectations(t)
}

// TestMetrics_FailureRecorded tests that a failed run moves only the
// failure counter
func TestMetrics_FailureRecorded(t *testing.T) {
	ctx := context.Background()

	successBefore := testutil.ToFloat64(syncRuns.WithLabelValues("success"))
	failureBefore := testutil.ToFloat64(syncRuns.WithLabelValues("failure"))
	fetchedBefore := testutil.ToFloat64(notesFetched)

	tokens := new(MockTokenSupplier)
	tokens.On("Token", ctx, int64(9), true).Return("", errors.New("login rejected"))

	orchestrator := NewSyncOrchestrator(SyncOrchestratorConfig{
		Retriever: NewRetriever(RetrieverConfig{
			Source:         new(MockNoteSource),
			Tokens:         tokens,
			RetryDelay:     time.Millisecond,
			PageDelay:      time.Millisecond,
			AuthRetryDelay: time.Millisecond,
		}),
		Reconciler: NewReconciler(ReconcilerConfig{}),
		Tokens:     tokens,
		Mirror:     new(MockMirrorStore),
	})

	outcome := orchestrator.SyncTenant(ctx, 9, "beta")

	require.NotNil(t, outcome)
	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "login rejected")

	assert.Equal(t, failureBefore+1, testutil.ToFloat64(syncRuns.WithLabelValues("failure")))
	assert.Equal(t, successBefore, testutil.ToFloat64(syncRuns.WithLabelValues("success")))
	assert.Equal(t, fetchedBefore, testutil.ToFloat64(notesFetched))

	tokens.AssertExpectations(t)
}
