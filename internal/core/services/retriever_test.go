package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven/mocks"
)

// Test helper to create a Retriever with mocks and fast delays
func createTestRetriever(t *testing.T) (*Retriever, *mocks.MockNoteSource, *mocks.MockTokenSupplier) {
	t.Helper()

	source := mocks.NewMockNoteSource()
	tokens := mocks.NewMockTokenSupplier()

	retriever := NewRetriever(RetrieverConfig{
		Source:         source,
		Tokens:         tokens,
		MaxAttempts:    3,
		RetryDelay:     time.Millisecond,
		PageDelay:      time.Millisecond,
		AuthRetryDelay: time.Millisecond,
	})

	return retriever, source, tokens
}

// makeNotes builds minimal note records with the given ids.
func makeNotes(ids ...int64) []domain.NoteRecord {
	notes := make([]domain.NoteRecord, 0, len(ids))
	for _, id := range ids {
		notes = append(notes, domain.NoteRecord{NoteID: id, MovementType: "V"})
	}
	return notes
}

// noteIDs extracts the ids from a snapshot in order.
func noteIDs(notes []domain.NoteRecord) []int64 {
	ids := make([]int64, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.NoteID)
	}
	return ids
}

// TestNewRetriever_Defaults tests that zero config fields get defaults
func TestNewRetriever_Defaults(t *testing.T) {
	r := NewRetriever(RetrieverConfig{
		Source: mocks.NewMockNoteSource(),
		Tokens: mocks.NewMockTokenSupplier(),
	})

	if r.maxAttempts != 3 {
		t.Errorf("expected 3 max attempts, got %d", r.maxAttempts)
	}
	if r.retryDelay != 2*time.Second {
		t.Errorf("expected retry delay 2s, got %v", r.retryDelay)
	}
	if r.pageDelay != 200*time.Millisecond {
		t.Errorf("expected page delay 200ms, got %v", r.pageDelay)
	}
	if r.authRetryDelay != time.Second {
		t.Errorf("expected auth retry delay 1s, got %v", r.authRetryDelay)
	}
	if r.logger == nil {
		t.Error("expected non-nil logger")
	}
}

// TestFetchAll_SinglePage tests retrieval of a single final page
func TestFetchAll_SinglePage(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)
	source.SetPages(makeNotes(1, 2, 3))

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(notes))
	}

	calls := source.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 fetch call, got %d", len(calls))
	}
	if calls[0].Page != 0 || calls[0].Token != "tok" {
		t.Errorf("expected page 0 with token 'tok', got page %d token %q", calls[0].Page, calls[0].Token)
	}
}

// TestFetchAll_MultiplePages tests accumulation across the page sequence
func TestFetchAll_MultiplePages(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)
	source.SetPages(makeNotes(1, 2), makeNotes(3, 4), makeNotes(5))

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := noteIDs(notes)
	want := []int64{1, 2, 3, 4, 5}
	if len(ids) != len(want) {
		t.Fatalf("expected %d notes, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("expected note %d at position %d, got %d", want[i], i, ids[i])
		}
	}

	calls := source.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 fetch calls, got %d", len(calls))
	}
	for i, call := range calls {
		if call.Page != i {
			t.Errorf("expected call %d for page %d, got page %d", i, i, call.Page)
		}
	}
}

// TestFetchAll_EmptyPageEndsPagination tests that an empty page stops the
// loop even when the remote still reports more results
func TestFetchAll_EmptyPageEndsPagination(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)

	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		if page == 0 {
			return &domain.NotePage{Notes: makeNotes(1, 2), HasMore: true}, nil
		}
		// Empty page that still claims more results
		return &domain.NotePage{Notes: nil, HasMore: true}, nil
	}

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("expected 2 notes, got %d", len(notes))
	}
	if source.CallCount() != 2 {
		t.Errorf("expected pagination to stop after the empty page, got %d calls", source.CallCount())
	}
}

// TestFetchAll_TokenExpiryResumesSamePage tests that a credential
// rejection mid-pagination renews the token and resumes from the same
// page without losing pages already fetched
func TestFetchAll_TokenExpiryResumesSamePage(t *testing.T) {
	retriever, source, tokens := createTestRetriever(t)

	pages := [][]domain.NoteRecord{
		makeNotes(1, 2),
		makeNotes(3, 4),
		makeNotes(5, 6),
		makeNotes(7, 8),
	}
	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		// The initial credential dies on page 2
		if page == 2 && token == "stale-token" {
			return nil, &domain.RemoteError{StatusCode: 401, Body: "token expired"}
		}
		return &domain.NotePage{Notes: pages[page], HasMore: page < len(pages)-1}, nil
	}

	notes, err := retriever.FetchAll(context.Background(), 1, "stale-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 8 {
		t.Fatalf("expected the complete 8-note snapshot, got %d", len(notes))
	}

	ids := noteIDs(notes)
	for i := int64(1); i <= 8; i++ {
		if ids[i-1] != i {
			t.Fatalf("expected notes in page order, got %v", ids)
		}
	}

	if tokens.Renewals() != 1 {
		t.Errorf("expected exactly 1 renewal, got %d", tokens.Renewals())
	}

	// Page 2 fetched twice: once rejected, once with the fresh token
	calls := source.Calls()
	wantPages := []int{0, 1, 2, 2, 3}
	if len(calls) != len(wantPages) {
		t.Fatalf("expected %d fetch calls, got %d", len(wantPages), len(calls))
	}
	for i, call := range calls {
		if call.Page != wantPages[i] {
			t.Errorf("expected call %d for page %d, got page %d", i, wantPages[i], call.Page)
		}
	}
	if calls[3].Token != "token-1" {
		t.Errorf("expected retried page to use the renewed token, got %q", calls[3].Token)
	}
}

// TestFetchAll_TransientFailuresThenSuccess tests that transient failures
// retry the retrieval and eventually return the full snapshot
func TestFetchAll_TransientFailuresThenSuccess(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)

	failures := 0
	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		if failures < 2 {
			failures++
			return nil, &domain.RemoteError{StatusCode: 503, Body: "unavailable"}
		}
		return &domain.NotePage{Notes: makeNotes(1, 2, 3)}, nil
	}

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 3 {
		t.Errorf("expected 3 notes after retries, got %d", len(notes))
	}
	if source.CallCount() != 3 {
		t.Errorf("expected 3 fetch calls (2 failures + 1 success), got %d", source.CallCount())
	}
}

// TestFetchAll_TransientRetriesExhausted tests that persistent transient
// failures give up after exactly the attempt ceiling
func TestFetchAll_TransientRetriesExhausted(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)

	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		return nil, &domain.RemoteError{StatusCode: 500, Body: "boom"}
	}

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if notes != nil {
		t.Errorf("expected no snapshot on failure, got %d notes", len(notes))
	}
	if source.CallCount() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", source.CallCount())
	}
	if !strings.Contains(err.Error(), "attempts exhausted") {
		t.Errorf("expected error to mention exhausted attempts, got: %v", err)
	}

	var remote *domain.RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != 500 {
		t.Errorf("expected wrapped remote error 500, got: %v", err)
	}
}

// TestFetchAll_PermanentFailureAborts tests that a 4xx other than auth
// fails immediately without retries
func TestFetchAll_PermanentFailureAborts(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)

	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		return nil, &domain.RemoteError{StatusCode: 404, Body: "no such service"}
	}

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err == nil {
		t.Fatal("expected error for permanent failure")
	}
	if notes != nil {
		t.Errorf("expected no snapshot, got %d notes", len(notes))
	}
	if source.CallCount() != 1 {
		t.Errorf("expected no retries for a permanent failure, got %d calls", source.CallCount())
	}
}

// TestFetchAll_NoPartialSnapshot tests that a failure on a later page
// never leaks the pages fetched before it
func TestFetchAll_NoPartialSnapshot(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)

	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		if page == 0 {
			return &domain.NotePage{Notes: makeNotes(1, 2), HasMore: true}, nil
		}
		return nil, &domain.RemoteError{StatusCode: 502, Body: "bad gateway"}
	}

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err == nil {
		t.Fatal("expected error")
	}
	if notes != nil {
		t.Errorf("expected nil snapshot, got %d notes", len(notes))
	}
	// Each attempt fetches page 0 successfully and dies on page 1
	if source.CallCount() != 6 {
		t.Errorf("expected 6 fetch calls across 3 attempts, got %d", source.CallCount())
	}
}

// TestFetchAll_PersistentAuthFailure tests that a credential rejected even
// after renewal consumes retrieval attempts instead of looping forever
func TestFetchAll_PersistentAuthFailure(t *testing.T) {
	retriever, source, tokens := createTestRetriever(t)

	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		return nil, &domain.RemoteError{StatusCode: 403, Body: "forbidden"}
	}

	notes, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err == nil {
		t.Fatal("expected error when every credential is rejected")
	}
	if notes != nil {
		t.Errorf("expected no snapshot, got %d notes", len(notes))
	}
	if !domain.IsAuthError(err) {
		t.Errorf("expected wrapped auth error, got: %v", err)
	}

	// Per attempt: one rejected fetch, one in-place renewal, one rejected
	// retry of the same page, then a renewal before the next attempt.
	if source.CallCount() != 6 {
		t.Errorf("expected 6 fetch calls across 3 attempts, got %d", source.CallCount())
	}
	if tokens.Renewals() != 6 {
		t.Errorf("expected 6 renewals, got %d", tokens.Renewals())
	}
}

// TestFetchAll_RenewalFailureAborts tests that a failing token supplier
// ends the retrieval
func TestFetchAll_RenewalFailureAborts(t *testing.T) {
	retriever, source, tokens := createTestRetriever(t)

	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		return nil, &domain.RemoteError{StatusCode: 401, Body: "expired"}
	}
	tokens.TokenFn = func(ctx context.Context, tenantID int64, forceRenew bool) (string, error) {
		return "", errors.New("login service down")
	}

	_, err := retriever.FetchAll(context.Background(), 1, "tok")
	if err == nil {
		t.Fatal("expected error when renewal fails")
	}
	if !strings.Contains(err.Error(), "renew credential") {
		t.Errorf("expected error to mention renewal, got: %v", err)
	}
	if source.CallCount() != 1 {
		t.Errorf("expected 1 fetch call before the failed renewal, got %d", source.CallCount())
	}
}

// TestFetchAll_ContextCancelled tests that cancellation interrupts the
// retry pause
func TestFetchAll_ContextCancelled(t *testing.T) {
	retriever, source, _ := createTestRetriever(t)
	retriever.retryDelay = time.Minute

	source.FetchPageFn = func(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
		return nil, &domain.RemoteError{StatusCode: 500, Body: "boom"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := retriever.FetchAll(ctx, 1, "tok")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if source.CallCount() != 1 {
		t.Errorf("expected 1 fetch call before cancellation, got %d", source.CallCount())
	}
}

// timeoutError fakes a network timeout for classification tests.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// TestIsTransient tests the retryable-failure classification
func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &domain.RemoteError{StatusCode: 500}, true},
		{"bad gateway", &domain.RemoteError{StatusCode: 502}, true},
		{"wrapped server error", fmt.Errorf("call: %w", &domain.RemoteError{StatusCode: 503}), true},
		{"unauthorized", &domain.RemoteError{StatusCode: 401}, false},
		{"not found", &domain.RemoteError{StatusCode: 404}, false},
		{"timeout", timeoutError{}, true},
		{"wrapped timeout", fmt.Errorf("fetch: %w", timeoutError{}), true},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "erp.example.com"}, true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
