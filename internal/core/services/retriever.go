package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Retriever fetches the complete note-header snapshot for one tenant.
// Pagination is resumable: a credential rejection mid-loop renews the
// token and retries the same page, keeping every page accumulated so far.
// Only classified-transient failures restart the whole retrieval, and only
// up to the attempt ceiling. A retrieval either yields the full snapshot
// or fails; partial results are never returned.
type Retriever struct {
	source driven.NoteSource
	tokens driven.TokenSupplier
	logger *slog.Logger

	maxAttempts    int
	retryDelay     time.Duration
	pageDelay      time.Duration
	authRetryDelay time.Duration
}

// RetrieverConfig holds dependencies and retry knobs for the retriever.
// Knobs are explicit so tests can shrink the delays.
type RetrieverConfig struct {
	Source driven.NoteSource
	Tokens driven.TokenSupplier
	Logger *slog.Logger

	MaxAttempts    int           // full restarts from page 0 (default: 3)
	RetryDelay     time.Duration // scaled by attempt number (default: 2s)
	PageDelay      time.Duration // pacing between pages (default: 200ms)
	AuthRetryDelay time.Duration // pause after an in-place renewal (default: 1s)
}

// NewRetriever creates a new retriever.
func NewRetriever(cfg RetrieverConfig) *Retriever {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 2 * time.Second
	}
	pageDelay := cfg.PageDelay
	if pageDelay == 0 {
		pageDelay = 200 * time.Millisecond
	}
	authRetryDelay := cfg.AuthRetryDelay
	if authRetryDelay == 0 {
		authRetryDelay = time.Second
	}

	return &Retriever{
		source:         cfg.Source,
		tokens:         cfg.Tokens,
		logger:         logger,
		maxAttempts:    maxAttempts,
		retryDelay:     retryDelay,
		pageDelay:      pageDelay,
		authRetryDelay: authRetryDelay,
	}
}

// FetchAll retrieves every note header for the tenant, starting from the
// given credential. Transient failures retry the whole pagination with an
// increasing delay; an auth failure that escapes the page loop renews the
// credential before the next attempt.
func (r *Retriever) FetchAll(ctx context.Context, tenantID int64, token string) ([]domain.NoteRecord, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := pause(ctx, time.Duration(attempt-1)*r.retryDelay); err != nil {
				return nil, err
			}
		}

		notes, err := r.fetchPages(ctx, tenantID, &token)
		if err == nil {
			return notes, nil
		}
		lastErr = err

		switch {
		case domain.IsAuthError(err):
			r.logger.Warn("credential rejected, renewing before retry",
				"tenant_id", tenantID, "attempt", attempt, "error", err)
			fresh, renewErr := r.tokens.Token(ctx, tenantID, true)
			if renewErr != nil {
				return nil, fmt.Errorf("renew credential: %w", renewErr)
			}
			token = fresh
		case isTransient(err):
			r.logger.Warn("transient failure, will retry",
				"tenant_id", tenantID, "attempt", attempt, "error", err)
		default:
			return nil, fmt.Errorf("fetch notes for tenant %d: %w", tenantID, err)
		}
	}

	return nil, fmt.Errorf("fetch notes for tenant %d: %d attempts exhausted: %w",
		tenantID, r.maxAttempts, lastErr)
}

// fetchPages walks the page sequence once, accumulating every record. The
// token pointer is shared with the outer loop so an in-place renewal
// carries over to later pages and later attempts.
func (r *Retriever) fetchPages(ctx context.Context, tenantID int64, token *string) ([]domain.NoteRecord, error) {
	var notes []domain.NoteRecord
	renewedPage := -1

	for page := 0; ; {
		pageData, err := r.source.FetchPage(ctx, tenantID, *token, page)
		if err != nil {
			if domain.IsAuthError(err) && renewedPage != page {
				// Renew in place and retry the same page. Pages fetched
				// so far stay accumulated.
				r.logger.Info("credential expired mid-pagination, renewing",
					"tenant_id", tenantID, "page", page)
				fresh, renewErr := r.tokens.Token(ctx, tenantID, true)
				if renewErr != nil {
					return nil, fmt.Errorf("renew credential: %w", renewErr)
				}
				*token = fresh
				renewedPage = page
				if err := pause(ctx, r.authRetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		notes = append(notes, pageData.Notes...)

		// An empty page ends pagination even when the remote still claims
		// more results.
		if len(pageData.Notes) == 0 || !pageData.HasMore {
			return notes, nil
		}

		page++
		if err := pause(ctx, r.pageDelay); err != nil {
			return nil, err
		}
	}
}

// isTransient reports whether err is worth a full retrieval retry:
// timeouts, connection resets, DNS failures and 5xx responses.
func isTransient(err error) bool {
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		return remote.StatusCode >= 500
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET)
}

// pause sleeps for d unless the context ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
