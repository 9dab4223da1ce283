package driven

import (
	"context"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// MirrorStore handles note mirror persistence (PostgreSQL).
type MirrorStore interface {
	// Session acquires a dedicated store connection for one reconciliation
	// run. The caller owns it exclusively and must Close it on every path.
	Session(ctx context.Context) (MirrorSession, error)

	// Stats returns per-tenant mirror statistics, optionally filtered to a
	// single tenant.
	Stats(ctx context.Context, tenantID *int64) ([]domain.TenantSyncStats, error)
}

// MirrorSession is the connection-scoped command surface used while
// reconciling one tenant.
type MirrorSession interface {
	// MarkActiveStale flips every active row of the tenant to inactive in
	// one bulk statement, stamping the refresh time. Returns the number of
	// rows affected. Commits on its own before any batch begins.
	MarkActiveStale(ctx context.Context, tenantID int64, at time.Time) (int64, error)

	// Begin opens one batch transaction.
	Begin(ctx context.Context) (MirrorBatch, error)

	// Close releases the underlying connection.
	Close() error
}

// MirrorBatch is one bounded upsert transaction. A failed Insert or Update
// poisons only that record; the batch stays usable and commits the rest.
type MirrorBatch interface {
	// Exists reports whether a mirror row exists for (tenant, note).
	Exists(ctx context.Context, tenantID, noteID int64) (bool, error)

	// Insert creates a new active row with creation and refresh timestamps
	// set to at.
	Insert(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error

	// Update rewrites the business fields of an existing row and flips it
	// back to active with a fresh refresh timestamp. The creation timestamp
	// is never touched.
	Update(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error

	// Commit makes the batch durable.
	Commit() error

	// Rollback abandons the batch. Safe to call after Commit.
	Rollback() error
}
