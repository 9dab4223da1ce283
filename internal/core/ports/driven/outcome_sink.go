package driven

import (
	"context"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// OutcomeSink persists sync outcomes for auditing. Writes are best-effort
// from the orchestrator's perspective: a sink failure never changes the
// outcome returned to the caller.
type OutcomeSink interface {
	// RecordOutcome appends one outcome to the audit log.
	RecordOutcome(ctx context.Context, outcome *domain.SyncOutcome) error

	// ListRecent returns the most recent outcomes, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.SyncOutcome, error)
}
