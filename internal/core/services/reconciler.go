package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Reconciler converts a full snapshot into mirror-table mutations. Every
// active row is stale-marked first in one bulk statement, then the
// snapshot is upserted back in bounded batches; rows missing from the
// snapshot simply stay inactive. Rows are never physically deleted.
type Reconciler struct {
	batchSize int
	logger    *slog.Logger
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Logger    *slog.Logger
	BatchSize int // records per batch transaction (default: 100)
}

// NewReconciler creates a new reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Reconciler{
		batchSize: batchSize,
		logger:    logger,
	}
}

// Reconcile applies the snapshot to the tenant's mirror rows through the
// given session. The stale-mark is durable before the first batch begins,
// so an interruption leaves a transient all-inactive state that the next
// run repairs. Returns the aggregated counters.
func (rc *Reconciler) Reconcile(ctx context.Context, sess driven.MirrorSession, tenantID int64, snapshot []domain.NoteRecord) (domain.ReconcileResult, error) {
	var res domain.ReconcileResult

	now := time.Now().UTC()
	stale, err := sess.MarkActiveStale(ctx, tenantID, now)
	if err != nil {
		return res, fmt.Errorf("mark stale: %w", err)
	}
	res.StaleMarked = stale

	for start := 0; start < len(snapshot); start += rc.batchSize {
		end := start + rc.batchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		if err := rc.applyBatch(ctx, sess, tenantID, snapshot[start:end], now, &res); err != nil {
			return res, err
		}
	}

	rc.logger.Info("reconciliation finished",
		"tenant_id", tenantID,
		"snapshot", len(snapshot),
		"stale_marked", res.StaleMarked,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
	)

	return res, nil
}

// applyBatch upserts one bounded slice of the snapshot inside a single
// transaction. A per-record failure is logged and skipped; only batch
// mechanics (begin, lookup, commit) abort the reconciliation.
func (rc *Reconciler) applyBatch(ctx context.Context, sess driven.MirrorSession, tenantID int64, records []domain.NoteRecord, now time.Time, res *domain.ReconcileResult) error {
	batch, err := sess.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	for i := range records {
		note := &records[i]

		if note.NoteID <= 0 {
			rc.logger.Warn("skipping record with invalid note id",
				"tenant_id", tenantID, "note_id", note.NoteID)
			res.Skipped++
			continue
		}

		exists, err := batch.Exists(ctx, tenantID, note.NoteID)
		if err != nil {
			_ = batch.Rollback()
			return fmt.Errorf("lookup note %d: %w", note.NoteID, err)
		}

		if exists {
			if err := batch.Update(ctx, tenantID, note, now); err != nil {
				rc.logger.Warn("skipping note after failed update",
					"tenant_id", tenantID, "note_id", note.NoteID, "error", err)
				res.Skipped++
				continue
			}
			res.Updated++
		} else {
			if err := batch.Insert(ctx, tenantID, note, now); err != nil {
				rc.logger.Warn("skipping note after failed insert",
					"tenant_id", tenantID, "note_id", note.NoteID, "error", err)
				res.Skipped++
				continue
			}
			res.Inserted++
		}
	}

	if err := batch.Commit(); err != nil {
		_ = batch.Rollback()
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
