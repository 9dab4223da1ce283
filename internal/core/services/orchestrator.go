package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
	"github.com/tessaro-systems/notesync/internal/core/ports/driving"
)

var _ driving.SyncService = (*SyncOrchestrator)(nil)

// SyncOrchestrator composes retrieval and reconciliation into tenant syncs:
//  1. Force-renew the tenant credential
//  2. Retrieve the full snapshot (resumable pagination)
//  3. Acquire a mirror session for the run
//  4. Reconcile (stale-mark, then batched upserts)
//  5. Record the outcome in the audit sink, best-effort
//
// Every failure is folded into the returned SyncOutcome; callers never
// need to inspect an error for a single tenant run.
type SyncOrchestrator struct {
	retriever   *Retriever
	reconciler  *Reconciler
	tokens      driven.TokenSupplier
	mirror      driven.MirrorStore
	tenants     driven.TenantStore
	sink        driven.OutcomeSink
	tenantDelay time.Duration
	logger      *slog.Logger
}

// SyncOrchestratorConfig holds dependencies for SyncOrchestrator.
type SyncOrchestratorConfig struct {
	Retriever   *Retriever
	Reconciler  *Reconciler
	Tokens      driven.TokenSupplier
	Mirror      driven.MirrorStore
	Tenants     driven.TenantStore
	Sink        driven.OutcomeSink // optional
	TenantDelay time.Duration      // pacing between fleet tenants (default: 2s)
	Logger      *slog.Logger
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(cfg SyncOrchestratorConfig) *SyncOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tenantDelay := cfg.TenantDelay
	if tenantDelay == 0 {
		tenantDelay = 2 * time.Second
	}

	return &SyncOrchestrator{
		retriever:   cfg.Retriever,
		reconciler:  cfg.Reconciler,
		tokens:      cfg.Tokens,
		mirror:      cfg.Mirror,
		tenants:     cfg.Tenants,
		sink:        cfg.Sink,
		tenantDelay: tenantDelay,
		logger:      logger,
	}
}

// SyncTenant runs one tenant's end-to-end sync and always returns an
// outcome; no error crosses this boundary.
func (o *SyncOrchestrator) SyncTenant(ctx context.Context, tenantID int64, tenantName string) *domain.SyncOutcome {
	started := time.Now()

	o.logger.Info("starting sync", "tenant_id", tenantID, "tenant", tenantName)

	// A sync always begins with a fresh credential; the remaining lifetime
	// of a cached one is unknown.
	token, err := o.tokens.Token(ctx, tenantID, true)
	if err != nil {
		return o.failSync(ctx, tenantID, tenantName, started, 0, fmt.Errorf("renew credential: %w", err))
	}

	snapshot, err := o.retriever.FetchAll(ctx, tenantID, token)
	if err != nil {
		return o.failSync(ctx, tenantID, tenantName, started, 0, err)
	}

	sess, err := o.mirror.Session(ctx)
	if err != nil {
		return o.failSync(ctx, tenantID, tenantName, started, len(snapshot), fmt.Errorf("acquire store session: %w", err))
	}
	defer sess.Close()

	res, err := o.reconciler.Reconcile(ctx, sess, tenantID, snapshot)
	if err != nil {
		return o.failSync(ctx, tenantID, tenantName, started, len(snapshot), err)
	}

	outcome := &domain.SyncOutcome{
		TenantID:    tenantID,
		TenantName:  tenantName,
		Fetched:     len(snapshot),
		Inserted:    res.Inserted,
		Updated:     res.Updated,
		Deactivated: deactivatedCount(res),
		Errors:      res.Skipped,
		Success:     true,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}

	o.recordOutcome(ctx, outcome)

	syncRuns.WithLabelValues("success").Inc()
	syncDuration.Observe(outcome.Duration())
	notesFetched.Add(float64(outcome.Fetched))

	o.logger.Info("sync completed",
		"tenant_id", tenantID,
		"duration_seconds", outcome.Duration(),
		"fetched", outcome.Fetched,
		"inserted", outcome.Inserted,
		"updated", outcome.Updated,
		"deactivated", outcome.Deactivated,
		"errors", outcome.Errors,
	)

	return outcome
}

// SyncAllTenants syncs every active tenant, strictly serially with pacing
// between tenants. One tenant's failure never stops the fleet; the error
// is set only when the tenant list itself cannot be read.
func (o *SyncOrchestrator) SyncAllTenants(ctx context.Context) ([]*domain.SyncOutcome, error) {
	tenants, err := o.tenants.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}

	o.logger.Info("starting fleet sync", "tenants", len(tenants))

	var outcomes []*domain.SyncOutcome
	for i, tenant := range tenants {
		if i > 0 {
			if err := pause(ctx, o.tenantDelay); err != nil {
				o.logger.Warn("fleet pacing interrupted", "error", err)
			}
		}
		outcomes = append(outcomes, o.SyncTenant(ctx, tenant.ID, tenant.Name))
	}

	return outcomes, nil
}

// SyncStats returns per-tenant mirror statistics, optionally filtered to
// one tenant.
func (o *SyncOrchestrator) SyncStats(ctx context.Context, tenantID *int64) ([]domain.TenantSyncStats, error) {
	return o.mirror.Stats(ctx, tenantID)
}

// RecentOutcomes returns the newest audit-log entries.
func (o *SyncOrchestrator) RecentOutcomes(ctx context.Context, limit int) ([]*domain.SyncOutcome, error) {
	if o.sink == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return o.sink.ListRecent(ctx, limit)
}

// failSync folds an error into a failed outcome, records it and returns it.
func (o *SyncOrchestrator) failSync(ctx context.Context, tenantID int64, tenantName string, started time.Time, fetched int, err error) *domain.SyncOutcome {
	outcome := &domain.SyncOutcome{
		TenantID:   tenantID,
		TenantName: tenantName,
		Fetched:    fetched,
		Success:    false,
		Error:      err.Error(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	o.logger.Error("sync failed",
		"tenant_id", tenantID,
		"duration_seconds", outcome.Duration(),
		"error", err,
	)

	o.recordOutcome(ctx, outcome)
	syncRuns.WithLabelValues("failure").Inc()

	return outcome
}

// recordOutcome writes to the audit sink, fire-and-forget: a sink failure
// is logged and otherwise ignored.
func (o *SyncOrchestrator) recordOutcome(ctx context.Context, outcome *domain.SyncOutcome) {
	if o.sink == nil {
		return
	}
	if err := o.sink.RecordOutcome(ctx, outcome); err != nil {
		o.logger.Warn("failed to record sync outcome",
			"tenant_id", outcome.TenantID, "error", err)
	}
}

// deactivatedCount derives the rows left inactive by the run: every
// previously-active row was stale-marked, and updates reactivated the ones
// still present in the snapshot.
func deactivatedCount(res domain.ReconcileResult) int {
	n := int(res.StaleMarked) - res.Updated
	if n < 0 {
		return 0
	}
	return n
}
