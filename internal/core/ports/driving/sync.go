package driving

import (
	"context"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// SyncService coordinates note-header mirror synchronization
type SyncService interface {
	// SyncTenant runs one tenant's end-to-end sync. It always returns an
	// outcome; failures are carried inside it, never as an error.
	SyncTenant(ctx context.Context, tenantID int64, tenantName string) *domain.SyncOutcome

	// SyncAllTenants syncs every active tenant serially and returns all
	// outcomes. The error is set only when the tenant list itself cannot
	// be read; per-tenant failures never abort the fleet.
	SyncAllTenants(ctx context.Context) ([]*domain.SyncOutcome, error)

	// SyncStats returns mirror statistics grouped by tenant, optionally
	// filtered to one tenant.
	SyncStats(ctx context.Context, tenantID *int64) ([]domain.TenantSyncStats, error)

	// RecentOutcomes returns the latest audit-log entries, newest first.
	RecentOutcomes(ctx context.Context, limit int) ([]*domain.SyncOutcome, error)
}
