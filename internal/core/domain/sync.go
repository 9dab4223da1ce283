package domain

import "time"

// SyncOutcome describes one tenant synchronization run. Every run produces
// exactly one outcome, failed runs included; callers never see a bare error.
type SyncOutcome struct {
	TenantID    int64     `json:"tenant_id"`
	TenantName  string    `json:"tenant_name"`
	Fetched     int       `json:"fetched"`
	Inserted    int       `json:"inserted"`
	Updated     int       `json:"updated"`
	Deactivated int       `json:"deactivated"`
	Errors      int       `json:"errors"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration returns the elapsed wall-clock time of the run in seconds.
func (o *SyncOutcome) Duration() float64 {
	return o.FinishedAt.Sub(o.StartedAt).Seconds()
}

// ReconcileResult aggregates the counters of one reconciliation pass.
type ReconcileResult struct {
	StaleMarked int64 `json:"stale_marked"`
	Inserted    int   `json:"inserted"`
	Updated     int   `json:"updated"`
	Skipped     int   `json:"skipped"`
}

// TenantSyncStats is one row of the per-tenant mirror statistics.
type TenantSyncStats struct {
	TenantID      int64      `json:"tenant_id"`
	TenantName    string     `json:"tenant_name"`
	TotalNotes    int        `json:"total_notes"`
	ActiveNotes   int        `json:"active_notes"`
	InactiveNotes int        `json:"inactive_notes"`
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
}
