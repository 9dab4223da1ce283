package domain

import (
	"testing"
	"time"
)

func TestSyncOutcomeDuration(t *testing.T) {
	started := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	outcome := &SyncOutcome{
		TenantID:   42,
		TenantName: "acme",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
	}

	if outcome.Duration() != 90 {
		t.Errorf("expected 90s duration, got %f", outcome.Duration())
	}
}

func TestSyncOutcomeFields(t *testing.T) {
	outcome := &SyncOutcome{
		TenantID:    7,
		TenantName:  "tenant-7",
		Fetched:     120,
		Inserted:    20,
		Updated:     100,
		Deactivated: 3,
		Success:     true,
	}

	if outcome.TenantID != 7 {
		t.Errorf("expected TenantID 7, got %d", outcome.TenantID)
	}
	if outcome.Fetched != 120 {
		t.Errorf("expected Fetched 120, got %d", outcome.Fetched)
	}
	if outcome.Inserted != 20 {
		t.Errorf("expected Inserted 20, got %d", outcome.Inserted)
	}
	if outcome.Updated != 100 {
		t.Errorf("expected Updated 100, got %d", outcome.Updated)
	}
	if outcome.Deactivated != 3 {
		t.Errorf("expected Deactivated 3, got %d", outcome.Deactivated)
	}
	if !outcome.Success {
		t.Error("expected Success true")
	}
	if outcome.Error != "" {
		t.Errorf("expected empty Error, got %s", outcome.Error)
	}
}
