package postgres

import (
	"context"
	"fmt"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OutcomeSink = (*OutcomeStore)(nil)

// OutcomeStore implements driven.OutcomeSink using PostgreSQL.
// Every sync run appends one audit row, failed runs included.
type OutcomeStore struct {
	db *DB
}

// NewOutcomeStore creates a new OutcomeStore
func NewOutcomeStore(db *DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

// RecordOutcome appends one outcome to the sync log
func (s *OutcomeStore) RecordOutcome(ctx context.Context, outcome *domain.SyncOutcome) error {
	query := `
		INSERT INTO sync_log (tenant_id, tenant_name, fetched, inserted, updated,
			deactivated, errors, success, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		outcome.TenantID,
		outcome.TenantName,
		outcome.Fetched,
		outcome.Inserted,
		outcome.Updated,
		outcome.Deactivated,
		outcome.Errors,
		outcome.Success,
		outcome.Error,
		outcome.StartedAt,
		outcome.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// ListRecent returns the most recent outcomes, newest first
func (s *OutcomeStore) ListRecent(ctx context.Context, limit int) ([]*domain.SyncOutcome, error) {
	query := `
		SELECT tenant_id, tenant_name, fetched, inserted, updated,
			deactivated, errors, success, error, started_at, finished_at
		FROM sync_log
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.SyncOutcome
	for rows.Next() {
		var o domain.SyncOutcome
		err := rows.Scan(
			&o.TenantID,
			&o.TenantName,
			&o.Fetched,
			&o.Inserted,
			&o.Updated,
			&o.Deactivated,
			&o.Errors,
			&o.Success,
			&o.Error,
			&o.StartedAt,
			&o.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return outcomes, nil
}
