package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.MirrorStore = (*MirrorStore)(nil)

// MirrorStore implements driven.MirrorStore using PostgreSQL
type MirrorStore struct {
	db *DB
}

// NewMirrorStore creates a new MirrorStore
func NewMirrorStore(db *DB) *MirrorStore {
	return &MirrorStore{db: db}
}

// Session acquires a dedicated connection for one reconciliation run.
// The caller owns it exclusively until Close.
func (s *MirrorStore) Session(ctx context.Context) (driven.MirrorSession, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &mirrorSession{conn: conn}, nil
}

// Stats returns per-tenant mirror statistics, optionally filtered to a
// single tenant.
func (s *MirrorStore) Stats(ctx context.Context, tenantID *int64) ([]domain.TenantSyncStats, error) {
	query := `
		SELECT m.tenant_id,
		       COALESCE(t.name, ''),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE m.active = $2),
		       COUNT(*) FILTER (WHERE m.active = $3),
		       MAX(m.refreshed_at)
		FROM note_mirror m
		LEFT JOIN tenants t ON t.id = m.tenant_id
		WHERE $1::bigint IS NULL OR m.tenant_id = $1
		GROUP BY m.tenant_id, t.name
		ORDER BY m.tenant_id
	`

	rows, err := s.db.QueryContext(ctx, query, NullInt64(tenantID), domain.FlagActive, domain.FlagInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query mirror stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.TenantSyncStats
	for rows.Next() {
		var row domain.TenantSyncStats
		var lastRefresh sql.NullTime

		err := rows.Scan(
			&row.TenantID,
			&row.TenantName,
			&row.TotalNotes,
			&row.ActiveNotes,
			&row.InactiveNotes,
			&lastRefresh,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mirror stats: %w", err)
		}

		row.LastRefreshAt = TimePtr(lastRefresh)
		stats = append(stats, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// mirrorSession pins one pool connection for the duration of a run, so
// the bulk stale-mark and every batch transaction share a connection.
type mirrorSession struct {
	conn *sql.Conn
}

// MarkActiveStale flips every active row of the tenant to inactive in a
// single statement. Runs outside any batch transaction, so it is durable
// before the first batch begins.
func (s *mirrorSession) MarkActiveStale(ctx context.Context, tenantID int64, at time.Time) (int64, error) {
	query := `
		UPDATE note_mirror
		SET active = $3, refreshed_at = $2
		WHERE tenant_id = $1 AND active = $4
	`

	res, err := s.conn.ExecContext(ctx, query, tenantID, at, domain.FlagInactive, domain.FlagActive)
	if err != nil {
		return 0, fmt.Errorf("failed to mark active rows stale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count stale rows: %w", err)
	}
	return affected, nil
}

// Begin opens one batch transaction on the session connection.
func (s *mirrorSession) Begin(ctx context.Context) (driven.MirrorBatch, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch: %w", err)
	}
	return &mirrorBatch{tx: tx}, nil
}

// Close releases the connection back to the pool.
func (s *mirrorSession) Close() error {
	return s.conn.Close()
}

// mirrorBatch is one bounded upsert transaction. Record statements run
// under a savepoint: Postgres aborts the whole transaction on any
// statement error, and the savepoint confines that to the one record.
type mirrorBatch struct {
	tx *sql.Tx
}

// Exists reports whether a mirror row exists for (tenant, note).
func (b *mirrorBatch) Exists(ctx context.Context, tenantID, noteID int64) (bool, error) {
	var exists bool
	err := b.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM note_mirror WHERE tenant_id = $1 AND note_id = $2)`,
		tenantID, noteID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up note %d: %w", noteID, err)
	}
	return exists, nil
}

// Insert creates a new active row with both timestamps set to at.
func (b *mirrorBatch) Insert(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error {
	return b.guarded(ctx, func() error {
		_, err := b.tx.ExecContext(ctx, `
			INSERT INTO note_mirror (tenant_id, note_id, operation_type, sale_type,
				partner_code, salesperson, total_amount, negotiated_at, movement_type,
				active, refreshed_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		`,
			tenantID,
			note.NoteID,
			NullInt64(note.OperationType),
			NullInt64(note.SaleType),
			NullInt64(note.PartnerCode),
			NullInt64(note.Salesperson),
			NullFloat64(note.TotalAmount),
			NullTime(note.NegotiatedAt),
			note.MovementType,
			domain.FlagActive,
			at,
		)
		return err
	})
}

// Update rewrites the business fields of an existing row and flips it
// back to active. created_at is never touched.
func (b *mirrorBatch) Update(ctx context.Context, tenantID int64, note *domain.NoteRecord, at time.Time) error {
	return b.guarded(ctx, func() error {
		_, err := b.tx.ExecContext(ctx, `
			UPDATE note_mirror
			SET operation_type = $3, sale_type = $4, partner_code = $5,
				salesperson = $6, total_amount = $7, negotiated_at = $8,
				movement_type = $9, active = $10, refreshed_at = $11
			WHERE tenant_id = $1 AND note_id = $2
		`,
			tenantID,
			note.NoteID,
			NullInt64(note.OperationType),
			NullInt64(note.SaleType),
			NullInt64(note.PartnerCode),
			NullInt64(note.Salesperson),
			NullFloat64(note.TotalAmount),
			NullTime(note.NegotiatedAt),
			note.MovementType,
			domain.FlagActive,
			at,
		)
		return err
	})
}

// Commit makes the batch durable.
func (b *mirrorBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Rollback abandons the batch. Safe to call after Commit.
func (b *mirrorBatch) Rollback() error {
	if err := b.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("failed to roll back batch: %w", err)
	}
	return nil
}

// guarded runs one record statement under a savepoint so its failure
// poisons the record, not the batch.
func (b *mirrorBatch) guarded(ctx context.Context, fn func() error) error {
	if _, err := b.tx.ExecContext(ctx, "SAVEPOINT record_sp"); err != nil {
		return fmt.Errorf("failed to set savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := b.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT record_sp"); rbErr != nil {
			return fmt.Errorf("record failed: %w (savepoint rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if _, err := b.tx.ExecContext(ctx, "RELEASE SAVEPOINT record_sp"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
