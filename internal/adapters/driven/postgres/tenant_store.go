package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TenantStore = (*TenantStore)(nil)

// TenantStore implements driven.TenantStore using PostgreSQL
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a new TenantStore
func NewTenantStore(db *DB) *TenantStore {
	return &TenantStore{db: db}
}

// ListActive returns every tenant flagged active, in id order
func (s *TenantStore) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	query := `SELECT id, name, active FROM tenants WHERE active ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Active); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tenants, nil
}

// Get retrieves one tenant by id
func (s *TenantStore) Get(ctx context.Context, id int64) (*domain.Tenant, error) {
	query := `SELECT id, name, active FROM tenants WHERE id = $1`

	var t domain.Tenant
	err := s.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Active)
	if err == sql.ErrNoRows {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %d: %w", id, err)
	}

	return &t, nil
}

// Upsert creates or updates a tenant configuration row
func (s *TenantStore) Upsert(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, active)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			updated_at = now()
	`

	_, err := s.db.ExecContext(ctx, query, tenant.ID, tenant.Name, tenant.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant %d: %w", tenant.ID, err)
	}
	return nil
}
