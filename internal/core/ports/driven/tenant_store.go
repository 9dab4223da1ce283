package driven

import (
	"context"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// TenantStore reads the active-tenants configuration table.
type TenantStore interface {
	// ListActive returns every tenant flagged active, in id order.
	ListActive(ctx context.Context) ([]*domain.Tenant, error)

	// Get retrieves one tenant by id. Returns domain.ErrTenantNotFound when
	// the tenant is not configured.
	Get(ctx context.Context, id int64) (*domain.Tenant, error)
}
