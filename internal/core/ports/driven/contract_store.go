package driven

import (
	"context"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// ContractStore resolves the active ERP contract for a tenant: the base URL
// (sandbox or production) and the decrypted login credentials.
type ContractStore interface {
	// ActiveContract returns the tenant's current contract. Returns
	// domain.ErrContractNotFound when none is configured.
	ActiveContract(ctx context.Context, tenantID int64) (*domain.Contract, error)
}
