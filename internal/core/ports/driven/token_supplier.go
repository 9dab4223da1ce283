package driven

import "context"

// TokenSupplier provides bearer credentials for the remote ERP.
// Implementations cache per tenant; callers may force renewal when the
// remote rejects the current credential.
type TokenSupplier interface {
	// Token returns a bearer credential for the tenant. With forceRenew
	// any cached credential is invalidated and a fresh one is issued.
	// Safe to call repeatedly.
	Token(ctx context.Context, tenantID int64, forceRenew bool) (string, error)
}
