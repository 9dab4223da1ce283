package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrTenantNotFound indicates the tenant is not configured
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrContractNotFound indicates no active contract exists for the tenant
	ErrContractNotFound = errors.New("active contract not found")

	// ErrUnauthorized indicates the remote rejected the credential
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmptyToken indicates the ERP login returned no bearer token
	ErrEmptyToken = errors.New("empty bearer token")
)

// RemoteError carries a non-2xx status from the remote ERP. 401 and 403
// expire the credential, 5xx counts as transient, anything else is a
// permanent request failure.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote API error %d", e.StatusCode)
	}
	return fmt.Sprintf("remote API error %d: %s", e.StatusCode, e.Body)
}

// IsAuthError reports whether err is a credential rejection.
func IsAuthError(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.StatusCode == 401 || remote.StatusCode == 403
	}
	return errors.Is(err, ErrUnauthorized)
}
