package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContractStore = (*ContractStore)(nil)

// ContractStore implements driven.ContractStore using PostgreSQL.
// Credentials live encrypted at rest and are decrypted on the way out.
type ContractStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewContractStore creates a new ContractStore
func NewContractStore(db *DB, encryptor *SecretEncryptor) *ContractStore {
	return &ContractStore{db: db, encryptor: encryptor}
}

// ActiveContract returns the tenant's current contract with decrypted
// credentials. The newest active contract wins when several exist.
func (s *ContractStore) ActiveContract(ctx context.Context, tenantID int64) (*domain.Contract, error) {
	query := `
		SELECT tenant_id, environment, base_url, credentials, updated_at
		FROM tenant_contracts
		WHERE tenant_id = $1 AND active
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var contract domain.Contract
	var blob []byte

	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&contract.TenantID,
		&contract.Environment,
		&contract.BaseURL,
		&blob,
		&contract.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract for tenant %d: %w", tenantID, err)
	}

	if err := s.encryptor.Decrypt(blob, &contract.Credentials); err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials for tenant %d: %w", tenantID, err)
	}

	return &contract, nil
}

// SaveContract stores a contract with freshly encrypted credentials and
// deactivates any previous contract of the tenant in the same transaction.
func (s *ContractStore) SaveContract(ctx context.Context, contract *domain.Contract) error {
	blob, err := s.encryptor.Encrypt(contract.Credentials)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE tenant_contracts SET active = FALSE, updated_at = now() WHERE tenant_id = $1 AND active`,
			contract.TenantID,
		)
		if err != nil {
			return fmt.Errorf("failed to deactivate previous contracts: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_contracts (tenant_id, environment, base_url, credentials, active)
			VALUES ($1, $2, $3, $4, TRUE)
		`,
			contract.TenantID,
			contract.Environment,
			contract.BaseURL,
			blob,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contract: %w", err)
		}
		return nil
	})
}
