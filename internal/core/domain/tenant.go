package domain

import "time"

// Tenant is one synchronized company scope from the configuration table.
type Tenant struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Contract environments. Sandbox and production differ only in base URL.
const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

// Contract carries the per-tenant ERP endpoint and login secrets resolved
// by the active-contract lookup.
type Contract struct {
	TenantID    int64       `json:"tenant_id"`
	Environment string      `json:"environment"`
	BaseURL     string      `json:"base_url"`
	Credentials Credentials `json:"-"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Credentials are the ERP login secrets for one tenant. They live encrypted
// at rest and are decrypted only inside the contract store.
type Credentials struct {
	AppKey   string `json:"app_key"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Password string `json:"password"`
}
