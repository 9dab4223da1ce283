package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Ensure Supplier implements TokenSupplier
var _ driven.TokenSupplier = (*Supplier)(nil)

const (
	loginPath = "/login"

	tokenKeyPrefix = "notesync:token:"

	defaultLoginTimeout = 15 * time.Second

	// Bearer tokens are valid for roughly half an hour on the remote
	// side; caching slightly shorter avoids handing out dead ones.
	defaultTokenTTL = 20 * time.Minute
)

// Supplier issues and caches bearer credentials for the remote ERP.
// Cached tokens are reused until they expire or a caller forces renewal
// after the remote rejected one mid-run.
type Supplier struct {
	contracts  driven.ContractStore
	cache      driven.TokenCache
	httpClient *http.Client
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// SupplierConfig holds configuration for the credential supplier.
type SupplierConfig struct {
	Contracts driven.ContractStore

	// Cache holds issued tokens; nil falls back to an in-process cache.
	Cache driven.TokenCache

	// LoginTimeout bounds one login round trip (default: 15s).
	LoginTimeout time.Duration

	// TokenTTL is how long an issued token is reused (default: 20m).
	TokenTTL time.Duration

	Logger *slog.Logger
}

// NewSupplier creates a new credential supplier.
func NewSupplier(cfg SupplierConfig) *Supplier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = driven.NewMemoryTokenCache()
	}
	timeout := cfg.LoginTimeout
	if timeout == 0 {
		timeout = defaultLoginTimeout
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}

	return &Supplier{
		contracts:  cfg.Contracts,
		cache:      cache,
		httpClient: &http.Client{Timeout: timeout},
		tokenTTL:   ttl,
		logger:     logger,
	}
}

// Token returns a bearer credential for the tenant. With forceRenew the
// cached credential is dropped first and a fresh login is performed.
func (s *Supplier) Token(ctx context.Context, tenantID int64, forceRenew bool) (string, error) {
	key := tokenKey(tenantID)

	if forceRenew {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to drop cached credential",
				"tenant_id", tenantID,
				"error", err)
		}
	} else {
		token, err := s.cache.Get(ctx, key)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("credential cache read failed",
				"tenant_id", tenantID,
				"error", err)
		}
	}

	token, err := s.login(ctx, tenantID)
	if err != nil {
		return "", err
	}

	// Cache write failures are not fatal: the token is already issued,
	// the next run just logs in again.
	if err := s.cache.Set(ctx, key, token, s.tokenTTL); err != nil {
		s.logger.Warn("failed to cache credential",
			"tenant_id", tenantID,
			"error", err)
	}

	return token, nil
}

// login performs the header-based login call against the tenant's
// contract endpoint and returns the issued bearer token.
func (s *Supplier) login(ctx context.Context, tenantID int64) (string, error) {
	contract, err := s.contracts.ActiveContract(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("resolve contract: %w", err)
	}

	url := strings.TrimSuffix(contract.BaseURL, "/") + loginPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("token", contract.Credentials.Token)
	req.Header.Set("appkey", contract.Credentials.AppKey)
	req.Header.Set("username", contract.Credentials.Username)
	req.Header.Set("password", contract.Credentials.Password)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &domain.RemoteError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var decoded struct {
		BearerToken string `json:"bearerToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if decoded.BearerToken == "" {
		return "", domain.ErrEmptyToken
	}

	s.logger.Info("issued new credential",
		"tenant_id", tenantID,
		"environment", contract.Environment)

	return decoded.BearerToken, nil
}

func tokenKey(tenantID int64) string {
	return fmt.Sprintf("%s%d", tokenKeyPrefix, tenantID)
}
