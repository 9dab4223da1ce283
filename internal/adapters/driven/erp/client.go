package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/domain"
	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NoteSource = (*Client)(nil)

const loadRecordsPath = "/service.sbr?serviceName=CRUDServiceProvider.loadRecords&outputType=json"

const (
	defaultPageTimeout = 60 * time.Second
	defaultContractTTL = 5 * time.Minute
)

// Client fetches note-header pages from the tenants' CRUD service
// endpoints. A single instance serves the whole fleet; the per-tenant
// base URL comes from the active contract, cached briefly so page loops
// do not hammer the contract store.
type Client struct {
	contracts   driven.ContractStore
	httpClient  *http.Client
	logger      *slog.Logger
	contractTTL time.Duration

	mu    sync.Mutex
	cache map[int64]cachedContract
}

type cachedContract struct {
	contract  *domain.Contract
	fetchedAt time.Time
}

// ClientConfig holds configuration for the ERP client.
type ClientConfig struct {
	Contracts driven.ContractStore

	// PageTimeout bounds a single page request (default: 60s).
	PageTimeout time.Duration

	// ContractTTL is how long a resolved contract is reused before the
	// store is consulted again (default: 5m).
	ContractTTL time.Duration

	Logger *slog.Logger
}

// NewClient creates a new ERP note-header client.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.PageTimeout
	if timeout == 0 {
		timeout = defaultPageTimeout
	}
	ttl := cfg.ContractTTL
	if ttl == 0 {
		ttl = defaultContractTTL
	}

	return &Client{
		contracts:   cfg.Contracts,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		contractTTL: ttl,
		cache:       make(map[int64]cachedContract),
	}
}

// FetchPage retrieves one page of note headers for the tenant.
func (c *Client) FetchPage(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error) {
	contract, err := c.contract(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve contract: %w", err)
	}

	payload, err := json.Marshal(newLoadRequest(page))
	if err != nil {
		return nil, fmt.Errorf("encode page request: %w", err)
	}

	url := strings.TrimSuffix(contract.BaseURL, "/") + loadRecordsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create page request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.RemoteError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var decoded loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode page response: %w", err)
	}

	// The envelope can report failure behind an HTTP 200. Such rejections
	// are not retried; a malformed request stays malformed.
	if decoded.Status != "1" {
		return nil, fmt.Errorf("service rejected page %d: status %q: %s",
			page, decoded.Status, strings.TrimSpace(decoded.StatusMessage))
	}

	rows, err := normalizeEntities(decoded.ResponseBody.Entities.Entity)
	if err != nil {
		return nil, err
	}

	names := decoded.ResponseBody.Entities.Metadata.names()
	notes := make([]domain.NoteRecord, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, mapRecord(names, row))
	}

	total, _ := strconv.ParseInt(decoded.ResponseBody.Entities.Total, 10, 64)

	c.logger.Debug("fetched note page",
		"tenant_id", tenantID,
		"page", page,
		"notes", len(notes),
		"has_more", bool(decoded.ResponseBody.Entities.HasMoreResult))

	return &domain.NotePage{
		Notes:   notes,
		HasMore: bool(decoded.ResponseBody.Entities.HasMoreResult),
		Total:   total,
	}, nil
}

// contract returns the tenant's active contract, reusing a recent lookup
// when one is available.
func (c *Client) contract(ctx context.Context, tenantID int64) (*domain.Contract, error) {
	c.mu.Lock()
	if entry, ok := c.cache[tenantID]; ok && time.Since(entry.fetchedAt) < c.contractTTL {
		c.mu.Unlock()
		return entry.contract, nil
	}
	c.mu.Unlock()

	contract, err := c.contracts.ActiveContract(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[tenantID] = cachedContract{contract: contract, fetchedAt: time.Now()}
	c.mu.Unlock()

	return contract, nil
}
