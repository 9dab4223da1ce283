package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"tenant not found"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and cache connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Dependency unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Sync endpoints

// handleSyncTenant godoc
// @Summary      Sync one tenant
// @Description  Runs a full note-header sync for the tenant and returns the outcome. A failed run still answers 200; the failure travels inside the outcome.
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Tenant ID"
// @Success      200  {object}  domain.SyncOutcome
// @Failure      400  {object}  ErrorResponse  "Invalid tenant id"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Tenant not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /tenants/{id}/sync [post]
func (s *Server) handleSyncTenant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	tenant, err := s.tenants.Get(r.Context(), id)
	if err != nil {
		switch err {
		case domain.ErrTenantNotFound:
			writeError(w, http.StatusNotFound, "tenant not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to load tenant")
		}
		return
	}

	outcome := s.syncService.SyncTenant(r.Context(), tenant.ID, tenant.Name)
	writeJSON(w, http.StatusOK, outcome)
}

// handleSyncAll godoc
// @Summary      Sync all tenants
// @Description  Runs the note-header sync for every active tenant, serially, and returns one outcome per tenant. Individual failures do not stop the fleet.
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.SyncOutcome
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Tenant list unavailable"
// @Router       /sync [post]
func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	outcomes, err := s.syncService.SyncAllTenants(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to run fleet sync")
		return
	}

	if outcomes == nil {
		outcomes = []*domain.SyncOutcome{}
	}

	writeJSON(w, http.StatusOK, outcomes)
}

// handleSyncStats godoc
// @Summary      Mirror statistics
// @Description  Returns per-tenant note mirror statistics, optionally filtered to one tenant
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Param        tenant_id  query     int  false  "Filter to one tenant"
// @Success      200        {array}   domain.TenantSyncStats
// @Failure      400        {object}  ErrorResponse  "Invalid tenant_id"
// @Failure      401        {object}  ErrorResponse  "Unauthorized"
// @Failure      500        {object}  ErrorResponse  "Internal server error"
// @Router       /sync/stats [get]
func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	var tenantID *int64
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tenant_id")
			return
		}
		tenantID = &id
	}

	stats, err := s.syncService.SyncStats(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load sync stats")
		return
	}

	if stats == nil {
		stats = []domain.TenantSyncStats{}
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleSyncLog godoc
// @Summary      Recent sync outcomes
// @Description  Returns the latest entries of the sync audit log, newest first
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum entries to return (default 50)"
// @Success      200    {array}   domain.SyncOutcome
// @Failure      400    {object}  ErrorResponse  "Invalid limit"
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Failure      500    {object}  ErrorResponse  "Internal server error"
// @Router       /sync/log [get]
func (s *Server) handleSyncLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	outcomes, err := s.syncService.RecentOutcomes(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load sync log")
		return
	}

	if outcomes == nil {
		outcomes = []*domain.SyncOutcome{}
	}

	writeJSON(w, http.StatusOK, outcomes)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
