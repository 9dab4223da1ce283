package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
	"github.com/tessaro-systems/notesync/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	jwtSecret  string

	// Services
	syncService driving.SyncService

	// Infrastructure
	tenants     driven.TenantStore
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host      string
	Port      int
	Version   string
	JWTSecret string
	Logger    *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	syncService driving.SyncService,
	tenants driven.TenantStore,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:      http.NewServeMux(),
		version:     cfg.Version,
		jwtSecret:   cfg.JWTSecret,
		syncService: syncService,
		tenants:     tenants,
		db:          db,
		redisClient: redisClient,
	}

	s.setupRoutes()

	// Outer chain around the mux. Recovery sits inside logging so a panic
	// still produces a logged 500.
	handler := NewRequestIDMiddleware().Handler(
		NewLoggingMiddleware(cfg.Logger).Handler(
			NewRecoveryMiddleware(cfg.Logger).Handler(
				NewMetricsMiddleware().Handler(s.router))))

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Sync requests run the sync inline, so a response can be minutes away.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Create middleware
	authMiddleware := NewAuthMiddleware(s.jwtSecret)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.Handler())

	// Sync endpoints (authenticated)
	s.router.Handle("POST /api/v1/tenants/{id}/sync",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSyncTenant)))
	s.router.Handle("POST /api/v1/sync",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSyncAll)))
	s.router.Handle("GET /api/v1/sync/stats",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSyncStats)))
	s.router.Handle("GET /api/v1/sync/log",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSyncLog)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the fully assembled handler chain
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
