package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tessaro-systems/notesync/internal/core/ports/driven"
	"github.com/tessaro-systems/notesync/internal/core/ports/driving"
)

// Scheduler triggers fleet syncs on a fixed cadence.
//
// For multi-instance deployments, configure a FleetLock so only one
// instance runs a cycle; the others skip it.
type Scheduler struct {
	service driving.SyncService
	lock    driven.FleetLock
	logger  *slog.Logger

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval   time.Duration
	lockTTL    time.Duration
	runOnStart bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Service    driving.SyncService
	Lock       driven.FleetLock // Optional: fleet lock for multi-instance coordination
	Logger     *slog.Logger
	Interval   time.Duration // How often to run a fleet sync (default: 6h)
	LockTTL    time.Duration // TTL for the fleet lock (default: 2h)
	RunOnStart bool          // Run a cycle immediately instead of waiting for the first tick
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 6 * time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * time.Hour
	}

	return &Scheduler{
		service:    cfg.Service,
		lock:       cfg.Lock,
		logger:     logger,
		interval:   interval,
		lockTTL:    lockTTL,
		runOnStart: cfg.RunOnStart,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for the scheduler to finish
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.runFleet(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runFleet(ctx)
		}
	}
}

// runFleet runs one fleet sync cycle.
// If a fleet lock is configured, it acquires the lock before syncing so
// concurrent instances never run overlapping fleet cycles.
func (s *Scheduler) runFleet(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire fleet lock", "error", err)
			return
		}
		if !acquired {
			s.logger.Debug("fleet lock held by another instance, skipping cycle")
			return
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil {
				s.logger.Warn("failed to release fleet lock", "error", err)
			}
		}()
	}

	outcomes, err := s.service.SyncAllTenants(ctx)
	if err != nil {
		s.logger.Error("fleet sync cycle failed", "error", err)
		return
	}

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Success {
			failed++
		}
	}

	s.logger.Info("fleet sync cycle finished",
		"tenants", len(outcomes),
		"failed", failed,
	)
}
