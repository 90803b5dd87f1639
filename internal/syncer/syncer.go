package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron"

	"aasx-facility-backend/config"
	"aasx-facility-backend/internal/store"
)

// ErrAlreadyRunning is returned when a synchronization is requested while
// another one is still in progress.
var ErrAlreadyRunning = errors.New("syncer: synchronization already running")

// Service runs full hierarchy synchronizations on a schedule and on demand.
type Service struct {
	cfg   *config.SyncConfig
	store store.Store
	cron  *cron.Cron

	running atomic.Bool

	mu   sync.RWMutex
	last *store.SyncReport
}

// NewService creates a new synchronization service.
func NewService(cfg *config.SyncConfig, store store.Store) *Service {
	return &Service{
		cfg:   cfg,
		store: store,
		cron:  cron.New(),
	}
}

// Run schedules synchronization and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		log.Println("Scheduled synchronization is disabled. Not starting.")
		return nil
	}
	if _, err := cron.Parse(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.cfg.Schedule, err)
	}

	if err := s.cron.AddFunc(s.cfg.Schedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule synchronization: %w", err)
	}
	log.Printf("Starting synchronization service (schedule %q)...", s.cfg.Schedule)
	s.cron.Start()

	if s.cfg.RunOnStart {
		go s.tick(ctx)
	}

	<-ctx.Done()
	s.cron.Stop()
	log.Println("Synchronization service shutting down.")
	return nil
}

func (s *Service) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			log.Println("Warning: previous synchronization still running; skipping this tick")
			return
		}
		log.Printf("Error during scheduled synchronization: %v", err)
	}
}

// RunOnce performs one full synchronization unless one is already active.
func (s *Service) RunOnce(ctx context.Context) (*store.SyncReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	report, err := s.store.SynchronizeAll(ctx, func(percent int, label string) {
		log.Printf("Synchronization progress: %d%% (%s)", percent, label)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report, nil
}

// Running reports whether a synchronization is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// LastReport returns the report of the most recent successful run, if any.
func (s *Service) LastReport() *store.SyncReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
