package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PipelineRunner defines the interface for triggering a report sync run
type PipelineRunner interface {
	RunTrailing(ctx context.Context, days int) error
}

// Scheduler triggers report sync runs on a fixed interval
type Scheduler struct {
	runner   PipelineRunner
	interval time.Duration
	window   int // trailing window in days each run covers
	logger   *slog.Logger
	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// Config holds configuration for the report sync scheduler
type Config struct {
	Interval   time.Duration
	WindowDays int
}

// New creates a new report sync scheduler
func New(runner PipelineRunner, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.WindowDays == 0 {
		cfg.WindowDays = 14
	}

	return &Scheduler{
		runner:   runner,
		interval: cfg.Interval,
		window:   cfg.WindowDays,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true

	// Create a cancellable context for in-flight runs
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("report sync scheduler started", "interval", s.interval, "window_days", s.window)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("report sync scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run after a short delay on start (to let the app initialize)
	select {
	case <-time.After(15 * time.Second):
		s.process(ctx)
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) process(ctx context.Context) {
	s.logger.Info("starting scheduled report sync", "window_days", s.window)

	if err := s.runner.RunTrailing(ctx, s.window); err != nil {
		s.logger.Error("scheduled report sync failed", "error", err)
		return
	}
	s.logger.Info("scheduled report sync finished")
}
