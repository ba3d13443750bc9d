package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OverdueSweeper flips past-due charges to overdue. Implemented by the
// charge application service.
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context) (int, error)
}

// OverdueSweepConfig holds configuration for the daily overdue sweep
type OverdueSweepConfig struct {
	// SweepHour is the local hour (0-23) the sweep runs at
	SweepHour int
	// CheckInterval is how often to check whether it is time to run
	CheckInterval time.Duration
	// SweepTimeout bounds a single sweep run
	SweepTimeout time.Duration
}

// DefaultOverdueSweepConfig returns the default sweep configuration
func DefaultOverdueSweepConfig() OverdueSweepConfig {
	return OverdueSweepConfig{
		SweepHour:     2,
		CheckInterval: time.Minute,
		SweepTimeout:  5 * time.Minute,
	}
}

// OverdueSweep runs the overdue sweep once per day at the configured
// hour. A missed sweep (process down at the scheduled hour) runs at the
// next check after startup on that same day.
type OverdueSweep struct {
	config  OverdueSweepConfig
	sweeper OverdueSweeper
	logger  *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewOverdueSweep creates a new overdue sweep runner
func NewOverdueSweep(config OverdueSweepConfig, sweeper OverdueSweeper, logger *zap.Logger) *OverdueSweep {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 5 * time.Minute
	}
	return &OverdueSweep{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start begins the background check loop. Calling Start on a running
// sweep is a no-op.
func (s *OverdueSweep) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("overdue sweep started",
		zap.Int("sweep_hour", s.config.SweepHour),
		zap.Duration("check_interval", s.config.CheckInterval))
}

// Stop cancels the loop and waits for any in-flight sweep to finish
func (s *OverdueSweep) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("overdue sweep stopped")
}

func (s *OverdueSweep) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.maybeRun(ctx, now)
		}
	}
}

func (s *OverdueSweep) maybeRun(ctx context.Context, now time.Time) {
	if now.Hour() < s.config.SweepHour {
		return
	}
	today := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == today
	if !alreadyRan {
		s.lastRunDate = today
	}
	s.mu.Unlock()

	if alreadyRan {
		return
	}
	s.RunOnce(ctx)
}

// RunOnce executes a single sweep immediately
func (s *OverdueSweep) RunOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	started := time.Now()
	marked, err := s.sweeper.MarkOverdue(sweepCtx)
	if err != nil {
		s.logger.Error("overdue sweep failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(started)))
		return
	}
	s.logger.Info("overdue sweep completed",
		zap.Int("marked", marked),
		zap.Duration("elapsed", time.Since(started)))
}
