package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"
)

const defaultSyncInterval = 15 * time.Minute

// Scheduler periodically syncs every active tenant's configured
// integrations. The first pass runs immediately on Start so dashboards have
// data without waiting a full interval.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *zap.Logger

	mu      stdsync.Mutex
	cancel  context.CancelFunc
	wg      stdsync.WaitGroup
	running bool
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval overrides the default 15 minute sync interval.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = interval }
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// NewScheduler creates a sync scheduler.
func NewScheduler(orchestrator *Orchestrator, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		orchestrator: orchestrator,
		interval:     defaultSyncInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic sync loop. It returns an error if the
// scheduler is already running or configured with a non-positive interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("sync: scheduler already running")
	}
	if s.interval <= 0 {
		return fmt.Errorf("sync: invalid scheduler interval %v", s.interval)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(loopCtx)

	s.logger.Info("sync scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the ticker and waits for any in-flight pass to drain, bounded
// by the context deadline. Cancellation never reaches the pass itself: an
// in-flight sync finishes its vendor calls instead of being aborted into a
// spurious failed run.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sync: scheduler shutdown timed out: %w", ctx.Err())
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// Cancellation only stops the ticker; passes run detached from it so
	// Stop drains an in-flight pass. The per-call vendor timeout bounds how
	// long that drain can take.
	passCtx := context.WithoutCancel(ctx)
	s.runPass(passCtx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass(passCtx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	started := time.Now()
	if err := s.orchestrator.SyncAll(ctx); err != nil {
		s.logger.Error("scheduled sync pass failed", zap.Error(err))
		return
	}
	s.logger.Debug("scheduled sync pass finished", zap.Duration("elapsed", time.Since(started)))
}
