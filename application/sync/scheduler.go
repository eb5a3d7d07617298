package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is one unit of scheduled work
type Runner interface {
	Reconcile(ctx context.Context) (*Report, error)
}

// Scheduler runs reconciliation on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	timeout time.Duration
	logger  *zap.Logger

	mu      stdsync.Mutex
	started bool
	cancel  context.CancelFunc
	ctx     context.Context
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@every 15m") and binds it to runner. Each run is bounded by timeout.
func NewScheduler(spec string, runner Runner, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid mirror sync schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.runner.Reconcile(ctx); err != nil {
		s.logger.Error("Scheduled mirror sync failed", zap.Error(err))
	}
}

// Start begins scheduling; calling it twice is a no-op
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("Mirror sync scheduler started")
}

// Stop cancels any run in flight and waits for it to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if !s.started {
		return
	}
	s.started = false
	<-s.cron.Stop().Done()
	s.logger.Info("Mirror sync scheduler stopped")
}
