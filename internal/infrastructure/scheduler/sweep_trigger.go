package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// SweepRunner re-checks orders whose payment initiation never resolved
type SweepRunner interface {
	RunSweep(ctx context.Context) error
}

// SweepTrigger runs the stuck-payment sweep on a fixed interval
type SweepTrigger struct {
	interval time.Duration
	runner   SweepRunner
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepTrigger creates a new sweep trigger
func NewSweepTrigger(cfg config.SweepConfig, runner SweepRunner, logger *zap.Logger) (*SweepTrigger, error) {
	if cfg.Interval <= 0 {
		return nil, ErrInvalidConfig
	}
	return &SweepTrigger{
		interval: cfg.Interval,
		runner:   runner,
		logger:   logger.Named("sweep_trigger"),
	}, nil
}

// Start starts the trigger loop; calling it twice is a no-op
func (s *SweepTrigger) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Payment sweep trigger started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep, bounded by ctx
func (s *SweepTrigger) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Payment sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SweepTrigger) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runner.RunSweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Payment sweep failed", zap.Error(err))
			}
		}
	}
}
