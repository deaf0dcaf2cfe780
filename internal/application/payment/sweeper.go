package payment

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"go.uber.org/zap"
)

// Sweep outcomes recorded in metrics
const (
	sweepResolved = "resolved"
	sweepPending  = "pending"
	sweepError    = "error"
)

// Sweeper re-checks orders stuck in initiated, for sessions whose callback never arrived
type Sweeper struct {
	orders     payment.OrderRepository
	poller     *StatusPoller
	stuckAfter time.Duration
	batchSize  int
	options
}

// NewSweeper creates a new Sweeper
func NewSweeper(orders payment.OrderRepository, poller *StatusPoller, stuckAfter time.Duration, batchSize int, opts ...Option) *Sweeper {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Sweeper{
		orders:     orders,
		poller:     poller,
		stuckAfter: stuckAfter,
		batchSize:  batchSize,
		options:    newOptions(opts),
	}
}

// SweepOnce checks one batch of stuck orders. Per-order failures are counted, not returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (*SweepReport, error) {
	cutoff := s.now().Add(-s.stuckAfter)
	orders, err := s.orders.FindStuckInitiated(ctx, cutoff, s.batchSize)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Scanned: len(orders)}
	for i := range orders {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		orderID := orders[i].ID
		result, err := s.poller.CheckStatus(ctx, orderID)
		switch {
		case err != nil:
			report.Errors++
			s.metrics.RecordSweep(ctx, sweepError)
			s.logger.Warn("Sweep status check failed", zap.String("order_id", orderID), zap.Error(err))
		case result.PaymentStatus == payment.PaymentStatusInitiated:
			report.Pending++
			s.metrics.RecordSweep(ctx, sweepPending)
		default:
			report.Resolved++
			s.metrics.RecordSweep(ctx, sweepResolved)
		}
	}

	if report.Scanned > 0 {
		s.logger.Info("Payment sweep finished",
			zap.Int("scanned", report.Scanned),
			zap.Int("resolved", report.Resolved),
			zap.Int("pending", report.Pending),
			zap.Int("errors", report.Errors),
		)
	}
	return report, nil
}

// RunSweep satisfies scheduler.SweepRunner
func (s *Sweeper) RunSweep(ctx context.Context) error {
	_, err := s.SweepOnce(ctx)
	return err
}
