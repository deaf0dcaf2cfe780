package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AdminService holds the operator actions on orders and payments
type AdminService struct {
	attempts payment.AttemptRepository
	uow      payment.UnitOfWork
	poller   *StatusPoller
	sweeper  *Sweeper
	options
}

// NewAdminService creates a new AdminService
func NewAdminService(attempts payment.AttemptRepository, uow payment.UnitOfWork, poller *StatusPoller, sweeper *Sweeper, opts ...Option) *AdminService {
	return &AdminService{
		attempts: attempts,
		uow:      uow,
		poller:   poller,
		sweeper:  sweeper,
		options:  newOptions(opts),
	}
}

// InitiateRefund records a refund against a completed attempt of the order.
// The first refund moves the order to refund_initiated. No money is moved.
func (s *AdminService) InitiateRefund(ctx context.Context, req RefundRequest) (*payment.Refund, error) {
	var (
		refund *payment.Refund
		events []shared.DomainEvent
	)
	err := s.withRetry(ctx, func(repos payment.Repositories) error {
		refund, events = nil, nil

		order, err := repos.Orders.FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return payment.ErrOrderNotFound
		}
		attempt, err := repos.Attempts.FindByID(ctx, req.AttemptID)
		if err != nil {
			return err
		}
		if attempt == nil || attempt.OrderID != order.ID {
			return payment.ErrAttemptNotFound
		}

		refunded, err := repos.Refunds.SumByAttempt(ctx, attempt.ID)
		if err != nil {
			return err
		}
		r, err := payment.NewRefund(attempt, req.Amount, refunded, req.Reason)
		if err != nil {
			return err
		}

		if order.PaymentStatus == payment.PaymentStatusCompleted {
			expected, version := order.PaymentStatus, order.Version
			if err := order.Apply(payment.EventRefundInitiated); err != nil {
				return err
			}
			if err := repos.Orders.CompareAndSwap(ctx, order, expected, version); err != nil {
				return err
			}
		}
		if err := repos.Refunds.Create(ctx, r); err != nil {
			return err
		}

		refund, events = r, order.GetDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.logger.Info("Refund recorded",
		zap.String("order_id", refund.OrderID),
		zap.String("attempt_id", refund.AttemptID.String()),
		zap.String("refund_id", refund.ID.String()),
		zap.String("amount", refund.Amount.StringFixed(2)),
	)
	return refund, nil
}

// ClosePayment marks a failed payment closed. A closed payment cannot be
// re-initiated and later success notifications for it are treated as anomalies.
func (s *AdminService) ClosePayment(ctx context.Context, orderID string) (*payment.Order, error) {
	order, err := s.transition(ctx, orderID, payment.EventPaymentClosed, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Payment closed", zap.String("order_id", orderID))
	return order, nil
}

// AdvanceFulfillment moves the fulfillment axis to target
func (s *AdminService) AdvanceFulfillment(ctx context.Context, orderID string, target payment.FulfillmentStatus) (*payment.Order, error) {
	event, ok := payment.FulfillmentEventFor(target)
	if !ok {
		return nil, fmt.Errorf("%w: unknown fulfillment status %q", ErrValidation, target)
	}
	order, err := s.transition(ctx, orderID, event, func(o *payment.Order) error {
		if target == payment.FulfillmentStatusCancelled && o.PaymentStatus == payment.PaymentStatusInitiated {
			return payment.ErrPaymentInProgress
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fulfillment advanced",
		zap.String("order_id", orderID),
		zap.String("fulfillment_status", string(order.FulfillmentStatus)),
	)
	return order, nil
}

// Analytics summarizes the attempt ledger over r
func (s *AdminService) Analytics(ctx context.Context, r payment.DateRange) (*payment.PaymentStats, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.attempts.Aggregate(ctx, r)
}

// CheckStatus runs a manual gateway status check for the order
func (s *AdminService) CheckStatus(ctx context.Context, orderID string) (*StatusCheckResult, error) {
	return s.poller.CheckStatus(ctx, orderID)
}

// Sweep runs one stuck-order sweep immediately
func (s *AdminService) Sweep(ctx context.Context) (*SweepReport, error) {
	return s.sweeper.SweepOnce(ctx)
}

// transition applies a single state machine event to the order with a compare-and-swap.
// guard, when set, sees the freshly read order first.
func (s *AdminService) transition(ctx context.Context, orderID string, event payment.OrderEvent, guard func(o *payment.Order) error) (*payment.Order, error) {
	var order *payment.Order
	err := s.withRetry(ctx, func(repos payment.Repositories) error {
		o, err := repos.Orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return payment.ErrOrderNotFound
		}
		if guard != nil {
			if err := guard(o); err != nil {
				return err
			}
		}
		expected, version := o.PaymentStatus, o.Version
		if err := o.Apply(event); err != nil {
			return err
		}
		if err := repos.Orders.CompareAndSwap(ctx, o, expected, version); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// withRetry reruns fn in a fresh transaction after a lost compare-and-swap
func (s *AdminService) withRetry(ctx context.Context, fn func(repos payment.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.uow.Do(ctx, fn)
		if !errors.Is(err, payment.ErrConcurrentUpdate) {
			return err
		}
	}
	return err
}
