package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// fallbackMobile is sent when the customer has no usable 10-digit number
const fallbackMobile = "9999999999"

// Initiation outcomes recorded in metrics
const (
	initiationOK             = "initiated"
	initiationRejected       = "rejected"
	initiationGatewayFailure = "gateway_error"
)

// Initiator opens hosted pay-page sessions
type Initiator struct {
	orders  payment.OrderRepository
	uow     payment.UnitOfWork
	gateway payment.Gateway
	options
	security *zap.Logger
}

// NewInitiator creates a new Initiator. orders is used for the read before the
// gateway call; writes go through uow.
func NewInitiator(orders payment.OrderRepository, uow payment.UnitOfWork, gateway payment.Gateway, opts ...Option) *Initiator {
	o := newOptions(opts)
	return &Initiator{
		orders:   orders,
		uow:      uow,
		gateway:  gateway,
		options:  o,
		security: logger.Security(o.logger),
	}
}

// Initiate validates the order and amount, calls the gateway once and records the session.
// The gateway call happens before any transaction is opened.
func (s *Initiator) Initiate(ctx context.Context, req InitiateRequest) (result *InitiateResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.initiate", attribute.String("order_id", req.OrderID))
	defer func() {
		switch {
		case err == nil:
			s.metrics.RecordInitiation(ctx, initiationOK)
		case isGatewayError(err):
			s.metrics.RecordInitiation(ctx, initiationGatewayFailure)
		default:
			s.metrics.RecordInitiation(ctx, initiationRejected)
		}
		telemetry.EndSpan(span, err)
	}()

	if strings.TrimSpace(req.OrderID) == "" || !req.Amount.IsPositive() {
		return nil, ErrValidation
	}

	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || !order.BelongsTo(req.UserID) {
		return nil, payment.ErrOrderNotFound
	}
	if err := checkInitiable(order); err != nil {
		return nil, err
	}
	if !req.Amount.Equal(order.Amount) {
		s.security.Warn("Payment amount mismatch",
			zap.String("security_event", "amount_mismatch"),
			zap.String("order_id", order.ID),
			zap.String("requested_amount", req.Amount.String()),
			zap.String("order_amount", order.Amount.String()),
			zap.String("user_id", req.UserID),
		)
		return nil, payment.ErrAmountMismatch
	}

	mobile := req.MobileNumber
	if mobile == "" {
		mobile = order.CustomerPhone
	}

	start := time.Now()
	resp, gwErr := s.gateway.Pay(ctx, payment.PayRequest{
		MerchantTransactionID: order.ID,
		MerchantUserID:        order.CustomerRef,
		AmountMinor:           order.AmountMinorUnits(),
		MobileNumber:          NormalizeMobile(mobile),
	})
	s.metrics.RecordGatewayCall(ctx, "pay", time.Since(start), gwErr)

	if gwErr != nil {
		s.recordFailedSession(ctx, order, gwErr)
		return nil, gwErr
	}
	return s.recordSession(ctx, order.ID, resp)
}

// recordSession moves the order to initiated and stores the initiated attempt
func (s *Initiator) recordSession(ctx context.Context, orderID string, resp *payment.PayResponse) (*InitiateResult, error) {
	var result *InitiateResult
	record := func(repos payment.Repositories) error {
		order, err := repos.Orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return payment.ErrOrderNotFound
		}

		// the order may have been cancelled while the gateway call was in flight
		if order.FulfillmentStatus == payment.FulfillmentStatusCancelled {
			return payment.ErrOrderCancelled
		}

		// A concurrent request may have opened a session in the meantime; the
		// gateway session we hold is still real, so only the order write is skipped.
		if order.PaymentStatus.CanInitiate() {
			expected, version := order.PaymentStatus, order.Version
			if err := order.Apply(payment.EventPaymentInitiated); err != nil {
				if errors.Is(err, payment.ErrIllegalTransition) {
					return ErrPaymentClosed
				}
				return err
			}
			if err := repos.Orders.CompareAndSwap(ctx, order, expected, version); err != nil {
				return err
			}
		} else if order.PaymentStatus.IsPaid() {
			return payment.ErrAlreadyPaid
		}

		attempt := payment.NewPaymentAttempt(order, payment.AttemptStatusInitiated, payment.SourceInitiate, resp.Raw)
		if err := repos.Attempts.Create(ctx, attempt); err != nil {
			return err
		}

		result = &InitiateResult{
			OrderID:       order.ID,
			AttemptID:     attempt.ID,
			RedirectURL:   resp.RedirectURL,
			PaymentStatus: order.PaymentStatus,
		}
		return nil
	}

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = s.uow.Do(ctx, record); !errors.Is(err, payment.ErrConcurrentUpdate) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, payment.ErrConcurrentUpdate) {
			return nil, payment.ErrPaymentInProgress
		}
		return nil, err
	}

	s.logger.Info("Payment session opened",
		zap.String("order_id", result.OrderID),
		zap.String("attempt_id", result.AttemptID.String()),
	)
	return result, nil
}

// recordFailedSession stores a failed attempt for the audit ledger. The order is not touched.
func (s *Initiator) recordFailedSession(ctx context.Context, order *payment.Order, gwErr error) {
	raw := map[string]any{"error": gwErr.Error()}
	var ge *payment.GatewayError
	if errors.As(gwErr, &ge) {
		raw["status"] = ge.StatusCode
		raw["code"] = ge.Code
		raw["message"] = ge.Message
	}
	body, _ := json.Marshal(raw)

	attempt := payment.NewPaymentAttempt(order, payment.AttemptStatusFailed, payment.SourceInitiate, body)
	if err := s.uow.Do(ctx, func(repos payment.Repositories) error {
		return repos.Attempts.Create(ctx, attempt)
	}); err != nil {
		s.logger.Error("Failed to record failed payment attempt", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.logger.Warn("Gateway rejected payment initiation",
		zap.String("order_id", order.ID),
		zap.Error(gwErr),
	)
}

func checkInitiable(order *payment.Order) error {
	switch {
	case order.PaymentStatus.IsPaid():
		return payment.ErrAlreadyPaid
	case order.PaymentStatus == payment.PaymentStatusInitiated:
		return payment.ErrPaymentInProgress
	case order.PaymentClosedAt != nil:
		return ErrPaymentClosed
	case order.FulfillmentStatus == payment.FulfillmentStatusCancelled:
		return payment.ErrOrderCancelled
	case !order.PaymentStatus.CanInitiate():
		return shared.ErrInvalidState
	}
	return nil
}

func isGatewayError(err error) bool {
	var ge *payment.GatewayError
	return errors.As(err, &ge)
}

// NormalizeMobile keeps the digits of s and returns the last ten, or the
// gateway's placeholder number when fewer than ten remain
func NormalizeMobile(s string) string {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 10 {
		return fallbackMobile
	}
	return string(digits[len(digits)-10:])
}
