package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Anomaly labels
const (
	AnomalyRegression     = "regression"
	AnomalyAmountMismatch = "amount_mismatch"
	AnomalyClosedPayment  = "success_after_close"
	AnomalyIllegal        = "illegal_transition"
)

// Reconciler applies gateway results to orders. Redirects, webhooks and status
// checks all end up here, so the result-code table is consulted in one place.
type Reconciler struct {
	uow payment.UnitOfWork
	options
	security *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(uow payment.UnitOfWork, opts ...Option) *Reconciler {
	o := newOptions(opts)
	return &Reconciler{
		uow:      uow,
		options:  o,
		security: logger.Security(o.logger),
	}
}

// Reconcile applies n to its order. Notifications that cannot or must not be
// applied come back with a non-applied disposition and a nil error; an error
// means the caller should let the gateway retry.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (result *ReconcileResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.reconcile",
		attribute.String("order_id", n.TransactionID),
		attribute.String("source", string(n.Source)),
		attribute.String("code", n.ResultCode),
	)
	defer func() {
		if result != nil {
			span.SetAttributes(attribute.String("disposition", string(result.Disposition)))
			r.metrics.RecordReconciliation(ctx, string(n.Source), string(result.Disposition))
		}
		telemetry.EndSpan(span, err)
	}()

	log := r.logger.With(
		zap.String("order_id", n.TransactionID),
		zap.String("code", n.ResultCode),
		zap.String("gateway_transaction_id", n.GatewayReferenceID),
		zap.String("source", string(n.Source)),
	)

	if n.TransactionID == "" || n.ResultCode == "" {
		log.Warn("Malformed payment notification ignored")
		return &ReconcileResult{OrderID: n.TransactionID, Disposition: DispositionMalformed}, nil
	}

	if r.alreadySettled(ctx, n) {
		log.Debug("Payment notification replay ignored")
		return &ReconcileResult{OrderID: n.TransactionID, Disposition: DispositionDuplicate, Outcome: payment.MapResultCode(n.ResultCode)}, nil
	}

	var events []shared.DomainEvent
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		events = nil
		err = r.uow.Do(ctx, func(repos payment.Repositories) error {
			var applyErr error
			result, events, applyErr = r.apply(ctx, repos, n)
			return applyErr
		})
		if !errors.Is(err, payment.ErrConcurrentUpdate) {
			break
		}
		log.Info("Order changed during reconciliation, retrying", zap.Int("attempt", attempt))
	}
	if errors.Is(err, payment.ErrConcurrentUpdate) {
		return nil, fmt.Errorf("%w: %s", ErrReconcileConflict, n.TransactionID)
	}
	if err != nil {
		log.Error("Payment reconciliation failed", zap.Error(err))
		return nil, err
	}

	r.publish(ctx, events)
	r.markSettled(ctx, n, result)
	r.archivePayload(ctx, n, result)

	switch result.Disposition {
	case DispositionApplied:
		log.Info("Payment notification applied",
			zap.String("payment_status", string(result.PaymentStatus)),
			zap.String("fulfillment_status", string(result.FulfillmentStatus)),
		)
	case DispositionAnomaly:
		r.security.Error("Payment notification rejected",
			zap.String("order_id", n.TransactionID),
			zap.String("code", n.ResultCode),
			zap.String("source", string(n.Source)),
			zap.String("anomaly", result.Anomaly),
			zap.String("payment_status", string(result.PaymentStatus)),
		)
	case DispositionUnknownOrder, DispositionUnmapped:
		log.Warn("Payment notification not applied", zap.String("disposition", string(result.Disposition)))
	default:
		log.Debug("Payment notification not applied", zap.String("disposition", string(result.Disposition)))
	}
	return result, nil
}

// apply decides and writes one notification inside a transaction
func (r *Reconciler) apply(ctx context.Context, repos payment.Repositories, n Notification) (*ReconcileResult, []shared.DomainEvent, error) {
	order, err := repos.Orders.FindByID(ctx, n.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return &ReconcileResult{OrderID: n.TransactionID, Disposition: DispositionUnknownOrder}, nil, nil
	}

	outcome := payment.MapResultCode(n.ResultCode)
	result := &ReconcileResult{
		OrderID:           order.ID,
		Outcome:           outcome,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
	}
	if outcome == payment.OutcomeUnknown {
		result.Disposition = DispositionUnmapped
		return result, nil, nil
	}

	events, disposition, anomaly := r.plan(order, outcome, n)
	if disposition != DispositionApplied {
		result.Disposition = disposition
		result.Anomaly = anomaly
		return result, nil, nil
	}

	expectedStatus, expectedVersion := order.PaymentStatus, order.Version
	// the captured session's reference wins over an earlier failed one
	if n.GatewayReferenceID != "" && (outcome == payment.OutcomeSuccess ||
		(outcome == payment.OutcomeFailure && order.GatewayTransactionID == "")) {
		order.GatewayTransactionID = n.GatewayReferenceID
	}
	for _, ev := range events {
		if err := order.Apply(ev); err != nil {
			// the state machine has the last word on combinations plan did not foresee
			if errors.Is(err, payment.ErrIllegalTransition) {
				result.Disposition = DispositionAnomaly
				result.Anomaly = AnomalyIllegal
				return result, nil, nil
			}
			return nil, nil, err
		}
	}
	if err := repos.Orders.CompareAndSwap(ctx, order, expectedStatus, expectedVersion); err != nil {
		return nil, nil, err
	}

	if outcome == payment.OutcomeSuccess || outcome == payment.OutcomeFailure {
		attempt := payment.NewPaymentAttempt(order, outcome.AttemptStatus(), n.Source, n.RawPayload)
		attempt.GatewayTransactionID = n.GatewayReferenceID
		if attempt.GatewayTransactionID == "" {
			attempt.GatewayTransactionID = order.ID
		}
		if err := repos.Attempts.InsertOrUpdate(ctx, attempt); err != nil {
			return nil, nil, err
		}
	}

	result.Disposition = DispositionApplied
	result.PaymentStatus = order.PaymentStatus
	result.FulfillmentStatus = order.FulfillmentStatus
	return result, order.GetDomainEvents(), nil
}

// plan returns the state machine events that take order to outcome, or why it must not move
func (r *Reconciler) plan(order *payment.Order, outcome payment.Outcome, n Notification) ([]payment.OrderEvent, Disposition, string) {
	state := order.State()

	event, ok := outcome.Event()
	if !ok {
		return nil, DispositionUnmapped, ""
	}
	if target, _ := outcome.TargetPaymentStatus(); state.Payment == target {
		return nil, DispositionDuplicate, ""
	}

	switch outcome {
	case payment.OutcomeSuccess:
		switch {
		case state.Payment.IsPaid():
			return nil, DispositionDuplicate, ""
		case state.Payment == payment.PaymentStatusFailed && state.PaymentClosed:
			return nil, DispositionAnomaly, AnomalyClosedPayment
		case n.AmountMinor != 0 && n.AmountMinor != order.AmountMinorUnits():
			return nil, DispositionAnomaly, AnomalyAmountMismatch
		}
	case payment.OutcomeFailure:
		if state.Payment.IsPaid() {
			return nil, DispositionAnomaly, AnomalyRegression
		}
	case payment.OutcomePending:
		if state.Payment != payment.PaymentStatusPending {
			return nil, DispositionIgnored, ""
		}
	}

	// pending, or failed and still open: the session is opened on the way to the outcome
	events := []payment.OrderEvent{event}
	if event != payment.EventPaymentInitiated && state.Payment != payment.PaymentStatusInitiated {
		events = append([]payment.OrderEvent{payment.EventPaymentInitiated}, events...)
	}
	return events, DispositionApplied, ""
}

// alreadySettled consults the fast path. Only success is final: a failed order
// can be initiated again, and the key carries no session identity, so failure
// replays always go to the database.
func (r *Reconciler) alreadySettled(ctx context.Context, n Notification) bool {
	if r.idempotency == nil || payment.MapResultCode(n.ResultCode) != payment.OutcomeSuccess {
		return false
	}
	processed, err := r.idempotency.IsProcessed(ctx, n.IdempotencyKey())
	if err != nil {
		r.logger.Warn("Idempotency store unavailable, falling back to database", zap.Error(err))
		return false
	}
	return processed
}

// markSettled remembers settled successes so replays skip the database
func (r *Reconciler) markSettled(ctx context.Context, n Notification, result *ReconcileResult) {
	if r.idempotency == nil || result.Outcome != payment.OutcomeSuccess {
		return
	}
	if result.Disposition != DispositionApplied && result.Disposition != DispositionDuplicate {
		return
	}
	if _, err := r.idempotency.MarkProcessed(ctx, n.IdempotencyKey(), r.idempotencyTTL); err != nil {
		r.logger.Warn("Failed to mark notification processed", zap.Error(err))
	}
}

// PayloadKey is the archive key of a notification body:
// yyyy/mm/dd/<order>/<source>-<timestamp>.json
func PayloadKey(n Notification, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%s-%s.json",
		at.Format("2006/01/02"),
		url.PathEscape(n.TransactionID),
		n.Source,
		at.Format("20060102T150405.000000000Z"),
	)
}

// archivePayload stores the raw body of an accepted notification. Failures
// are logged only; the order state is already committed.
func (r *Reconciler) archivePayload(ctx context.Context, n Notification, result *ReconcileResult) {
	if r.payloads == nil || len(n.RawPayload) == 0 || result.Disposition == DispositionDuplicate {
		return
	}
	key := PayloadKey(n, r.now())
	if err := r.payloads.Archive(ctx, key, n.RawPayload); err != nil {
		r.logger.Warn("Failed to archive payment notification",
			zap.String("order_id", n.TransactionID),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
