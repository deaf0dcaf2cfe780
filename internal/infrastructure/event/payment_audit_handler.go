package event

import (
	"context"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentAuditHandler writes a structured audit line for every settled payment event.
// Downstream consumers (receipts, fulfilment) subscribe alongside it.
type PaymentAuditHandler struct {
	logger *zap.Logger
}

// NewPaymentAuditHandler creates a new PaymentAuditHandler
func NewPaymentAuditHandler(logger *zap.Logger) *PaymentAuditHandler {
	return &PaymentAuditHandler{logger: logger.Named("payment_audit")}
}

// EventTypes returns the payment event types
func (h *PaymentAuditHandler) EventTypes() []string {
	return []string{
		payment.EventTypePaymentCompleted,
		payment.EventTypePaymentFailed,
		payment.EventTypeRefundInitiated,
	}
}

// Handle logs the event
func (h *PaymentAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("order_id", event.AggregateID()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *payment.PaymentCompletedEvent:
		fields = append(fields,
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("gateway_transaction_id", e.GatewayTransactionID),
		)
	case *payment.PaymentFailedEvent:
		fields = append(fields, zap.String("customer_ref", e.CustomerRef))
	}

	h.logger.Info("Payment event", fields...)
	return nil
}

var _ shared.EventHandler = (*PaymentAuditHandler)(nil)
