package payment

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// AggregateTypeOrder is the aggregate type for order events
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypePaymentCompleted = "PaymentCompleted"
	EventTypePaymentFailed    = "PaymentFailed"
	EventTypeRefundInitiated  = "RefundInitiated"
)

// PaymentCompletedEvent is raised when the gateway confirms a capture
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID              string          `json:"order_id"`
	CustomerRef          string          `json:"customer_ref"`
	Amount               decimal.Decimal `json:"amount"`
	GatewayTransactionID string          `json:"gateway_transaction_id"`
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(o *Order) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypeOrder, o.ID),
		OrderID:              o.ID,
		CustomerRef:          o.CustomerRef,
		Amount:               o.Amount,
		GatewayTransactionID: o.GatewayTransactionID,
	}
}

// PaymentFailedEvent is raised when the gateway reports a failed payment
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	OrderID     string `json:"order_id"`
	CustomerRef string `json:"customer_ref"`
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(o *Order) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		CustomerRef:     o.CustomerRef,
	}
}

// RefundInitiatedEvent is raised the first time a refund is recorded for an order
type RefundInitiatedEvent struct {
	shared.BaseDomainEvent
	OrderID string `json:"order_id"`
}

// NewRefundInitiatedEvent creates a new RefundInitiatedEvent
func NewRefundInitiatedEvent(o *Order) *RefundInitiatedEvent {
	return &RefundInitiatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundInitiated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
	}
}
