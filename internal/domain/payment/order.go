package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultCurrency is the currency every order is priced in
const DefaultCurrency = "INR"

// OrderItem is the snapshot of a purchased line taken at checkout
type OrderItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is the aggregate the payment engine reconciles.
// Amount is fixed at creation; every checksum and gateway call uses it.
type Order struct {
	ID                   string
	CustomerRef          string
	CustomerPhone        string
	Amount               decimal.Decimal
	Currency             string
	Items                []OrderItem
	PaymentStatus        PaymentStatus
	FulfillmentStatus    FulfillmentStatus
	GatewayTransactionID string
	PaymentInitiatedAt   *time.Time
	PaymentCompletedAt   *time.Time
	PaymentClosedAt      *time.Time
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time

	domainEvents []shared.DomainEvent
}

// NewOrder creates a pending order. Called by the checkout flow.
func NewOrder(id, customerRef, customerPhone string, amount decimal.Decimal, items []OrderItem) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Order{
		ID:                id,
		CustomerRef:       customerRef,
		CustomerPhone:     customerPhone,
		Amount:            amount,
		Currency:          DefaultCurrency,
		Items:             items,
		PaymentStatus:     PaymentStatusPending,
		FulfillmentStatus: FulfillmentStatusPending,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// State returns the order's current state machine position
func (o *Order) State() OrderState {
	return OrderState{
		Payment:       o.PaymentStatus,
		Fulfillment:   o.FulfillmentStatus,
		PaymentClosed: o.PaymentClosedAt != nil,
	}
}

// AmountMinorUnits returns the amount in paise
func (o *Order) AmountMinorUnits() int64 {
	return ToMinorUnits(o.Amount)
}

// BelongsTo reports whether the order was placed by the given customer
func (o *Order) BelongsTo(customerRef string) bool {
	return customerRef == "" || o.CustomerRef == customerRef
}

// Apply runs event through the state machine and, when legal, updates the order.
// The order is left untouched on error.
func (o *Order) Apply(event OrderEvent) error {
	next, err := Apply(o.State(), event)
	if err != nil {
		return err
	}

	now := time.Now()
	o.PaymentStatus = next.Payment
	o.FulfillmentStatus = next.Fulfillment
	o.UpdatedAt = now

	switch event {
	case EventPaymentInitiated:
		o.PaymentInitiatedAt = &now
	case EventPaymentSucceeded:
		o.PaymentCompletedAt = &now
		o.AddDomainEvent(NewPaymentCompletedEvent(o))
	case EventPaymentFailed:
		o.AddDomainEvent(NewPaymentFailedEvent(o))
	case EventRefundInitiated:
		o.AddDomainEvent(NewRefundInitiatedEvent(o))
	case EventPaymentClosed:
		o.PaymentClosedAt = &now
	}
	return nil
}

// AddDomainEvent adds a domain event to be published
func (o *Order) AddDomainEvent(event shared.DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (o *Order) GetDomainEvents() []shared.DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (o *Order) ClearDomainEvents() {
	o.domainEvents = nil
}

// ToMinorUnits converts a rupee amount to paise, rounding half away from zero
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits converts paise back to rupees
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
