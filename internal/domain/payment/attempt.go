package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttemptStatus is the status of one gateway payment attempt
type AttemptStatus string

const (
	AttemptStatusInitiated AttemptStatus = "initiated"
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusCompleted AttemptStatus = "completed"
	AttemptStatusFailed    AttemptStatus = "failed"
)

// IsValid checks if the status is a known AttemptStatus
func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptStatusInitiated, AttemptStatusPending, AttemptStatusCompleted, AttemptStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of AttemptStatus
func (s AttemptStatus) String() string {
	return string(s)
}

// AttemptSource is the channel that produced an attempt row
type AttemptSource string

const (
	SourceInitiate    AttemptSource = "initiate"
	SourceRedirect    AttemptSource = "redirect"
	SourceCallback    AttemptSource = "callback"
	SourceStatusCheck AttemptSource = "status_check"
)

// PaymentAttempt is one row of the payment audit ledger.
// Rows are created at initiation and updated at reconciliation, never deleted.
type PaymentAttempt struct {
	ID                   uuid.UUID
	OrderID              string
	Amount               decimal.Decimal
	Status               AttemptStatus
	GatewayTransactionID string // empty until the gateway supplies a reference
	RawResponse          []byte // stored for audit, never parsed again
	Source               AttemptSource
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewPaymentAttempt creates a new attempt for order
func NewPaymentAttempt(order *Order, status AttemptStatus, source AttemptSource, raw []byte) *PaymentAttempt {
	now := time.Now()
	return &PaymentAttempt{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Amount:      order.Amount,
		Status:      status,
		RawResponse: raw,
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsRefundable reports whether refunds may be recorded against the attempt
func (a *PaymentAttempt) IsRefundable() bool {
	return a.Status == AttemptStatusCompleted
}
