package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundStatus is the status of a refund record
type RefundStatus string

const (
	RefundStatusRequested RefundStatus = "requested"
)

// Refund records a refund request against a completed attempt.
// It references the attempt rather than the order so several partial refunds
// of one payment can be tracked independently.
type Refund struct {
	ID        uuid.UUID
	AttemptID uuid.UUID
	OrderID   string
	Amount    decimal.Decimal
	Reason    string
	Status    RefundStatus
	CreatedAt time.Time
}

// NewRefund validates and creates a refund for attempt.
// alreadyRefunded is the total of earlier refunds against the same attempt.
func NewRefund(attempt *PaymentAttempt, amount, alreadyRefunded decimal.Decimal, reason string) (*Refund, error) {
	if !attempt.IsRefundable() {
		return nil, ErrAttemptNotRefundable
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if alreadyRefunded.Add(amount).GreaterThan(attempt.Amount) {
		return nil, ErrRefundExceedsPayment
	}

	return &Refund{
		ID:        uuid.New(),
		AttemptID: attempt.ID,
		OrderID:   attempt.OrderID,
		Amount:    amount,
		Reason:    strings.TrimSpace(reason),
		Status:    RefundStatusRequested,
		CreatedAt: time.Now(),
	}, nil
}
