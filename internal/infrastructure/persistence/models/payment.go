package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
)

// PaymentAttemptModel is the persistence model for one payment ledger row.
// The unique index on (order_id, gateway_transaction_id) absorbs duplicate notifications;
// rows without a gateway reference keep a NULL id and never collide.
type PaymentAttemptModel struct {
	BaseModel
	OrderID              string                `gorm:"type:varchar(64);not null;index;uniqueIndex:uq_payment_attempts_order_gateway_txn,priority:1"`
	Amount               decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Status               payment.AttemptStatus `gorm:"type:varchar(20);not null;index"`
	GatewayTransactionID *string               `gorm:"type:varchar(100);uniqueIndex:uq_payment_attempts_order_gateway_txn,priority:2"`
	RawResponse          []byte                `gorm:"type:bytea"`
	Source               payment.AttemptSource `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (PaymentAttemptModel) TableName() string {
	return "payment_attempts"
}

// ToDomain converts the persistence model to a domain PaymentAttempt
func (m *PaymentAttemptModel) ToDomain() *payment.PaymentAttempt {
	attempt := &payment.PaymentAttempt{
		ID:          m.ID,
		OrderID:     m.OrderID,
		Amount:      m.Amount,
		Status:      m.Status,
		RawResponse: m.RawResponse,
		Source:      m.Source,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.GatewayTransactionID != nil {
		attempt.GatewayTransactionID = *m.GatewayTransactionID
	}
	return attempt
}

// FromDomain populates the persistence model from a domain PaymentAttempt
func (m *PaymentAttemptModel) FromDomain(a *payment.PaymentAttempt) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.OrderID = a.OrderID
	m.Amount = a.Amount
	m.Status = a.Status
	m.GatewayTransactionID = nullableString(a.GatewayTransactionID)
	m.RawResponse = a.RawResponse
	m.Source = a.Source
}

// PaymentAttemptModelFromDomain creates a new persistence model from a domain PaymentAttempt
func PaymentAttemptModelFromDomain(a *payment.PaymentAttempt) *PaymentAttemptModel {
	m := &PaymentAttemptModel{}
	m.FromDomain(a)
	return m
}

// RefundModel is the persistence model for a refund audit row
type RefundModel struct {
	ID        uuid.UUID            `gorm:"type:uuid;primary_key"`
	AttemptID uuid.UUID            `gorm:"type:uuid;not null;index"`
	OrderID   string               `gorm:"type:varchar(64);not null;index"`
	Amount    decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Reason    string               `gorm:"type:varchar(500)"`
	Status    payment.RefundStatus `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundModel) TableName() string {
	return "refunds"
}

// ToDomain converts the persistence model to a domain Refund
func (m *RefundModel) ToDomain() *payment.Refund {
	return &payment.Refund{
		ID:        m.ID,
		AttemptID: m.AttemptID,
		OrderID:   m.OrderID,
		Amount:    m.Amount,
		Reason:    m.Reason,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// RefundModelFromDomain creates a new persistence model from a domain Refund
func RefundModelFromDomain(r *payment.Refund) *RefundModel {
	return &RefundModel{
		ID:        r.ID,
		AttemptID: r.AttemptID,
		OrderID:   r.OrderID,
		Amount:    r.Amount,
		Reason:    r.Reason,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
