package payment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
)

// InitiateRequest asks for a hosted pay-page session for an order
type InitiateRequest struct {
	OrderID      string
	Amount       decimal.Decimal
	MobileNumber string
	// UserID is the authenticated customer, empty for guest checkout
	UserID string
}

// InitiateResult is returned once the gateway accepted the session
type InitiateResult struct {
	OrderID       string
	AttemptID     uuid.UUID
	RedirectURL   string
	PaymentStatus payment.PaymentStatus
}

// Notification is a gateway result for one transaction, whatever channel delivered it
type Notification struct {
	TransactionID      string // our order ID
	ResultCode         string
	GatewayReferenceID string
	// AmountMinor is the amount the gateway reports in paise; 0 when absent
	AmountMinor int64
	RawPayload  []byte
	Source      payment.AttemptSource
}

// IdempotencyKey identifies a notification for replay detection
func (n Notification) IdempotencyKey() string {
	return n.TransactionID + "|" + n.ResultCode + "|" + n.GatewayReferenceID
}

// Disposition says what reconciliation did with a notification
type Disposition string

const (
	DispositionApplied      Disposition = "applied"
	DispositionDuplicate    Disposition = "duplicate"
	DispositionIgnored      Disposition = "ignored" // pending code for an order that already moved on
	DispositionAnomaly      Disposition = "anomaly"
	DispositionUnknownOrder Disposition = "unknown_order"
	DispositionUnmapped     Disposition = "unmapped"
	DispositionMalformed    Disposition = "malformed"
	DispositionUnverified   Disposition = "unverified"
)

// ReconcileResult reports the outcome of one notification
type ReconcileResult struct {
	OrderID           string
	Disposition       Disposition
	Outcome           payment.Outcome
	Anomaly           string
	PaymentStatus     payment.PaymentStatus
	FulfillmentStatus payment.FulfillmentStatus
}

// StatusCheckResult is a reconciliation driven by a gateway status query
type StatusCheckResult struct {
	ReconcileResult
	GatewayCode  string
	GatewayState string
}

// SweepReport summarizes one sweep over stuck orders
type SweepReport struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Pending  int `json:"pending"`
	Errors   int `json:"errors"`
}

// RefundRequest records a refund against a completed attempt
type RefundRequest struct {
	OrderID   string
	AttemptID uuid.UUID
	Amount    decimal.Decimal
	Reason    string
}
