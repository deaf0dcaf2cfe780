package payment

// PaymentStatus is the payment axis of an order
type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusInitiated       PaymentStatus = "initiated"
	PaymentStatusCompleted       PaymentStatus = "completed"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusRefundInitiated PaymentStatus = "refund_initiated"
)

// IsValid checks if the status is a known PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusInitiated, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefundInitiated:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsPaid reports whether money has been captured for the order
func (s PaymentStatus) IsPaid() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusRefundInitiated
}

// CanInitiate reports whether a new gateway session may be opened
func (s PaymentStatus) CanInitiate() bool {
	return s == PaymentStatusPending || s == PaymentStatusFailed
}

// CanTransitionTo checks if the status can transition to the target status
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusInitiated
	case PaymentStatusInitiated:
		return target == PaymentStatusCompleted || target == PaymentStatusFailed
	case PaymentStatusFailed:
		return target == PaymentStatusInitiated
	case PaymentStatusCompleted:
		return target == PaymentStatusRefundInitiated
	case PaymentStatusRefundInitiated:
		return false
	}
	return false
}

// FulfillmentStatus is the fulfillment axis of an order
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusConfirmed  FulfillmentStatus = "confirmed"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled  FulfillmentStatus = "cancelled"
	FulfillmentStatusFailed     FulfillmentStatus = "failed"
)

// IsValid checks if the status is a known FulfillmentStatus
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusPending, FulfillmentStatusConfirmed, FulfillmentStatusProcessing,
		FulfillmentStatusShipped, FulfillmentStatusDelivered, FulfillmentStatusCancelled,
		FulfillmentStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// IsPreShipment reports whether the order has not left the warehouse yet
func (s FulfillmentStatus) IsPreShipment() bool {
	return s == FulfillmentStatusPending || s == FulfillmentStatusConfirmed || s == FulfillmentStatusProcessing
}

// CanTransitionTo checks if the status can transition to the target status.
// The failed -> pending reopening is not listed here: it only happens as part
// of a payment re-initiation.
func (s FulfillmentStatus) CanTransitionTo(target FulfillmentStatus) bool {
	if s.IsPreShipment() && (target == FulfillmentStatusCancelled || target == FulfillmentStatusFailed) {
		return true
	}
	switch s {
	case FulfillmentStatusPending:
		return target == FulfillmentStatusConfirmed
	case FulfillmentStatusConfirmed:
		return target == FulfillmentStatusProcessing
	case FulfillmentStatusProcessing:
		return target == FulfillmentStatusShipped
	case FulfillmentStatusShipped:
		return target == FulfillmentStatusDelivered
	case FulfillmentStatusDelivered, FulfillmentStatusCancelled, FulfillmentStatusFailed:
		return false // Terminal states
	}
	return false
}
