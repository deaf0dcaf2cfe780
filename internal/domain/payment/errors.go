package payment

import (
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
)

// Order and attempt errors. These are DomainErrors so the HTTP layer can map
// their codes directly.
var (
	ErrOrderNotFound        = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	ErrAlreadyPaid          = shared.NewDomainError("ALREADY_PAID", "Order has already been paid")
	ErrPaymentInProgress    = shared.NewDomainError("PAYMENT_IN_PROGRESS", "A payment session is already open for this order")
	ErrOrderCancelled       = shared.NewDomainError("ORDER_CANCELLED", "Order was cancelled and cannot be paid")
	ErrAmountMismatch       = shared.NewDomainError("AMOUNT_MISMATCH", "Requested amount does not match the order total")
	ErrInvalidAmount        = shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	ErrInvalidOrder         = shared.NewDomainError("INVALID_ORDER", "Order is invalid")
	ErrAttemptNotFound      = shared.NewDomainError("ATTEMPT_NOT_FOUND", "Payment attempt not found")
	ErrAttemptNotRefundable = shared.NewDomainError("ATTEMPT_NOT_REFUNDABLE", "Only a completed payment attempt can be refunded")
	ErrRefundExceedsPayment = shared.NewDomainError("REFUND_EXCEEDS_PAYMENT", "Refund total would exceed the captured amount")
	ErrConcurrentUpdate     = shared.NewDomainError("CONCURRENCY_CONFLICT", "Order was modified by another process")
)

// ErrIllegalTransition is matched by every IllegalTransitionError
var ErrIllegalTransition = errors.New("illegal order state transition")

// IllegalTransitionError describes a rejected state machine event
type IllegalTransitionError struct {
	Axis  string // "payment" or "fulfillment"
	From  string
	To    string
	Event OrderEvent
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal %s transition %s -> %s (event %s)", e.Axis, e.From, e.To, e.Event)
}

// Is lets errors.Is match ErrIllegalTransition
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// Gateway error kinds
var (
	// ErrGatewayUnavailable is returned when the gateway cannot be reached or times out
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected is returned when the gateway answers with a 4xx
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	// ErrGatewayError is returned on 5xx or an unusable response body
	ErrGatewayError = errors.New("payment gateway error")
)

// GatewayError carries the gateway's own code and message
type GatewayError struct {
	Kind       error
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

// Unwrap returns the error kind
func (e *GatewayError) Unwrap() error {
	return e.Kind
}

// IsRetryable reports whether the caller may retry the same order later
func (e *GatewayError) IsRetryable() bool {
	return errors.Is(e.Kind, ErrGatewayUnavailable) || errors.Is(e.Kind, ErrGatewayError)
}

// ErrInvalidDateRange is returned for empty or inverted analytics ranges
var ErrInvalidDateRange = shared.NewDomainError("INVALID_DATE_RANGE", "from must be before to")
