package dto

import "net/http"

// Error codes returned in ErrorInfo.Code. Domain errors keep their own code,
// so most of these mirror a shared.DomainError defined next to the domain.

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
)

// Request error codes
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeRateLimited is also written directly by the rate limit middleware
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
)

// Payment error codes
const (
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeInvalidOrder         = "INVALID_ORDER"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeAmountMismatch       = "AMOUNT_MISMATCH"
	ErrCodeAlreadyPaid          = "ALREADY_PAID"
	ErrCodePaymentInProgress    = "PAYMENT_IN_PROGRESS"
	ErrCodePaymentClosed        = "PAYMENT_CLOSED"
	ErrCodeOrderCancelled       = "ORDER_CANCELLED"
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeIllegalTransition    = "ILLEGAL_TRANSITION"
	ErrCodeConcurrencyConflict  = "CONCURRENCY_CONFLICT"
	ErrCodeReconcileConflict    = "RECONCILE_CONFLICT"
	ErrCodeAttemptNotFound      = "ATTEMPT_NOT_FOUND"
	ErrCodeAttemptNotRefundable = "ATTEMPT_NOT_REFUNDABLE"
	ErrCodeRefundExceedsPayment = "REFUND_EXCEEDS_PAYMENT"
	ErrCodeInvalidDateRange     = "INVALID_DATE_RANGE"
)

// Gateway error codes
const (
	ErrCodeGatewayRejected    = "GATEWAY_REJECTED"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrCodeGatewayError       = "GATEWAY_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeOrderNotFound:   http.StatusNotFound,
	ErrCodeAttemptNotFound: http.StatusNotFound,

	ErrCodeInvalidOrder:     http.StatusBadRequest,
	ErrCodeInvalidAmount:    http.StatusBadRequest,
	ErrCodeAmountMismatch:   http.StatusBadRequest,
	ErrCodeInvalidDateRange: http.StatusBadRequest,

	// Conflicts with the order's current payment state
	ErrCodeAlreadyPaid:         http.StatusConflict,
	ErrCodePaymentInProgress:   http.StatusConflict,
	ErrCodePaymentClosed:       http.StatusConflict,
	ErrCodeOrderCancelled:      http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeReconcileConflict:   http.StatusConflict,

	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
	ErrCodeIllegalTransition:    http.StatusUnprocessableEntity,
	ErrCodeAttemptNotRefundable: http.StatusUnprocessableEntity,
	ErrCodeRefundExceedsPayment: http.StatusUnprocessableEntity,

	ErrCodeGatewayRejected:    http.StatusBadRequest,
	ErrCodeGatewayUnavailable: http.StatusServiceUnavailable,
	ErrCodeGatewayError:       http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
