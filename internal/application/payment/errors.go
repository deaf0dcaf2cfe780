package payment

import "github.com/storefront/backend/internal/domain/shared"

// Application-level errors. Domain errors from the payment package pass through unchanged.
var (
	ErrValidation        = shared.NewDomainError("VALIDATION_ERROR", "Request validation failed")
	ErrPaymentClosed     = shared.NewDomainError("PAYMENT_CLOSED", "Payment for this order was closed and cannot be retried")
	ErrReconcileConflict = shared.NewDomainError("RECONCILE_CONFLICT", "Order kept changing while the notification was applied")
)
