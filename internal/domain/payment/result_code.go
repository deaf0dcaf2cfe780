package payment

// Outcome classifies a gateway result code
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
	OutcomeUnknown Outcome = "unknown"
)

// Gateway result codes
const (
	CodePaymentSuccess      = "PAYMENT_SUCCESS"
	CodePaymentError        = "PAYMENT_ERROR"
	CodePaymentDeclined     = "PAYMENT_DECLINED"
	CodePaymentCancelled    = "PAYMENT_CANCELLED"
	CodeTimedOut            = "TIMED_OUT"
	CodeAuthorizationFailed = "AUTHORIZATION_FAILED"
	CodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	CodePaymentPending      = "PAYMENT_PENDING"
	CodePaymentInitiated    = "PAYMENT_INITIATED"
)

// resultCodes is the only code -> outcome table. Redirects, webhooks and
// status checks all read it through MapResultCode.
var resultCodes = map[string]Outcome{
	CodePaymentSuccess:      OutcomeSuccess,
	CodePaymentError:        OutcomeFailure,
	CodePaymentDeclined:     OutcomeFailure,
	CodePaymentCancelled:    OutcomeFailure,
	CodeTimedOut:            OutcomeFailure,
	CodeAuthorizationFailed: OutcomeFailure,
	CodeTransactionNotFound: OutcomeFailure,
	CodePaymentPending:      OutcomePending,
	CodePaymentInitiated:    OutcomePending,
}

// MapResultCode returns the outcome for a gateway code
func MapResultCode(code string) Outcome {
	if outcome, ok := resultCodes[code]; ok {
		return outcome
	}
	return OutcomeUnknown
}

// Event returns the state machine event for the outcome.
// Pending and unknown outcomes have no terminal event.
func (o Outcome) Event() (OrderEvent, bool) {
	switch o {
	case OutcomeSuccess:
		return EventPaymentSucceeded, true
	case OutcomeFailure:
		return EventPaymentFailed, true
	case OutcomePending:
		return EventPaymentInitiated, true
	}
	return "", false
}

// TargetPaymentStatus is the payment status the outcome drives an order to
func (o Outcome) TargetPaymentStatus() (PaymentStatus, bool) {
	switch o {
	case OutcomeSuccess:
		return PaymentStatusCompleted, true
	case OutcomeFailure:
		return PaymentStatusFailed, true
	case OutcomePending:
		return PaymentStatusInitiated, true
	}
	return "", false
}

// AttemptStatus is the ledger status recorded for the outcome
func (o Outcome) AttemptStatus() AttemptStatus {
	switch o {
	case OutcomeSuccess:
		return AttemptStatusCompleted
	case OutcomeFailure:
		return AttemptStatusFailed
	}
	return AttemptStatusPending
}
