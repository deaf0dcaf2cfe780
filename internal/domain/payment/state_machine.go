package payment

// OrderEvent is something that happened to an order and may move its state
type OrderEvent string

const (
	EventPaymentInitiated OrderEvent = "payment_initiated"
	EventPaymentSucceeded OrderEvent = "payment_succeeded"
	EventPaymentFailed    OrderEvent = "payment_failed"
	EventRefundInitiated  OrderEvent = "refund_initiated"
	EventPaymentClosed    OrderEvent = "payment_closed"

	EventOrderConfirmed    OrderEvent = "order_confirmed"
	EventProcessingStarted OrderEvent = "processing_started"
	EventOrderShipped      OrderEvent = "order_shipped"
	EventOrderDelivered    OrderEvent = "order_delivered"
	EventOrderCancelled    OrderEvent = "order_cancelled"
	EventFulfillmentFailed OrderEvent = "fulfillment_failed"
)

var fulfillmentEvents = map[FulfillmentStatus]OrderEvent{
	FulfillmentStatusConfirmed:  EventOrderConfirmed,
	FulfillmentStatusProcessing: EventProcessingStarted,
	FulfillmentStatusShipped:    EventOrderShipped,
	FulfillmentStatusDelivered:  EventOrderDelivered,
	FulfillmentStatusCancelled:  EventOrderCancelled,
	FulfillmentStatusFailed:     EventFulfillmentFailed,
}

// FulfillmentEventFor returns the event that moves fulfillment to target
func FulfillmentEventFor(target FulfillmentStatus) (OrderEvent, bool) {
	ev, ok := fulfillmentEvents[target]
	return ev, ok
}

// OrderState is the pair of independent status axes plus the closed flag
type OrderState struct {
	Payment       PaymentStatus
	Fulfillment   FulfillmentStatus
	PaymentClosed bool
}

// Apply returns the state that results from event, or an *IllegalTransitionError.
// It never clamps: an event that does not fit the current state is rejected as a whole.
func Apply(state OrderState, event OrderEvent) (OrderState, error) {
	next := state

	switch event {
	case EventPaymentInitiated:
		if state.PaymentClosed || !state.Payment.CanTransitionTo(PaymentStatusInitiated) {
			return state, paymentIllegal(state, PaymentStatusInitiated, event)
		}
		// a captured payment could never confirm a cancelled order
		if state.Fulfillment == FulfillmentStatusCancelled {
			return state, paymentIllegal(state, PaymentStatusInitiated, event)
		}
		next.Payment = PaymentStatusInitiated
		// a retry after a failed payment reopens fulfillment
		if state.Fulfillment == FulfillmentStatusFailed {
			next.Fulfillment = FulfillmentStatusPending
		}

	case EventPaymentSucceeded:
		if !state.Payment.CanTransitionTo(PaymentStatusCompleted) {
			return state, paymentIllegal(state, PaymentStatusCompleted, event)
		}
		if !state.Fulfillment.CanTransitionTo(FulfillmentStatusConfirmed) {
			return state, fulfillmentIllegal(state, FulfillmentStatusConfirmed, event)
		}
		next.Payment = PaymentStatusCompleted
		next.Fulfillment = FulfillmentStatusConfirmed

	case EventPaymentFailed:
		if !state.Payment.CanTransitionTo(PaymentStatusFailed) {
			return state, paymentIllegal(state, PaymentStatusFailed, event)
		}
		next.Payment = PaymentStatusFailed
		switch {
		case state.Fulfillment.CanTransitionTo(FulfillmentStatusFailed):
			next.Fulfillment = FulfillmentStatusFailed
		case state.Fulfillment == FulfillmentStatusFailed, state.Fulfillment == FulfillmentStatusCancelled:
		default:
			return state, fulfillmentIllegal(state, FulfillmentStatusFailed, event)
		}

	case EventRefundInitiated:
		if !state.Payment.CanTransitionTo(PaymentStatusRefundInitiated) {
			return state, paymentIllegal(state, PaymentStatusRefundInitiated, event)
		}
		next.Payment = PaymentStatusRefundInitiated

	case EventPaymentClosed:
		if state.Payment != PaymentStatusFailed || state.PaymentClosed {
			return state, paymentIllegal(state, PaymentStatusFailed, event)
		}
		next.PaymentClosed = true

	default:
		target, ok := fulfillmentTarget(event)
		if !ok {
			return state, &IllegalTransitionError{Axis: "order", From: string(state.Payment), To: "?", Event: event}
		}
		if !state.Fulfillment.CanTransitionTo(target) {
			return state, fulfillmentIllegal(state, target, event)
		}
		// an open gateway session must settle before the order can be cancelled
		if target == FulfillmentStatusCancelled && state.Payment == PaymentStatusInitiated {
			return state, fulfillmentIllegal(state, target, event)
		}
		next.Fulfillment = target
	}

	return next, nil
}

func fulfillmentTarget(event OrderEvent) (FulfillmentStatus, bool) {
	for status, ev := range fulfillmentEvents {
		if ev == event {
			return status, true
		}
	}
	return "", false
}

func paymentIllegal(state OrderState, to PaymentStatus, event OrderEvent) error {
	return &IllegalTransitionError{Axis: "payment", From: string(state.Payment), To: string(to), Event: event}
}

func fulfillmentIllegal(state OrderState, to FulfillmentStatus, event OrderEvent) error {
	return &IllegalTransitionError{Axis: "fulfillment", From: string(state.Fulfillment), To: string(to), Event: event}
}
