package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrSource      = attribute.Key("source")
	attrDisposition = attribute.Key("disposition")
	attrOutcome     = attribute.Key("outcome")
	attrOperation   = attribute.Key("operation")
)

// PaymentMetrics records reconciliation and gateway instruments.
type PaymentMetrics struct {
	reconciliations *Counter
	initiations     *Counter
	sweeps          *Counter
	gatewayLatency  *Histogram
}

// NewPaymentMetrics registers the payment instruments on meter
func NewPaymentMetrics(meter metric.Meter) (*PaymentMetrics, error) {
	reconciliations, err := NewCounter(meter,
		"payment_reconciliations_total",
		"Gateway notifications reconciled, by source and disposition",
		"{notification}")
	if err != nil {
		return nil, err
	}
	initiations, err := NewCounter(meter,
		"payment_initiations_total",
		"Payment initiation requests, by outcome",
		"{request}")
	if err != nil {
		return nil, err
	}
	sweeps, err := NewCounter(meter,
		"payment_sweep_orders_total",
		"Stuck orders re-checked by the sweep, by outcome",
		"{order}")
	if err != nil {
		return nil, err
	}
	gatewayLatency, err := NewHistogram(meter,
		"payment_gateway_request_duration_seconds",
		"Latency of outbound gateway requests",
		"s",
		GatewayDurationBuckets)
	if err != nil {
		return nil, err
	}

	return &PaymentMetrics{
		reconciliations: reconciliations,
		initiations:     initiations,
		sweeps:          sweeps,
		gatewayLatency:  gatewayLatency,
	}, nil
}

// RecordReconciliation counts one reconciled notification
func (m *PaymentMetrics) RecordReconciliation(ctx context.Context, source, disposition string) {
	m.reconciliations.Inc(ctx, attrSource.String(source), attrDisposition.String(disposition))
}

// RecordInitiation counts one initiation request
func (m *PaymentMetrics) RecordInitiation(ctx context.Context, outcome string) {
	m.initiations.Inc(ctx, attrOutcome.String(outcome))
}

// RecordSweep counts one order processed by the sweep
func (m *PaymentMetrics) RecordSweep(ctx context.Context, outcome string) {
	m.sweeps.Inc(ctx, attrOutcome.String(outcome))
}

// RecordGatewayCall records the latency of one gateway request
func (m *PaymentMetrics) RecordGatewayCall(ctx context.Context, operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayLatency.RecordDuration(ctx, d, attrOperation.String(operation), attrOutcome.String(outcome))
}
