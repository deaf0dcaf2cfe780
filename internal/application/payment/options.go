package payment

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Metrics receives payment counters. telemetry.PaymentMetrics implements it.
type Metrics interface {
	RecordReconciliation(ctx context.Context, source, disposition string)
	RecordInitiation(ctx context.Context, outcome string)
	RecordSweep(ctx context.Context, outcome string)
	RecordGatewayCall(ctx context.Context, operation string, d time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordReconciliation(context.Context, string, string) {}
func (noopMetrics) RecordInitiation(context.Context, string) {}
func (noopMetrics) RecordSweep(context.Context, string) {}
func (noopMetrics) RecordGatewayCall(context.Context, string, time.Duration, error) {}

type options struct {
	logger         *zap.Logger
	metrics        Metrics
	publisher      shared.EventPublisher
	payloads       payment.PayloadArchive
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	maxAttempts    int
	now            func() time.Time
}

// Option configures a payment service
type Option func(*options)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithEventPublisher sets where domain events go after commit
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithPayloadArchive keeps every raw notification body that reaches the reconciler
func WithPayloadArchive(a payment.PayloadArchive) Option {
	return func(o *options) {
		o.payloads = a
	}
}

// WithIdempotencyStore enables the notification replay fast path
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(o *options) {
		o.idempotency = store
		if ttl > 0 {
			o.idempotencyTTL = ttl
		}
	}
}

// WithMaxAttempts bounds how often a unit of work is retried after losing a compare-and-swap
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:         zap.NewNop(),
		metrics:        noopMetrics{},
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
		maxAttempts:    3,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) publish(ctx context.Context, events []shared.DomainEvent) {
	if o.publisher == nil || len(events) == 0 {
		return
	}
	if err := o.publisher.Publish(ctx, events...); err != nil {
		o.logger.Error("Failed to publish payment events", zap.Error(err))
	}
}
