package payment

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"go.uber.org/zap"
)

// StatusPoller asks the gateway for a transaction's state and reconciles the answer
type StatusPoller struct {
	orders     payment.OrderRepository
	gateway    payment.Gateway
	reconciler *Reconciler
	options
}

// NewStatusPoller creates a new StatusPoller
func NewStatusPoller(orders payment.OrderRepository, gateway payment.Gateway, reconciler *Reconciler, opts ...Option) *StatusPoller {
	return &StatusPoller{
		orders:     orders,
		gateway:    gateway,
		reconciler: reconciler,
		options:    newOptions(opts),
	}
}

// CheckStatus queries the gateway for orderID and feeds the result through the reconciler
func (p *StatusPoller) CheckStatus(ctx context.Context, orderID string) (*StatusCheckResult, error) {
	order, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, payment.ErrOrderNotFound
	}

	start := time.Now()
	resp, err := p.gateway.CheckStatus(ctx, orderID)
	p.metrics.RecordGatewayCall(ctx, "status", time.Since(start), err)
	if err != nil {
		p.logger.Warn("Gateway status check failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}

	result, err := p.reconciler.Reconcile(ctx, Notification{
		TransactionID:      orderID,
		ResultCode:         resp.Code,
		GatewayReferenceID: resp.ProviderReferenceID,
		AmountMinor:        resp.AmountMinor,
		RawPayload:         resp.Raw,
		Source:             payment.SourceStatusCheck,
	})
	if err != nil {
		return nil, err
	}

	return &StatusCheckResult{
		ReconcileResult: *result,
		GatewayCode:     resp.Code,
		GatewayState:    resp.State,
	}, nil
}
