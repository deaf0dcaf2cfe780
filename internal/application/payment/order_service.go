package payment

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"go.uber.org/zap"
)

// CreateOrderRequest seeds an order from the checkout flow
type CreateOrderRequest struct {
	OrderID       string
	CustomerRef   string
	CustomerPhone string
	Amount        decimal.Decimal
	Items         []payment.OrderItem
}

// OrderService exposes the order read model and order creation for checkout
type OrderService struct {
	orders   payment.OrderRepository
	attempts payment.AttemptRepository
	options
}

// NewOrderService creates a new OrderService
func NewOrderService(orders payment.OrderRepository, attempts payment.AttemptRepository, opts ...Option) *OrderService {
	return &OrderService{
		orders:   orders,
		attempts: attempts,
		options:  newOptions(opts),
	}
}

// CreateOrder persists a new pending order
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*payment.Order, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, ErrValidation
	}
	order, err := payment.NewOrder(req.OrderID, req.CustomerRef, req.CustomerPhone, req.Amount, req.Items)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("amount", order.Amount.StringFixed(2)),
	)
	return order, nil
}

// GetOrder returns the order if customerRef may see it. An empty customerRef sees every order.
func (s *OrderService) GetOrder(ctx context.Context, orderID, customerRef string) (*payment.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || !order.BelongsTo(customerRef) {
		return nil, payment.ErrOrderNotFound
	}
	return order, nil
}

// ListAttempts returns the attempt history of an order, oldest first
func (s *OrderService) ListAttempts(ctx context.Context, orderID, customerRef string) ([]payment.PaymentAttempt, error) {
	if _, err := s.GetOrder(ctx, orderID, customerRef); err != nil {
		return nil, err
	}
	return s.attempts.ListByOrder(ctx, orderID)
}
