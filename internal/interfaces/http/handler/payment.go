package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// PaymentHandler serves the customer-facing payment endpoints
type PaymentHandler struct {
	BaseHandler
	initiator *paymentapp.Initiator
	orders    *paymentapp.OrderService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(initiator *paymentapp.Initiator, orders *paymentapp.OrderService) *PaymentHandler {
	return &PaymentHandler{
		initiator: initiator,
		orders:    orders,
	}
}

// InitiatePaymentRequest is the checkout request body
// @Description Request to open a hosted payment session
type InitiatePaymentRequest struct {
	OrderID      string          `json:"orderId" binding:"required,max=64" example:"ORD-1001"`
	Amount       decimal.Decimal `json:"amount" swaggertype:"string" example:"1000.00"`
	MobileNumber string          `json:"mobileNumber" binding:"omitempty,mobile" example:"9876543210"`
}

// InitiatePaymentResponse carries the hosted pay page URL
// @Description Payment session created
type InitiatePaymentResponse struct {
	OrderID       string `json:"orderId" example:"ORD-1001"`
	AttemptID     string `json:"attemptId" example:"0b9b3f9e-3c9a-4a0f-9d1e-0c9f2e1d7a11"`
	RedirectURL   string `json:"redirectUrl" example:"https://mercury.phonepe.com/transact/pay"`
	PaymentStatus string `json:"paymentStatus" example:"initiated"`
}

// OrderStatusResponse is the order read model exposed to the storefront
// @Description Order payment and fulfillment state
type OrderStatusResponse struct {
	OrderID              string     `json:"orderId"`
	Amount               string     `json:"amount" example:"1000.00"`
	Currency             string     `json:"currency" example:"INR"`
	AmountDisplay        string     `json:"amountDisplay" example:"INR 1,000.00"`
	PaymentStatus        string     `json:"paymentStatus" example:"completed"`
	FulfillmentStatus    string     `json:"fulfillmentStatus" example:"confirmed"`
	GatewayTransactionID string     `json:"gatewayTransactionId,omitempty"`
	PaymentInitiatedAt   *time.Time `json:"paymentInitiatedAt,omitempty"`
	PaymentCompletedAt   *time.Time `json:"paymentCompletedAt,omitempty"`
	PaymentClosed        bool       `json:"paymentClosed"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// PaymentAttemptResponse is one row of an order's attempt history
// @Description Payment attempt
type PaymentAttemptResponse struct {
	ID                   string    `json:"id"`
	Amount               string    `json:"amount"`
	Status               string    `json:"status" example:"completed"`
	Source               string    `json:"source" example:"callback"`
	GatewayTransactionID string    `json:"gatewayTransactionId,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Initiate godoc
// @ID           initiatePayment
// @Summary      Start a payment
// @Description  Validates the order and amount, opens a hosted pay-page session and returns its URL
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body InitiatePaymentRequest true "Payment request"
// @Success      200 {object} APIResponse[InitiatePaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /payments/initiate [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	// decimal.Decimal is a struct, so the validator cannot check it
	if !req.Amount.IsPositive() {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "amount", Message: "Must be greater than 0"}})
		return
	}

	result, err := h.initiator.Initiate(c.Request.Context(), paymentapp.InitiateRequest{
		OrderID:      req.OrderID,
		Amount:       req.Amount,
		MobileNumber: req.MobileNumber,
		UserID:       getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, InitiatePaymentResponse{
		OrderID:       result.OrderID,
		AttemptID:     result.AttemptID.String(),
		RedirectURL:   result.RedirectURL,
		PaymentStatus: string(result.PaymentStatus),
	})
}

// GetOrder godoc
// @ID           getPaymentOrder
// @Summary      Get order payment state
// @Tags         payments
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[OrderStatusResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /payments/orders/{id} [get]
func (h *PaymentHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"), getUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderStatusResponse(order))
}

// ListAttempts godoc
// @ID           listPaymentAttempts
// @Summary      List payment attempts of an order
// @Tags         payments
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[[]PaymentAttemptResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /payments/orders/{id}/attempts [get]
func (h *PaymentHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.orders.ListAttempts(c.Request.Context(), c.Param("id"), getUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]PaymentAttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, PaymentAttemptResponse{
			ID:                   a.ID.String(),
			Amount:               a.Amount.StringFixed(2),
			Status:               string(a.Status),
			Source:               string(a.Source),
			GatewayTransactionID: a.GatewayTransactionID,
			CreatedAt:            a.CreatedAt,
			UpdatedAt:            a.UpdatedAt,
		})
	}
	h.Success(c, out)
}

func toOrderStatusResponse(o *payment.Order) OrderStatusResponse {
	return OrderStatusResponse{
		OrderID:              o.ID,
		Amount:               o.Amount.StringFixed(2),
		Currency:             o.Currency,
		AmountDisplay:        dto.FormatAmount(o.Amount, o.Currency),
		PaymentStatus:        string(o.PaymentStatus),
		FulfillmentStatus:    string(o.FulfillmentStatus),
		GatewayTransactionID: o.GatewayTransactionID,
		PaymentInitiatedAt:   o.PaymentInitiatedAt,
		PaymentCompletedAt:   o.PaymentCompletedAt,
		PaymentClosed:        o.PaymentClosedAt != nil,
		UpdatedAt:            o.UpdatedAt,
	}
}
