package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// AdminHandler serves operator actions on orders and payments
type AdminHandler struct {
	BaseHandler
	admin *paymentapp.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admin *paymentapp.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// StatusCheckResponse reports a manual gateway status check
// @Description Result of a gateway status check
type StatusCheckResponse struct {
	OrderID           string `json:"orderId"`
	GatewayCode       string `json:"gatewayCode" example:"PAYMENT_SUCCESS"`
	GatewayState      string `json:"gatewayState,omitempty" example:"COMPLETED"`
	Disposition       string `json:"disposition" example:"applied"`
	Anomaly           string `json:"anomaly,omitempty"`
	PaymentStatus     string `json:"paymentStatus,omitempty" example:"completed"`
	FulfillmentStatus string `json:"fulfillmentStatus,omitempty" example:"confirmed"`
}

// CreateRefundRequest records a refund against a completed attempt
// @Description Refund request
type CreateRefundRequest struct {
	AttemptID string          `json:"attemptId" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
	Reason    string          `json:"reason" binding:"max=500"`
}

// RefundResponse is a recorded refund
// @Description Refund record
type RefundResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	AttemptID string    `json:"attemptId"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status" example:"requested"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateFulfillmentRequest moves the fulfillment axis of an order
// @Description Fulfillment transition
type UpdateFulfillmentRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed processing shipped delivered cancelled failed" example:"shipped"`
}

// CheckStatus godoc
// @ID           adminCheckPaymentStatus
// @Summary      Verify a payment with the gateway
// @Description  Queries the gateway status API and reconciles the answer
// @Tags         admin-payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[StatusCheckResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /admin/payments/orders/{id}/check-status [post]
func (h *AdminHandler) CheckStatus(c *gin.Context) {
	result, err := h.admin.CheckStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, StatusCheckResponse{
		OrderID:           result.OrderID,
		GatewayCode:       result.GatewayCode,
		GatewayState:      result.GatewayState,
		Disposition:       string(result.Disposition),
		Anomaly:           result.Anomaly,
		PaymentStatus:     string(result.PaymentStatus),
		FulfillmentStatus: string(result.FulfillmentStatus),
	})
}

// CreateRefund godoc
// @ID           adminCreateRefund
// @Summary      Record a refund
// @Description  Records a refund against a completed attempt. No money is moved.
// @Tags         admin-payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Order ID"
// @Param        request body CreateRefundRequest true "Refund"
// @Success      201 {object} APIResponse[RefundResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /admin/payments/orders/{id}/refunds [post]
func (h *AdminHandler) CreateRefund(c *gin.Context) {
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "amount", Message: "Must be greater than 0"}})
		return
	}

	refund, err := h.admin.InitiateRefund(c.Request.Context(), paymentapp.RefundRequest{
		OrderID:   c.Param("id"),
		AttemptID: uuid.MustParse(req.AttemptID),
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("Refund recorded by admin",
		zap.String("order_id", refund.OrderID),
		zap.String("refund_id", refund.ID.String()),
		zap.String("admin_id", getUserID(c)),
	)
	h.Created(c, RefundResponse{
		ID:        refund.ID.String(),
		OrderID:   refund.OrderID,
		AttemptID: refund.AttemptID.String(),
		Amount:    refund.Amount.StringFixed(2),
		Reason:    refund.Reason,
		Status:    string(refund.Status),
		CreatedAt: refund.CreatedAt,
	})
}

// ClosePayment godoc
// @ID           adminClosePayment
// @Summary      Close a failed payment
// @Description  A closed payment cannot be retried; later success notifications are flagged as anomalies
// @Tags         admin-payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[OrderStatusResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /admin/payments/orders/{id}/close [post]
func (h *AdminHandler) ClosePayment(c *gin.Context) {
	order, err := h.admin.ClosePayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderStatusResponse(order))
}

// UpdateFulfillment godoc
// @ID           adminUpdateFulfillment
// @Summary      Advance order fulfillment
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Order ID"
// @Param        request body UpdateFulfillmentRequest true "Target status"
// @Success      200 {object} APIResponse[OrderStatusResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /admin/orders/{id}/fulfillment [patch]
func (h *AdminHandler) UpdateFulfillment(c *gin.Context) {
	var req UpdateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.admin.AdvanceFulfillment(c.Request.Context(), c.Param("id"), payment.FulfillmentStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderStatusResponse(order))
}

// Analytics godoc
// @ID           adminPaymentAnalytics
// @Summary      Payment analytics
// @Description  Attempt counts, success rate and revenue per day. `to` is inclusive when given as a date.
// @Tags         admin-payments
// @Produce      json
// @Security     BearerAuth
// @Param        from query string true "Start date (YYYY-MM-DD or RFC3339)"
// @Param        to   query string true "End date (YYYY-MM-DD or RFC3339)"
// @Success      200 {object} APIResponse[payment.PaymentStats]
// @Failure      400 {object} ErrorResponse
// @Router       /admin/payments/analytics [get]
func (h *AdminHandler) Analytics(c *gin.Context) {
	from, _, err := parseDateParam(c.Query("from"))
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "from", Message: "Must be a date (YYYY-MM-DD) or RFC3339 time"}})
		return
	}
	to, dateOnly, err := parseDateParam(c.Query("to"))
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "to", Message: "Must be a date (YYYY-MM-DD) or RFC3339 time"}})
		return
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1)
	}

	stats, err := h.admin.Analytics(c.Request.Context(), payment.DateRange{From: from, To: to})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Sweep godoc
// @ID           adminSweepStuckPayments
// @Summary      Re-check stuck payments now
// @Description  Runs one sweep over orders left in initiated past the configured age
// @Tags         admin-payments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[paymentapp.SweepReport]
// @Router       /admin/payments/sweep [post]
func (h *AdminHandler) Sweep(c *gin.Context) {
	report, err := h.admin.Sweep(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// parseDateParam accepts YYYY-MM-DD (UTC midnight) or RFC3339
func parseDateParam(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}
