package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// VerifyHeader carries the gateway's checksum on webhooks
const VerifyHeader = "X-VERIFY"

const unknownStatus = "unknown"

// CallbackConfig configures the inbound gateway channels
type CallbackConfig struct {
	// FrontendBaseURL is where browsers are sent after a redirect is handled
	FrontendBaseURL string
	// MerchantID rejects notifications addressed to another merchant when set
	MerchantID string
	// VerifyCallbacks requires a valid X-VERIFY on webhooks and re-checks
	// redirects against the status API instead of trusting the posted code
	VerifyCallbacks bool
}

// CallbackHandler receives gateway results from the browser redirect and the webhook.
// Both feed the same Reconciler.
type CallbackHandler struct {
	BaseHandler
	reconciler *paymentapp.Reconciler
	poller     *paymentapp.StatusPoller
	orders     *paymentapp.OrderService
	decoder    payment.NotificationDecoder
	config     CallbackConfig
}

// NewCallbackHandler creates a new CallbackHandler
func NewCallbackHandler(
	reconciler *paymentapp.Reconciler,
	poller *paymentapp.StatusPoller,
	orders *paymentapp.OrderService,
	decoder payment.NotificationDecoder,
	config CallbackConfig,
) *CallbackHandler {
	config.FrontendBaseURL = strings.TrimRight(config.FrontendBaseURL, "/")
	return &CallbackHandler{
		reconciler: reconciler,
		poller:     poller,
		orders:     orders,
		decoder:    decoder,
		config:     config,
	}
}

// GatewayNotification is the field shape of both inbound channels
// @Description Gateway payment result
type GatewayNotification struct {
	Code                string `json:"code" form:"code" example:"PAYMENT_SUCCESS"`
	MerchantID          string `json:"merchantId" form:"merchantId" example:"MERCHANTUAT"`
	TransactionID       string `json:"transactionId" form:"transactionId" example:"ORD-1001"`
	ProviderReferenceID string `json:"providerReferenceId" form:"providerReferenceId" example:"T2401011200001"`
	Amount              int64  `json:"amount" form:"amount" example:"100000"`
}

// webhookBody accepts both the flat shape and the {"response": base64} envelope
type webhookBody struct {
	GatewayNotification
	Response string `json:"response"`
}

func (n GatewayNotification) toNotification(source payment.AttemptSource, raw []byte) paymentapp.Notification {
	return paymentapp.Notification{
		TransactionID:      strings.TrimSpace(n.TransactionID),
		ResultCode:         strings.TrimSpace(n.Code),
		GatewayReferenceID: strings.TrimSpace(n.ProviderReferenceID),
		AmountMinor:        n.Amount,
		RawPayload:         raw,
		Source:             source,
	}
}

// Redirect godoc
// @ID           paymentRedirect
// @Summary      Browser return from the pay page
// @Description  Reconciles the result and sends the browser to the storefront status page
// @Tags         payment-callbacks
// @Accept       x-www-form-urlencoded,json
// @Param        request body GatewayNotification true "Gateway result"
// @Success      303
// @Failure      400 {object} ErrorResponse
// @Router       /payments/redirect [post]
func (h *CallbackHandler) Redirect(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var n GatewayNotification
	if err := c.ShouldBind(&n); err != nil || strings.TrimSpace(n.TransactionID) == "" {
		h.BadRequest(c, "transactionId is required")
		return
	}
	orderID := strings.TrimSpace(n.TransactionID)
	if !h.merchantMatches(n.MerchantID) {
		h.logMerchantMismatch(ctx, orderID, n.MerchantID, payment.SourceRedirect)
		h.redirectTo(c, orderID, h.currentStatus(ctx, orderID))
		return
	}

	var (
		result *paymentapp.ReconcileResult
		err    error
	)
	if h.config.VerifyCallbacks {
		// the posted code cannot be authenticated, so ask the gateway
		var checked *paymentapp.StatusCheckResult
		checked, err = h.poller.CheckStatus(ctx, orderID)
		if checked != nil {
			result = &checked.ReconcileResult
		}
	} else {
		raw, _ := json.Marshal(n)
		result, err = h.reconciler.Reconcile(ctx, n.toNotification(payment.SourceRedirect, raw))
	}
	if err != nil {
		log.Warn("Redirect reconciliation failed", zap.String("order_id", orderID), zap.Error(err))
	}

	status := ""
	if result != nil {
		status = string(result.PaymentStatus)
	}
	if status == "" {
		status = h.currentStatus(ctx, orderID)
	}
	h.redirectTo(c, orderID, status)
}

// Webhook godoc
// @ID           paymentWebhook
// @Summary      Server-to-server payment notification
// @Description  Reconciles the result. Every notification the server could process is acknowledged with 200.
// @Tags         payment-callbacks
// @Accept       json
// @Produce      json
// @Param        X-VERIFY header string false "sha256(base64 response field + saltKey)###saltIndex; flat bodies are signed whole"
// @Param        request body GatewayNotification true "Gateway result, flat or as {\"response\": base64}"
// @Success      200 {object} AckResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payments/callback [post]
func (h *CallbackHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warn("Failed to read webhook body", zap.Error(err))
		h.ack(c, paymentapp.DispositionMalformed)
		return
	}

	if h.config.VerifyCallbacks && !h.decoder.VerifyNotification(body, c.GetHeader(VerifyHeader)) {
		logger.Security(log).Warn("Webhook signature rejected",
			zap.String("security_event", "invalid_webhook_signature"),
			zap.String("client_ip", c.ClientIP()),
			zap.Bool("signature_present", c.GetHeader(VerifyHeader) != ""),
		)
		h.ack(c, paymentapp.DispositionUnverified)
		return
	}

	n, merchantID, ok := h.decodeWebhook(body)
	if !ok {
		log.Warn("Malformed webhook body ignored", zap.Int("body_bytes", len(body)))
		h.ack(c, paymentapp.DispositionMalformed)
		return
	}
	if !h.merchantMatches(merchantID) {
		h.logMerchantMismatch(ctx, n.TransactionID, merchantID, payment.SourceCallback)
		h.ack(c, paymentapp.DispositionUnverified)
		return
	}

	result, err := h.reconciler.Reconcile(ctx, n)
	if err != nil {
		// let the gateway redeliver
		h.HandleError(c, err)
		return
	}
	h.ack(c, result.Disposition)
}

func (h *CallbackHandler) decodeWebhook(body []byte) (paymentapp.Notification, string, bool) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return paymentapp.Notification{}, "", false
	}
	if wb.Response == "" {
		return wb.GatewayNotification.toNotification(payment.SourceCallback, body), wb.MerchantID, true
	}

	status, err := h.decoder.DecodeNotification(body)
	if err != nil {
		return paymentapp.Notification{}, "", false
	}
	return paymentapp.Notification{
		TransactionID:      status.TransactionID,
		ResultCode:         status.Code,
		GatewayReferenceID: status.ProviderReferenceID,
		AmountMinor:        status.AmountMinor,
		RawPayload:         status.Raw,
		Source:             payment.SourceCallback,
	}, status.MerchantID, true
}

func (h *CallbackHandler) merchantMatches(merchantID string) bool {
	return h.config.MerchantID == "" || merchantID == "" || merchantID == h.config.MerchantID
}

func (h *CallbackHandler) logMerchantMismatch(ctx context.Context, orderID, merchantID string, source payment.AttemptSource) {
	logger.Security(logger.FromContext(ctx)).Warn("Notification for another merchant rejected",
		zap.String("security_event", "merchant_mismatch"),
		zap.String("order_id", orderID),
		zap.String("merchant_id", merchantID),
		zap.String("source", string(source)),
	)
}

// currentStatus reads the stored payment status for the browser redirect
func (h *CallbackHandler) currentStatus(ctx context.Context, orderID string) string {
	order, err := h.orders.GetOrder(ctx, orderID, "")
	if err != nil {
		return unknownStatus
	}
	return string(order.PaymentStatus)
}

func (h *CallbackHandler) redirectTo(c *gin.Context, orderID, status string) {
	target := h.config.FrontendBaseURL + "/payment/status/" + url.PathEscape(orderID) +
		"?status=" + url.QueryEscape(status)
	c.Redirect(http.StatusSeeOther, target)
}

func (h *CallbackHandler) ack(c *gin.Context, disposition paymentapp.Disposition) {
	c.JSON(http.StatusOK, AckResponse{Success: true, Disposition: string(disposition)})
}
