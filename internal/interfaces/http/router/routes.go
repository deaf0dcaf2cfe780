package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// Handlers are the endpoints of the payment API
type Handlers struct {
	Payments  *handler.PaymentHandler
	Callbacks *handler.CallbackHandler
	Admin     *handler.AdminHandler
	Health    *handler.HealthHandler
}

// Guards are the per-group middleware chains
type Guards struct {
	// Customer runs on customer endpoints; usually optional JWT auth so guests can check out
	Customer []gin.HandlerFunc
	// Initiate runs only on payment initiation, e.g. a tighter rate limit
	Initiate []gin.HandlerFunc
	// Admin runs on operator endpoints; must authenticate and check the admin role
	Admin []gin.HandlerFunc
}

// RegisterPaymentRoutes mounts the payment API on engine.
// The gateway posts to the unversioned /redirect and /callback paths configured
// in the pay request; the versioned aliases serve the same handlers.
func RegisterPaymentRoutes(engine *gin.Engine, h Handlers, guards Guards) {
	engine.GET("/health", h.Health.Health)
	engine.POST("/redirect", h.Callbacks.Redirect)
	engine.POST("/callback", h.Callbacks.Webhook)

	r := NewRouter(engine, WithAPIVersion("v1"))

	system := NewDomainGroup("system", "")
	system.GET("/health", h.Health.Health)

	callbacks := NewDomainGroup("payment-callbacks", "/payments")
	callbacks.POST("/redirect", h.Callbacks.Redirect)
	callbacks.POST("/callback", h.Callbacks.Webhook)

	payments := NewDomainGroup("payments", "/payments").Use(guards.Customer...)
	payments.POST("/initiate", append(append([]gin.HandlerFunc{}, guards.Initiate...), h.Payments.Initiate)...)
	payments.GET("/orders/:id", h.Payments.GetOrder)
	payments.GET("/orders/:id/attempts", h.Payments.ListAttempts)

	admin := NewDomainGroup("admin", "/admin").Use(guards.Admin...)
	adminPayments := admin.Group("admin-payments", "/payments")
	adminPayments.POST("/orders/:id/check-status", h.Admin.CheckStatus)
	adminPayments.POST("/orders/:id/refunds", h.Admin.CreateRefund)
	adminPayments.POST("/orders/:id/close", h.Admin.ClosePayment)
	adminPayments.GET("/analytics", h.Admin.Analytics)
	adminPayments.POST("/sweep", h.Admin.Sweep)
	adminOrders := admin.Group("admin-orders", "/orders")
	adminOrders.PATCH("/:id/fulfillment", h.Admin.UpdateFulfillment)

	r.Register(system).
		Register(callbacks).
		Register(payments).
		Register(admin)
	r.Setup()
}
