package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/gateway"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testMerchantID = "MERCHANTUAT"
	testSaltKey    = "099eb0cd-02cf-4e2a-8aca-3e6c6aff0399"
	testSaltIndex  = 1
	testFrontend   = "https://shop.example.com"
	testCustomer   = "cust-1"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockGateway implements payment.Gateway for testing
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Pay(ctx context.Context, req payment.PayRequest) (*payment.PayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PayResponse), args.Error(1)
}

func (m *MockGateway) CheckStatus(ctx context.Context, transactionID string) (*payment.StatusResponse, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.StatusResponse), args.Error(1)
}

type testServer struct {
	engine  *gin.Engine
	repos   payment.Repositories
	gateway *MockGateway
	signer  *gateway.Signer
}

// newTestServer wires real services over an in-memory SQLite database.
// The X-Test-User header stands in for an authenticated customer.
func newTestServer(t *testing.T, verify bool) *testServer {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := &persistence.Database{DB: gormDB}
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	repos := persistence.NewRepositories(gormDB)
	uow := persistence.NewGormUnitOfWork(db)
	gw := new(MockGateway)

	adapter, err := gateway.NewPhonePeAdapter(&gateway.PhonePeConfig{
		MerchantID:  testMerchantID,
		SaltKey:     testSaltKey,
		SaltIndex:   testSaltIndex,
		BaseURL:     "https://api-preprod.phonepe.com/apis/pg-sandbox",
		RedirectURL: "https://api.example.com/redirect",
		CallbackURL: "https://api.example.com/callback",
	}, nil)
	require.NoError(t, err)

	reconciler := paymentapp.NewReconciler(uow)
	poller := paymentapp.NewStatusPoller(repos.Orders, gw, reconciler)
	sweeper := paymentapp.NewSweeper(repos.Orders, poller, 30*time.Minute, 10)
	orders := paymentapp.NewOrderService(repos.Orders, repos.Attempts)

	payments := NewPaymentHandler(paymentapp.NewInitiator(repos.Orders, uow, gw), orders)
	callbacks := NewCallbackHandler(reconciler, poller, orders, adapter, CallbackConfig{
		FrontendBaseURL: testFrontend + "/",
		MerchantID:      testMerchantID,
		VerifyCallbacks: verify,
	})
	admin := NewAdminHandler(paymentapp.NewAdminService(repos.Attempts, uow, poller, sweeper))
	health := NewHealthHandler(db)

	engine := gin.New()
	engine.Use(logger.GinMiddleware(zap.NewNop()))
	engine.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set(middleware.JWTUserIDKey, user)
		}
		c.Next()
	})

	engine.GET("/health", health.Health)
	engine.POST("/redirect", callbacks.Redirect)
	engine.POST("/callback", callbacks.Webhook)
	engine.POST("/api/v1/payments/initiate", payments.Initiate)
	engine.GET("/api/v1/payments/orders/:id", payments.GetOrder)
	engine.GET("/api/v1/payments/orders/:id/attempts", payments.ListAttempts)
	engine.POST("/api/v1/admin/payments/orders/:id/check-status", admin.CheckStatus)
	engine.POST("/api/v1/admin/payments/orders/:id/refunds", admin.CreateRefund)
	engine.POST("/api/v1/admin/payments/orders/:id/close", admin.ClosePayment)
	engine.PATCH("/api/v1/admin/orders/:id/fulfillment", admin.UpdateFulfillment)
	engine.GET("/api/v1/admin/payments/analytics", admin.Analytics)
	engine.POST("/api/v1/admin/payments/sweep", admin.Sweep)

	return &testServer{
		engine:  engine,
		repos:   repos,
		gateway: gw,
		signer:  adapter.Signer(),
	}
}

// seedOrder stores a pending order for testCustomer
func (s *testServer) seedOrder(t *testing.T, id string, amount int64) *payment.Order {
	t.Helper()
	order, err := payment.NewOrder(id, testCustomer, "9876543210", decimal.NewFromInt(amount), nil)
	require.NoError(t, err)
	require.NoError(t, s.repos.Orders.Create(context.Background(), order))
	return order
}

// seedInitiated stores an order with an open gateway session
func (s *testServer) seedInitiated(t *testing.T, id string, amount int64) *payment.Order {
	t.Helper()
	ctx := context.Background()
	order := s.seedOrder(t, id, amount)
	require.NoError(t, order.Apply(payment.EventPaymentInitiated))
	require.NoError(t, s.repos.Orders.CompareAndSwap(ctx, order, payment.PaymentStatusPending, 1))
	require.NoError(t, s.repos.Attempts.Create(ctx,
		payment.NewPaymentAttempt(order, payment.AttemptStatusInitiated, payment.SourceInitiate, []byte(`{}`))))
	return order
}

// seedCompleted stores a paid order and returns its completed attempt
func (s *testServer) seedCompleted(t *testing.T, id string, amount int64) payment.PaymentAttempt {
	t.Helper()
	s.seedInitiated(t, id, amount)
	w := s.webhook(t, map[string]any{
		"code":                payment.CodePaymentSuccess,
		"merchantId":          testMerchantID,
		"transactionId":       id,
		"providerReferenceId": "T-" + id,
		"amount":              amount * 100,
	})
	require.Equal(t, http.StatusOK, w.Code)

	for _, a := range s.attempts(t, id) {
		if a.Status == payment.AttemptStatusCompleted {
			return a
		}
	}
	t.Fatalf("order %s has no completed attempt", id)
	return payment.PaymentAttempt{}
}

func (s *testServer) order(t *testing.T, id string) *payment.Order {
	t.Helper()
	order, err := s.repos.Orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func (s *testServer) attempts(t *testing.T, orderID string) []payment.PaymentAttempt {
	t.Helper()
	attempts, err := s.repos.Attempts.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	return attempts
}

func (s *testServer) do(req *http.Request, headers map[string]string) *httptest.ResponseRecorder {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(t *testing.T, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return s.postRaw(path, raw, headers)
}

// webhook posts body to /callback with a valid X-VERIFY header
func (s *testServer) webhook(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return s.postRaw("/callback", raw, map[string]string{VerifyHeader: s.signWebhook(raw)})
}

// signWebhook signs raw the way the gateway does: the response field of an
// envelope, or the whole body when it is flat
func (s *testServer) signWebhook(raw []byte) string {
	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Response != "" {
		return s.signer.Sign([]byte(envelope.Response), "")
	}
	return s.signer.Sign(raw, "")
}

func (s *testServer) postRaw(path string, raw []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, headers)
}

func (s *testServer) postForm(path, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, nil)
}

func (s *testServer) get(path string, headers map[string]string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), headers)
}

// decodeResponse unmarshals a dto.Response and re-decodes its data into out
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil && resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}
