package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func payResponse() *payment.PayResponse {
	return &payment.PayResponse{
		RedirectURL: "https://mercury.example/transact/abc",
		Code:        "PAYMENT_INITIATED",
		Raw:         []byte(`{"success":true}`),
	}
}

func TestInitiator_Initiate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORD-1", 1000)

	f.gateway.On("Pay", mock.Anything, payment.PayRequest{
		MerchantTransactionID: "ORD-1",
		MerchantUserID:        "cust-1",
		AmountMinor:           100000,
		MobileNumber:          "9876543210",
	}).Return(payResponse(), nil).Once()

	result, err := f.initiator().Initiate(ctx, InitiateRequest{
		OrderID: "ORD-1",
		Amount:  decimal.NewFromInt(1000),
		UserID:  "cust-1",
	})
	require.NoError(t, err)
	f.gateway.AssertExpectations(t)

	assert.Equal(t, "ORD-1", result.OrderID)
	assert.Equal(t, "https://mercury.example/transact/abc", result.RedirectURL)
	assert.Equal(t, payment.PaymentStatusInitiated, result.PaymentStatus)

	order := f.order(t, "ORD-1")
	assert.Equal(t, payment.PaymentStatusInitiated, order.PaymentStatus)
	assert.NotNil(t, order.PaymentInitiatedAt)
	assert.Equal(t, 2, order.Version)

	attempts := f.attempts(t, "ORD-1")
	require.Len(t, attempts, 1)
	assert.Equal(t, result.AttemptID, attempts[0].ID)
	assert.Equal(t, payment.AttemptStatusInitiated, attempts[0].Status)
	assert.Empty(t, attempts[0].GatewayTransactionID)
	assert.True(t, decimal.NewFromInt(1000).Equal(attempts[0].Amount))

	assert.Equal(t, []string{initiationOK}, f.metrics.initiation)
	assert.Equal(t, []string{"pay/ok"}, f.metrics.gatewayCalls)
}

// Initiate, then the gateway confirms: one attempt carries the provider reference
func TestInitiator_ThenSuccessCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORD-A", 1000)
	f.gateway.On("Pay", mock.Anything, mock.Anything).Return(payResponse(), nil)

	_, err := f.initiator().Initiate(ctx, InitiateRequest{OrderID: "ORD-A", Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	result, err := f.reconciler().Reconcile(ctx, callback("ORD-A", "PAYMENT_SUCCESS", "T123"))
	require.NoError(t, err)
	assert.Equal(t, DispositionApplied, result.Disposition)

	order := f.order(t, "ORD-A")
	assert.Equal(t, payment.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, payment.FulfillmentStatusConfirmed, order.FulfillmentStatus)

	attempts := f.attempts(t, "ORD-A")
	require.Len(t, attempts, 1)
	assert.Equal(t, payment.AttemptStatusCompleted, attempts[0].Status)
	assert.Equal(t, "T123", attempts[0].GatewayTransactionID)
}

func TestInitiator_AmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-C", 1000)

	_, err := f.initiator().Initiate(context.Background(), InitiateRequest{
		OrderID: "ORD-C",
		Amount:  decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, payment.ErrAmountMismatch)

	f.gateway.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything)
	order := f.order(t, "ORD-C")
	assert.Equal(t, payment.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 1, order.Version)
	assert.Empty(t, f.attempts(t, "ORD-C"))
	assert.Equal(t, []string{initiationRejected}, f.metrics.initiation)
}

func TestInitiator_AmountComparisonIgnoresScale(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ORD-1", 1000)
	f.gateway.On("Pay", mock.Anything, mock.Anything).Return(payResponse(), nil)

	_, err := f.initiator().Initiate(context.Background(), InitiateRequest{
		OrderID: "ORD-1",
		Amount:  decimal.RequireFromString("1000.00"),
	})
	assert.NoError(t, err)
}

func TestInitiator_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORD-pending", 1000)
	f.seedInitiated(t, "ORD-initiated", 1000)

	paid := f.seedInitiated(t, "ORD-paid", 1000)
	_, err := f.reconciler().Reconcile(ctx, callback(paid.ID, "PAYMENT_SUCCESS", "T1"))
	require.NoError(t, err)

	closed := f.seedInitiated(t, "ORD-closed", 1000)
	_, err = f.reconciler().Reconcile(ctx, callback(closed.ID, "PAYMENT_ERROR", ""))
	require.NoError(t, err)
	admin := NewAdminService(f.repos.Attempts, f.uow, nil, nil)
	_, err = admin.ClosePayment(ctx, closed.ID)
	require.NoError(t, err)

	f.seedOrder(t, "ORD-cancelled", 1000)
	_, err = admin.AdvanceFulfillment(ctx, "ORD-cancelled", payment.FulfillmentStatusCancelled)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     InitiateRequest
		wantErr error
	}{
		{
			name:    "missing order id",
			req:     InitiateRequest{Amount: decimal.NewFromInt(1000)},
			wantErr: ErrValidation,
		},
		{
			name:    "zero amount",
			req:     InitiateRequest{OrderID: "ORD-pending", Amount: decimal.Zero},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown order",
			req:     InitiateRequest{OrderID: "ORD-missing", Amount: decimal.NewFromInt(1000)},
			wantErr: payment.ErrOrderNotFound,
		},
		{
			name:    "another customer's order",
			req:     InitiateRequest{OrderID: "ORD-pending", Amount: decimal.NewFromInt(1000), UserID: "cust-2"},
			wantErr: payment.ErrOrderNotFound,
		},
		{
			name:    "already paid",
			req:     InitiateRequest{OrderID: "ORD-paid", Amount: decimal.NewFromInt(1000)},
			wantErr: payment.ErrAlreadyPaid,
		},
		{
			name:    "session already open",
			req:     InitiateRequest{OrderID: "ORD-initiated", Amount: decimal.NewFromInt(1000)},
			wantErr: payment.ErrPaymentInProgress,
		},
		{
			name:    "payment closed",
			req:     InitiateRequest{OrderID: "ORD-closed", Amount: decimal.NewFromInt(1000)},
			wantErr: ErrPaymentClosed,
		},
		{
			name:    "order cancelled",
			req:     InitiateRequest{OrderID: "ORD-cancelled", Amount: decimal.NewFromInt(1000)},
			wantErr: payment.ErrOrderCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.initiator().Initiate(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	f.gateway.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything)
}

func TestInitiator_GatewayFailures(t *testing.T) {
	tests := []struct {
		name     string
		gwErr    *payment.GatewayError
		wantKind error
	}{
		{
			name:     "timeout",
			gwErr:    &payment.GatewayError{Kind: payment.ErrGatewayUnavailable, Message: "context deadline exceeded"},
			wantKind: payment.ErrGatewayUnavailable,
		},
		{
			name:     "server error",
			gwErr:    &payment.GatewayError{Kind: payment.ErrGatewayError, StatusCode: 500, Code: "INTERNAL_SERVER_ERROR"},
			wantKind: payment.ErrGatewayError,
		},
		{
			name:     "rejected",
			gwErr:    &payment.GatewayError{Kind: payment.ErrGatewayRejected, StatusCode: 400, Code: "BAD_REQUEST", Message: "Invalid mobile number"},
			wantKind: payment.ErrGatewayRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedOrder(t, "ORD-1", 1000)
			f.gateway.On("Pay", mock.Anything, mock.Anything).Return(nil, tt.gwErr)

			_, err := f.initiator().Initiate(context.Background(), InitiateRequest{OrderID: "ORD-1", Amount: decimal.NewFromInt(1000)})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.gwErr, err)

			order := f.order(t, "ORD-1")
			assert.Equal(t, payment.PaymentStatusPending, order.PaymentStatus)
			assert.Equal(t, 1, order.Version)

			attempts := f.attempts(t, "ORD-1")
			require.Len(t, attempts, 1)
			assert.Equal(t, payment.AttemptStatusFailed, attempts[0].Status)

			var raw map[string]any
			require.NoError(t, json.Unmarshal(attempts[0].RawResponse, &raw))
			assert.Equal(t, tt.gwErr.Code, raw["code"])

			assert.Equal(t, []string{initiationGatewayFailure}, f.metrics.initiation)
			assert.Equal(t, []string{"pay/error"}, f.metrics.gatewayCalls)
		})
	}
}

func TestInitiator_RetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInitiated(t, "ORD-1", 1000)
	_, err := f.reconciler().Reconcile(ctx, callback("ORD-1", "PAYMENT_DECLINED", ""))
	require.NoError(t, err)
	require.Equal(t, payment.FulfillmentStatusFailed, f.order(t, "ORD-1").FulfillmentStatus)

	f.gateway.On("Pay", mock.Anything, mock.Anything).Return(payResponse(), nil)
	result, err := f.initiator().Initiate(ctx, InitiateRequest{OrderID: "ORD-1", Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusInitiated, result.PaymentStatus)

	order := f.order(t, "ORD-1")
	assert.Equal(t, payment.PaymentStatusInitiated, order.PaymentStatus)
	assert.Equal(t, payment.FulfillmentStatusPending, order.FulfillmentStatus)
	assert.Len(t, f.attempts(t, "ORD-1"), 2)
}

// The order is cancelled while the gateway call is in flight; the session is not recorded
func TestInitiator_CancelledDuringGatewayCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, "ORD-1", 1000)

	f.gateway.On("Pay", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		order := f.order(t, "ORD-1")
		require.NoError(t, order.Apply(payment.EventOrderCancelled))
		require.NoError(t, f.repos.Orders.CompareAndSwap(ctx, order, payment.PaymentStatusPending, order.Version))
	}).Return(payResponse(), nil).Once()

	_, err := f.initiator().Initiate(ctx, InitiateRequest{OrderID: "ORD-1", Amount: decimal.NewFromInt(1000)})
	assert.ErrorIs(t, err, payment.ErrOrderCancelled)

	order := f.order(t, "ORD-1")
	assert.Equal(t, payment.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, payment.FulfillmentStatusCancelled, order.FulfillmentStatus)
	assert.Empty(t, f.attempts(t, "ORD-1"))
}

func TestInitiator_RecordSessionRetriesLostCompareAndSwap(t *testing.T) {
	t.Run("succeeds after a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.seedOrder(t, "ORD-1", 1000)
		f.gateway.On("Pay", mock.Anything, mock.Anything).Return(payResponse(), nil).Once()
		uow := &conflictingUnitOfWork{inner: f.uow, conflicts: 1}

		result, err := NewInitiator(f.repos.Orders, uow, f.gateway).Initiate(context.Background(), InitiateRequest{
			OrderID: "ORD-1",
			Amount:  decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
		assert.Equal(t, payment.PaymentStatusInitiated, result.PaymentStatus)
		assert.Len(t, f.attempts(t, "ORD-1"), 1)
		f.gateway.AssertNumberOfCalls(t, "Pay", 1)
	})

	t.Run("reports in progress when every swap is lost", func(t *testing.T) {
		f := newFixture(t)
		f.seedOrder(t, "ORD-1", 1000)
		f.gateway.On("Pay", mock.Anything, mock.Anything).Return(payResponse(), nil)
		uow := &conflictingUnitOfWork{inner: f.uow, conflicts: 10}

		_, err := NewInitiator(f.repos.Orders, uow, f.gateway).Initiate(context.Background(), InitiateRequest{
			OrderID: "ORD-1",
			Amount:  decimal.NewFromInt(1000),
		})
		assert.ErrorIs(t, err, payment.ErrPaymentInProgress)
		assert.Equal(t, payment.PaymentStatusPending, f.order(t, "ORD-1").PaymentStatus)
		assert.Empty(t, f.attempts(t, "ORD-1"))
	})
}

func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "9876543210", want: "9876543210"},
		{in: "+91 98765 43210", want: "9876543210"},
		{in: "(987) 654-3210", want: "9876543210"},
		{in: "12345", want: "9999999999"},
		{in: "", want: "9999999999"},
		{in: "٩٨٧٦٥٤٣٢١٠", want: "9999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMobile(tt.in))
		})
	}
}
