package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func (s *testServer) patchJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, nil)
}

func TestAdminHandler_CheckStatus(t *testing.T) {
	s := newTestServer(t, true)
	s.seedInitiated(t, "ORD-1", 1000)
	s.gateway.On("CheckStatus", mock.Anything, "ORD-1").Return(&payment.StatusResponse{
		Code:                payment.CodePaymentSuccess,
		State:               "COMPLETED",
		TransactionID:       "ORD-1",
		ProviderReferenceID: "T-1",
		AmountMinor:         100000,
		Raw:                 []byte(`{}`),
	}, nil).Once()

	w := s.postJSON(t, "/api/v1/admin/payments/orders/ORD-1/check-status", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out StatusCheckResponse
	decodeResponse(t, w, &out)
	assert.Equal(t, "applied", out.Disposition)
	assert.Equal(t, "COMPLETED", out.GatewayState)
	assert.Equal(t, "completed", out.PaymentStatus)

	t.Run("unknown order", func(t *testing.T) {
		w := s.postJSON(t, "/api/v1/admin/payments/orders/NOPE/check-status", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminHandler_CreateRefund(t *testing.T) {
	s := newTestServer(t, true)
	attempt := s.seedCompleted(t, "ORD-1", 1000)
	path := "/api/v1/admin/payments/orders/ORD-1/refunds"

	w := s.postJSON(t, path, map[string]any{
		"attemptId": attempt.ID.String(),
		"amount":    "400",
		"reason":    "damaged item",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out RefundResponse
	decodeResponse(t, w, &out)
	assert.Equal(t, "400.00", out.Amount)
	assert.Equal(t, "requested", out.Status)
	assert.Equal(t, payment.PaymentStatusRefundInitiated, s.order(t, "ORD-1").PaymentStatus)

	t.Run("over-refund is rejected", func(t *testing.T) {
		w := s.postJSON(t, path, map[string]any{"attemptId": attempt.ID.String(), "amount": "601"}, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeRefundExceedsPayment, decodeResponse(t, w, nil).Error.Code)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		w := s.postJSON(t, path, map[string]any{"attemptId": uuid.NewString(), "amount": "1"}, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeAttemptNotFound, decodeResponse(t, w, nil).Error.Code)
	})

	t.Run("attempt id must be a uuid", func(t *testing.T) {
		w := s.postJSON(t, path, map[string]any{"attemptId": "abc", "amount": "1"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w, nil).Error.Code)
	})
}

func TestAdminHandler_ClosePayment(t *testing.T) {
	s := newTestServer(t, true)
	s.seedInitiated(t, "ORD-1", 1000)

	t.Run("only a failed payment can be closed", func(t *testing.T) {
		w := s.postJSON(t, "/api/v1/admin/payments/orders/ORD-1/close", nil, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeIllegalTransition, decodeResponse(t, w, nil).Error.Code)
	})

	require.Equal(t, http.StatusOK, s.webhook(t, map[string]any{
		"code":          payment.CodePaymentDeclined,
		"transactionId": "ORD-1",
	}).Code)

	w := s.postJSON(t, "/api/v1/admin/payments/orders/ORD-1/close", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out OrderStatusResponse
	decodeResponse(t, w, &out)
	assert.True(t, out.PaymentClosed)

	t.Run("late success after close is an anomaly", func(t *testing.T) {
		w := s.webhook(t, map[string]any{
			"code":                payment.CodePaymentSuccess,
			"transactionId":       "ORD-1",
			"providerReferenceId": "T-late",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anomaly", decodeAck(t, w.Body.Bytes()).Disposition)
		assert.Equal(t, payment.PaymentStatusFailed, s.order(t, "ORD-1").PaymentStatus)
	})
}

func TestAdminHandler_UpdateFulfillment(t *testing.T) {
	s := newTestServer(t, true)
	s.seedCompleted(t, "ORD-1", 1000)
	path := "/api/v1/admin/orders/ORD-1/fulfillment"

	w := s.patchJSON(t, path, map[string]string{"status": "processing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, payment.FulfillmentStatusProcessing, s.order(t, "ORD-1").FulfillmentStatus)

	t.Run("skipping a step is illegal", func(t *testing.T) {
		w := s.patchJSON(t, path, map[string]string{"status": "delivered"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeIllegalTransition, decodeResponse(t, w, nil).Error.Code)
		assert.Equal(t, payment.FulfillmentStatusProcessing, s.order(t, "ORD-1").FulfillmentStatus)
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		w := s.patchJSON(t, path, map[string]string{"status": "teleported"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminHandler_Analytics(t *testing.T) {
	s := newTestServer(t, true)
	s.seedCompleted(t, "ORD-1", 1000)
	today := time.Now().UTC().Format(dateLayout)
	from := time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	to := time.Now().UTC().AddDate(0, 0, 1).Format(dateLayout)

	w := s.get("/api/v1/admin/payments/analytics?from="+from+"&to="+to, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats payment.PaymentStats
	decodeResponse(t, w, &stats)
	assert.Equal(t, int64(1), stats.Completed)
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(1000)), stats.Revenue.String())

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"missing from", "?to=" + today, dto.ErrCodeValidation},
		{"garbage to", "?from=" + today + "&to=soon", dto.ErrCodeValidation},
		{"inverted range", "?from=2026-02-01&to=2026-01-01", dto.ErrCodeInvalidDateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.get("/api/v1/admin/payments/analytics"+tt.query, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeResponse(t, w, nil).Error.Code)
		})
	}
}

func TestAdminHandler_Sweep(t *testing.T) {
	s := newTestServer(t, true)

	w := s.postJSON(t, "/api/v1/admin/payments/sweep", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report struct {
		Scanned int `json:"scanned"`
	}
	decodeResponse(t, w, &report)
	assert.Equal(t, 0, report.Scanned)
}

func TestParseDateParam(t *testing.T) {
	d, dateOnly, err := parseDateParam("2026-03-01")
	require.NoError(t, err)
	assert.True(t, dateOnly)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	ts, dateOnly, err := parseDateParam("2026-03-01T10:00:00+05:30")
	require.NoError(t, err)
	assert.False(t, dateOnly)
	assert.Equal(t, 4, ts.UTC().Hour())

	_, _, err = parseDateParam("")
	assert.Error(t, err)
}
