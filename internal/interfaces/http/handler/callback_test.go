package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/payment"
)

func decodeAck(t *testing.T, body []byte) AckResponse {
	t.Helper()
	var ack AckResponse
	require.NoError(t, json.Unmarshal(body, &ack))
	return ack
}

func successForm(orderID string) string {
	return url.Values{
		"code":                {payment.CodePaymentSuccess},
		"merchantId":          {testMerchantID},
		"transactionId":       {orderID},
		"providerReferenceId": {"T-" + orderID},
		"amount":              {"100000"},
	}.Encode()
}

func TestCallbackHandler_Webhook(t *testing.T) {
	t.Run("signed success completes the order", func(t *testing.T) {
		s := newTestServer(t, true)
		s.seedInitiated(t, "ORD-1", 1000)

		w := s.webhook(t, map[string]any{
			"code":                payment.CodePaymentSuccess,
			"merchantId":          testMerchantID,
			"transactionId":       "ORD-1",
			"providerReferenceId": "T-1",
			"amount":              100000,
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "applied", decodeAck(t, w.Body.Bytes()).Disposition)
		order := s.order(t, "ORD-1")
		assert.Equal(t, payment.PaymentStatusCompleted, order.PaymentStatus)
		assert.Equal(t, payment.FulfillmentStatusConfirmed, order.FulfillmentStatus)
	})

	t.Run("duplicate delivery is acknowledged without a second attempt", func(t *testing.T) {
		s := newTestServer(t, true)
		s.seedInitiated(t, "ORD-1", 1000)
		body := map[string]any{
			"code":                payment.CodePaymentSuccess,
			"transactionId":       "ORD-1",
			"providerReferenceId": "T-1",
		}

		require.Equal(t, http.StatusOK, s.webhook(t, body).Code)
		before := len(s.attempts(t, "ORD-1"))
		w := s.webhook(t, body)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "duplicate", decodeAck(t, w.Body.Bytes()).Disposition)
		assert.Len(t, s.attempts(t, "ORD-1"), before)
	})

	t.Run("envelope body is decoded", func(t *testing.T) {
		s := newTestServer(t, true)
		s.seedInitiated(t, "ORD-1", 1000)
		inner := `{"success":false,"code":"PAYMENT_ERROR","message":"Payment failed","data":{"merchantId":"MERCHANTUAT","merchantTransactionId":"ORD-1","transactionId":"T-9","amount":100000,"state":"FAILED"}}`

		w := s.webhook(t, map[string]string{"response": base64.StdEncoding.EncodeToString([]byte(inner))})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "applied", decodeAck(t, w.Body.Bytes()).Disposition)
		order := s.order(t, "ORD-1")
		assert.Equal(t, payment.PaymentStatusFailed, order.PaymentStatus)
		assert.Equal(t, "T-9", order.GatewayTransactionID)
	})

	t.Run("bad signature is acked and changes nothing", func(t *testing.T) {
		s := newTestServer(t, true)
		s.seedInitiated(t, "ORD-1", 1000)

		w := s.postRaw("/callback",
			[]byte(`{"code":"PAYMENT_SUCCESS","transactionId":"ORD-1"}`),
			map[string]string{VerifyHeader: "deadbeef###1"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "unverified", decodeAck(t, w.Body.Bytes()).Disposition)
		assert.Equal(t, payment.PaymentStatusInitiated, s.order(t, "ORD-1").PaymentStatus)
	})

	t.Run("unsigned webhook is trusted when verification is off", func(t *testing.T) {
		s := newTestServer(t, false)
		s.seedInitiated(t, "ORD-1", 1000)

		w := s.postRaw("/callback", []byte(`{"code":"PAYMENT_DECLINED","transactionId":"ORD-1"}`), nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, payment.PaymentStatusFailed, s.order(t, "ORD-1").PaymentStatus)
	})

	t.Run("foreign merchant is rejected", func(t *testing.T) {
		s := newTestServer(t, true)
		s.seedInitiated(t, "ORD-1", 1000)

		w := s.webhook(t, map[string]any{
			"code":          payment.CodePaymentSuccess,
			"merchantId":    "OTHER",
			"transactionId": "ORD-1",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "unverified", decodeAck(t, w.Body.Bytes()).Disposition)
		assert.Equal(t, payment.PaymentStatusInitiated, s.order(t, "ORD-1").PaymentStatus)
	})

	tests := []struct {
		name        string
		body        string
		disposition string
	}{
		{"not json", `code=PAYMENT_SUCCESS`, "malformed"},
		{"missing code", `{"transactionId":"ORD-1"}`, "malformed"},
		{"unknown order", `{"code":"PAYMENT_SUCCESS","transactionId":"ORD-404"}`, "unknown_order"},
		{"unmapped code", `{"code":"SOMETHING_NEW","transactionId":"ORD-1"}`, "unmapped"},
		{"bad envelope", `{"response":"%%%"}`, "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true)
			s.seedInitiated(t, "ORD-1", 1000)
			raw := []byte(tt.body)

			w := s.postRaw("/callback", raw, map[string]string{VerifyHeader: s.signWebhook(raw)})

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.disposition, decodeAck(t, w.Body.Bytes()).Disposition)
			assert.Equal(t, payment.PaymentStatusInitiated, s.order(t, "ORD-1").PaymentStatus)
		})
	}
}

func TestCallbackHandler_Redirect(t *testing.T) {
	t.Run("verification on asks the gateway instead of trusting the form", func(t *testing.T) {
		s := newTestServer(t, true)
		s.seedInitiated(t, "ORD-1", 1000)
		// the form claims success, the gateway says declined
		s.gateway.On("CheckStatus", mock.Anything, "ORD-1").Return(&payment.StatusResponse{
			Code:                payment.CodePaymentDeclined,
			State:               "FAILED",
			TransactionID:       "ORD-1",
			ProviderReferenceID: "T-1",
			Raw:                 []byte(`{}`),
		}, nil).Once()

		w := s.postForm("/redirect", successForm("ORD-1"))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, testFrontend+"/payment/status/ORD-1?status=failed", w.Header().Get("Location"))
		assert.Equal(t, payment.PaymentStatusFailed, s.order(t, "ORD-1").PaymentStatus)
		s.gateway.AssertExpectations(t)
	})

	t.Run("gateway outage still sends the browser on with the stored status", func(t *testing.T) {
		s := newTestServer(t, true)
		s.seedInitiated(t, "ORD-1", 1000)
		s.gateway.On("CheckStatus", mock.Anything, "ORD-1").
			Return(nil, &payment.GatewayError{Kind: payment.ErrGatewayUnavailable}).Once()

		w := s.postForm("/redirect", successForm("ORD-1"))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, testFrontend+"/payment/status/ORD-1?status=initiated", w.Header().Get("Location"))
	})

	t.Run("verification off reconciles the posted code", func(t *testing.T) {
		s := newTestServer(t, false)
		s.seedInitiated(t, "ORD-1", 1000)

		w := s.postForm("/redirect", successForm("ORD-1"))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, testFrontend+"/payment/status/ORD-1?status=completed", w.Header().Get("Location"))
		s.gateway.AssertNotCalled(t, "CheckStatus", mock.Anything, mock.Anything)
	})

	t.Run("json body is accepted", func(t *testing.T) {
		s := newTestServer(t, false)
		s.seedInitiated(t, "ORD-1", 1000)

		w := s.postJSON(t, "/redirect", map[string]any{
			"code":          payment.CodePaymentPending,
			"transactionId": "ORD-1",
		}, nil)

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, testFrontend+"/payment/status/ORD-1?status=initiated", w.Header().Get("Location"))
	})

	t.Run("unknown order", func(t *testing.T) {
		s := newTestServer(t, false)

		w := s.postForm("/redirect", successForm("ORD-404"))

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, testFrontend+"/payment/status/ORD-404?status=unknown", w.Header().Get("Location"))
	})

	t.Run("missing transaction id", func(t *testing.T) {
		s := newTestServer(t, false)

		w := s.postForm("/redirect", "code=PAYMENT_SUCCESS")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// A redirect and a webhook for the same result must leave one completed attempt
func TestCallbackHandler_RedirectAndWebhookAgree(t *testing.T) {
	s := newTestServer(t, false)
	s.seedInitiated(t, "ORD-1", 1000)

	w := s.postForm("/redirect", successForm("ORD-1"))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = s.postRaw("/callback", []byte(`{"code":"PAYMENT_SUCCESS","merchantId":"MERCHANTUAT","transactionId":"ORD-1","providerReferenceId":"T-ORD-1","amount":100000}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", decodeAck(t, w.Body.Bytes()).Disposition)

	completed := 0
	for _, a := range s.attempts(t, "ORD-1") {
		if a.Status == payment.AttemptStatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}
