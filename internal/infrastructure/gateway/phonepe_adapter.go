package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/payment"
)

// maxResponseBytes caps how much of a gateway response is read
const maxResponseBytes = 1 << 20

// PhonePeAdapter implements payment.Gateway for the PhonePe PG API
type PhonePeAdapter struct {
	config     *PhonePeConfig
	signer     *Signer
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPhonePeAdapter creates a new PhonePe adapter
func NewPhonePeAdapter(config *PhonePeConfig, logger *zap.Logger) (*PhonePeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PhonePeAdapter{
		config: config,
		signer: NewSigner(config.SaltKey, config.SaltIndex),
		httpClient: &http.Client{
			Timeout: config.EffectiveTimeout(),
		},
		logger: logger,
	}, nil
}

// Signer returns the adapter's signer
func (a *PhonePeAdapter) Signer() *Signer {
	return a.signer
}

// Pay opens a hosted pay-page session and returns its redirect URL
func (a *PhonePeAdapter) Pay(ctx context.Context, req payment.PayRequest) (*payment.PayResponse, error) {
	payload := phonePePayPayload{
		MerchantID:            a.config.MerchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        req.MerchantUserID,
		Amount:                req.AmountMinor,
		RedirectURL:           a.config.RedirectURL,
		RedirectMode:          redirectModePOST,
		CallbackURL:           a.config.CallbackURL,
		MobileNumber:          req.MobileNumber,
		PaymentInstrument:     phonePePaymentInstrument{Type: instrumentPayPage},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("phonepe: failed to marshal request: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(payloadBytes)
	body, err := json.Marshal(phonePeEnvelope{Request: encoded})
	if err != nil {
		return nil, fmt.Errorf("phonepe: failed to marshal envelope: %w", err)
	}

	headers := map[string]string{
		"X-VERIFY": a.signer.Sign([]byte(encoded), phonePePayPath),
	}
	respBody, err := a.doRequest(ctx, http.MethodPost, phonePePayPath, body, headers)
	if err != nil {
		return nil, err
	}

	var resp phonePeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &payment.GatewayError{Kind: payment.ErrGatewayError, StatusCode: http.StatusOK, Message: "unparseable pay response"}
	}
	var data phonePePayData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, &payment.GatewayError{Kind: payment.ErrGatewayError, StatusCode: http.StatusOK, Code: resp.Code, Message: "unparseable pay response data"}
		}
	}
	redirectURL := data.InstrumentResponse.RedirectInfo.URL
	if !resp.Success || redirectURL == "" {
		return nil, &payment.GatewayError{Kind: payment.ErrGatewayError, StatusCode: http.StatusOK, Code: resp.Code, Message: resp.Message}
	}

	a.logger.Debug("PhonePe session created",
		zap.String("merchant_transaction_id", req.MerchantTransactionID),
		zap.String("code", resp.Code),
	)

	return &payment.PayResponse{
		RedirectURL: redirectURL,
		Code:        resp.Code,
		Message:     resp.Message,
		Raw:         respBody,
	}, nil
}

// CheckStatus asks the gateway for the authoritative state of a transaction
func (a *PhonePeAdapter) CheckStatus(ctx context.Context, transactionID string) (*payment.StatusResponse, error) {
	path := fmt.Sprintf(phonePeStatusPath, url.PathEscape(a.config.MerchantID), url.PathEscape(transactionID))
	headers := map[string]string{
		"X-VERIFY":      a.signer.SignPath(path),
		"X-MERCHANT-ID": a.config.MerchantID,
	}

	respBody, err := a.doRequest(ctx, http.MethodGet, path, nil, headers)
	if err != nil {
		return nil, err
	}

	status, err := decodeStatusResponse(respBody)
	if err != nil {
		return nil, &payment.GatewayError{Kind: payment.ErrGatewayError, StatusCode: http.StatusOK, Message: err.Error()}
	}
	if status.TransactionID == "" {
		status.TransactionID = transactionID
	}
	return status, nil
}

// VerifyNotification checks a webhook's X-VERIFY header. The gateway signs the
// base64 response field of an envelope; flat bodies are checked as sent.
func (a *PhonePeAdapter) VerifyNotification(body []byte, signature string) bool {
	return a.signer.Verify(signature, notificationSignedPayload(body), "")
}

func notificationSignedPayload(body []byte) []byte {
	var envelope phonePeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Response == "" {
		return body
	}
	return []byte(envelope.Response)
}

// DecodeNotification decodes a {"response": base64(status response)} webhook body
func (a *PhonePeAdapter) DecodeNotification(body []byte) (*payment.StatusResponse, error) {
	var envelope phonePeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("phonepe: invalid notification envelope: %w", err)
	}
	if envelope.Response == "" {
		return nil, errors.New("phonepe: notification envelope has no response")
	}
	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return nil, fmt.Errorf("phonepe: invalid notification encoding: %w", err)
	}
	return decodeStatusResponse(decoded)
}

func decodeStatusResponse(body []byte) (*payment.StatusResponse, error) {
	var resp phonePeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("phonepe: failed to parse status response: %w", err)
	}
	if resp.Code == "" {
		return nil, errors.New("phonepe: status response has no code")
	}

	status := &payment.StatusResponse{
		Code:    resp.Code,
		Message: resp.Message,
		Raw:     body,
	}
	if len(resp.Data) > 0 {
		var data phonePeStatusData
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, fmt.Errorf("phonepe: failed to parse status data: %w", err)
		}
		status.State = data.State
		status.MerchantID = data.MerchantID
		status.TransactionID = data.MerchantTransactionID
		status.ProviderReferenceID = data.TransactionID
		status.AmountMinor = data.Amount
	}
	return status, nil
}

// doRequest performs an HTTP request to the gateway and classifies failures
func (a *PhonePeAdapter) doRequest(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("phonepe: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("PhonePe request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &payment.GatewayError{Kind: payment.ErrGatewayUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &payment.GatewayError{Kind: payment.ErrGatewayUnavailable, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		gwErr := &payment.GatewayError{StatusCode: resp.StatusCode}
		var errResp phonePeResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			gwErr.Code = errResp.Code
			gwErr.Message = errResp.Message
		}
		if gwErr.Message == "" {
			gwErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode >= 500 {
			gwErr.Kind = payment.ErrGatewayError
		} else {
			gwErr.Kind = payment.ErrGatewayRejected
		}
		return nil, gwErr
	}

	return respBody, nil
}

// Ensure PhonePeAdapter implements the gateway ports
var (
	_ payment.Gateway             = (*PhonePeAdapter)(nil)
	_ payment.NotificationDecoder = (*PhonePeAdapter)(nil)
)
