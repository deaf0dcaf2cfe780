package payment

import "context"

// PayRequest is the data needed to open a hosted pay-page session
type PayRequest struct {
	// MerchantTransactionID is the order ID
	MerchantTransactionID string
	// MerchantUserID is the customer reference
	MerchantUserID string
	// AmountMinor is the amount in paise
	AmountMinor int64
	// MobileNumber is the customer's 10-digit mobile number
	MobileNumber string
}

// PayResponse is a successful session creation
type PayResponse struct {
	RedirectURL string
	Code        string
	Message     string
	Raw         []byte
}

// StatusResponse is the gateway's authoritative view of a transaction
type StatusResponse struct {
	Code                string
	Message             string
	State               string
	MerchantID          string
	TransactionID       string
	ProviderReferenceID string
	AmountMinor         int64
	Raw                 []byte
}

// Gateway is the outbound port to the hosted payment gateway.
// Errors are *GatewayError values.
type Gateway interface {
	Pay(ctx context.Context, req PayRequest) (*PayResponse, error)
	CheckStatus(ctx context.Context, transactionID string) (*StatusResponse, error)
}

// NotificationDecoder understands the gateway's own webhook format
type NotificationDecoder interface {
	// VerifyNotification checks the X-VERIFY signature of a webhook body
	VerifyNotification(body []byte, signature string) bool
	// DecodeNotification decodes a {"response": base64} webhook envelope
	DecodeNotification(body []byte) (*StatusResponse, error)
}

// PayloadArchive keeps raw gateway payloads as dispute evidence
type PayloadArchive interface {
	Archive(ctx context.Context, key string, body []byte) error
}
