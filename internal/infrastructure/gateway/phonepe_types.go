package gateway

import "encoding/json"

const (
	phonePePayPath    = "/pg/v1/pay"
	phonePeStatusPath = "/pg/v1/status/%s/%s"

	instrumentPayPage = "PAY_PAGE"
	redirectModePOST  = "POST"
)

// phonePePayPayload is the JSON that is base64-encoded into the pay request
type phonePePayPayload struct {
	MerchantID            string                   `json:"merchantId"`
	MerchantTransactionID string                   `json:"merchantTransactionId"`
	MerchantUserID        string                   `json:"merchantUserId"`
	Amount                int64                    `json:"amount"`
	RedirectURL           string                   `json:"redirectUrl"`
	RedirectMode          string                   `json:"redirectMode"`
	CallbackURL           string                   `json:"callbackUrl"`
	MobileNumber          string                   `json:"mobileNumber,omitempty"`
	PaymentInstrument     phonePePaymentInstrument `json:"paymentInstrument"`
}

type phonePePaymentInstrument struct {
	Type string `json:"type"`
}

// phonePeEnvelope wraps base64 payloads in both directions
type phonePeEnvelope struct {
	Request  string `json:"request,omitempty"`
	Response string `json:"response,omitempty"`
}

// phonePeResponse is the common response shape
type phonePeResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type phonePePayData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	InstrumentResponse    struct {
		Type         string `json:"type"`
		RedirectInfo struct {
			URL    string `json:"url"`
			Method string `json:"method"`
		} `json:"redirectInfo"`
	} `json:"instrumentResponse"`
}

type phonePeStatusData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	Amount                int64  `json:"amount"`
	State                 string `json:"state"`
	ResponseCode          string `json:"responseCode"`
}
