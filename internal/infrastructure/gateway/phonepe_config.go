package gateway

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	// MinRequestTimeout and MaxRequestTimeout bound every outbound gateway call
	MinRequestTimeout     = 15 * time.Second
	MaxRequestTimeout     = 30 * time.Second
	DefaultRequestTimeout = 20 * time.Second
)

// PhonePeConfig contains configuration for the PhonePe PG API
type PhonePeConfig struct {
	// MerchantID is the merchant ID issued by the gateway
	MerchantID string
	// SaltKey is the shared secret used for X-VERIFY checksums
	SaltKey string
	// SaltIndex identifies which salt key is in use
	SaltIndex int
	// BaseURL is the API host, e.g. https://api.phonepe.com/apis/hermes
	BaseURL string
	// RedirectURL is where the pay page posts the browser back to
	RedirectURL string
	// CallbackURL receives server-to-server notifications
	CallbackURL string
	// Timeout bounds each request; clamped to [MinRequestTimeout, MaxRequestTimeout]
	Timeout time.Duration
}

// Errors for configuration validation
var (
	ErrPhonePeMissingMerchantID  = errors.New("phonepe: missing merchant ID")
	ErrPhonePeMissingSaltKey     = errors.New("phonepe: missing salt key")
	ErrPhonePeInvalidSaltIndex   = errors.New("phonepe: salt index must be positive")
	ErrPhonePeMissingBaseURL     = errors.New("phonepe: missing base URL")
	ErrPhonePeInvalidBaseURL     = errors.New("phonepe: invalid base URL")
	ErrPhonePeMissingRedirectURL = errors.New("phonepe: missing redirect URL")
	ErrPhonePeMissingCallbackURL = errors.New("phonepe: missing callback URL")
)

// Validate validates the configuration
func (c *PhonePeConfig) Validate() error {
	if c.MerchantID == "" {
		return ErrPhonePeMissingMerchantID
	}
	if c.SaltKey == "" {
		return ErrPhonePeMissingSaltKey
	}
	if c.SaltIndex < 1 {
		return ErrPhonePeInvalidSaltIndex
	}
	if c.BaseURL == "" {
		return ErrPhonePeMissingBaseURL
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrPhonePeInvalidBaseURL
	}
	if c.RedirectURL == "" {
		return ErrPhonePeMissingRedirectURL
	}
	if c.CallbackURL == "" {
		return ErrPhonePeMissingCallbackURL
	}
	return nil
}

// EffectiveTimeout returns Timeout clamped to the allowed window
func (c *PhonePeConfig) EffectiveTimeout() time.Duration {
	switch {
	case c.Timeout == 0:
		return DefaultRequestTimeout
	case c.Timeout < MinRequestTimeout:
		return MinRequestTimeout
	case c.Timeout > MaxRequestTimeout:
		return MaxRequestTimeout
	}
	return c.Timeout
}

// PhonePeConfigBuilder helps build PhonePeConfig
type PhonePeConfigBuilder struct {
	config PhonePeConfig
}

// NewPhonePeConfigBuilder creates a new config builder
func NewPhonePeConfigBuilder() *PhonePeConfigBuilder {
	return &PhonePeConfigBuilder{}
}

// SetMerchantID sets the merchant ID
func (b *PhonePeConfigBuilder) SetMerchantID(merchantID string) *PhonePeConfigBuilder {
	b.config.MerchantID = merchantID
	return b
}

// SetSalt sets the salt key and its index
func (b *PhonePeConfigBuilder) SetSalt(saltKey string, saltIndex int) *PhonePeConfigBuilder {
	b.config.SaltKey = saltKey
	b.config.SaltIndex = saltIndex
	return b
}

// SetBaseURL sets the API base URL
func (b *PhonePeConfigBuilder) SetBaseURL(baseURL string) *PhonePeConfigBuilder {
	b.config.BaseURL = strings.TrimRight(baseURL, "/")
	return b
}

// SetRedirectURL sets the browser redirect URL
func (b *PhonePeConfigBuilder) SetRedirectURL(redirectURL string) *PhonePeConfigBuilder {
	b.config.RedirectURL = redirectURL
	return b
}

// SetCallbackURL sets the webhook URL
func (b *PhonePeConfigBuilder) SetCallbackURL(callbackURL string) *PhonePeConfigBuilder {
	b.config.CallbackURL = callbackURL
	return b
}

// SetTimeout sets the request timeout
func (b *PhonePeConfigBuilder) SetTimeout(timeout time.Duration) *PhonePeConfigBuilder {
	b.config.Timeout = timeout
	return b
}

// Build builds the config and validates it
func (b *PhonePeConfigBuilder) Build() (*PhonePeConfig, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	cfg := b.config
	return &cfg, nil
}
