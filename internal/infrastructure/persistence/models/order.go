package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
)

// OrderItems is the JSONB snapshot of an order's lines
type OrderItems []payment.OrderItem

// Value implements driver.Valuer for GORM to store as JSONB
func (i OrderItems) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (i *OrderItems) Scan(value any) error {
	if value == nil {
		*i = OrderItems{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan OrderItems: unsupported type")
	}
	return json.Unmarshal(raw, i)
}

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	ID                   string                    `gorm:"type:varchar(64);primary_key"`
	CustomerRef          string                    `gorm:"type:varchar(100);not null;index"`
	CustomerPhone        string                    `gorm:"type:varchar(20)"`
	Amount               decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	Currency             string                    `gorm:"type:varchar(3);not null;default:'INR'"`
	Items                OrderItems                `gorm:"type:jsonb;default:'[]'"`
	PaymentStatus        payment.PaymentStatus     `gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_payment_status_initiated_at,priority:1"`
	FulfillmentStatus    payment.FulfillmentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	GatewayTransactionID *string                   `gorm:"type:varchar(100)"`
	PaymentInitiatedAt   *time.Time                `gorm:"index:idx_orders_payment_status_initiated_at,priority:2"`
	PaymentCompletedAt   *time.Time
	PaymentClosedAt      *time.Time
	Version              int       `gorm:"not null;default:1"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *payment.Order {
	order := &payment.Order{
		ID:                 m.ID,
		CustomerRef:        m.CustomerRef,
		CustomerPhone:      m.CustomerPhone,
		Amount:             m.Amount,
		Currency:           m.Currency,
		Items:              []payment.OrderItem(m.Items),
		PaymentStatus:      m.PaymentStatus,
		FulfillmentStatus:  m.FulfillmentStatus,
		PaymentInitiatedAt: m.PaymentInitiatedAt,
		PaymentCompletedAt: m.PaymentCompletedAt,
		PaymentClosedAt:    m.PaymentClosedAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.GatewayTransactionID != nil {
		order.GatewayTransactionID = *m.GatewayTransactionID
	}
	return order
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *payment.Order) {
	m.ID = o.ID
	m.CustomerRef = o.CustomerRef
	m.CustomerPhone = o.CustomerPhone
	m.Amount = o.Amount
	m.Currency = o.Currency
	m.Items = OrderItems(o.Items)
	m.PaymentStatus = o.PaymentStatus
	m.FulfillmentStatus = o.FulfillmentStatus
	m.GatewayTransactionID = nullableString(o.GatewayTransactionID)
	m.PaymentInitiatedAt = o.PaymentInitiatedAt
	m.PaymentCompletedAt = o.PaymentCompletedAt
	m.PaymentClosedAt = o.PaymentClosedAt
	m.Version = o.Version
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *payment.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// StateColumns returns the columns a state write may change, keyed by column name
func (m *OrderModel) StateColumns() map[string]any {
	return map[string]any{
		"payment_status":         m.PaymentStatus,
		"fulfillment_status":     m.FulfillmentStatus,
		"gateway_transaction_id": m.GatewayTransactionID,
		"payment_initiated_at":   m.PaymentInitiatedAt,
		"payment_completed_at":   m.PaymentCompletedAt,
		"payment_closed_at":      m.PaymentClosedAt,
		"version":                m.Version,
		"updated_at":             m.UpdatedAt,
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
