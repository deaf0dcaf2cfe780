package dto

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount string
		code   string
		want   string
	}{
		{"1000", "INR", "INR 1,000.00"},
		{"1234567.5", "inr", "INR 1,234,567.50"},
		{"0.5", "INR", "INR 0.50"},
		{"99.999", "INR", "INR 100.00"},
		{"10", "", "10.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.amount), tt.code), tt.amount)
	}
}
