package dto

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatAmount renders an amount for display, e.g. "INR 1,000.00".
// Unknown currency codes are shown as given.
func FormatAmount(amount decimal.Decimal, code string) string {
	label := strings.ToUpper(strings.TrimSpace(code))
	if unit, err := currency.ParseISO(label); err == nil {
		label = unit.String()
	}
	f, _ := amount.Round(2).Float64()
	p := message.NewPrinter(language.English)
	return strings.TrimSpace(label + " " + p.Sprint(number.Decimal(f, number.Scale(2))))
}
