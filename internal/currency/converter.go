package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Code is the only currency donations are collected in.
const Code = "IDR"

// GrossAmount rounds an amount to whole rupiah. The gateway echoes this exact
// integer back in its notifications, and the signature is computed over it.
func GrossAmount(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// FormatGross renders an amount the way the gateway serialises gross_amount
// in notifications, e.g. "50000.00".
func FormatGross(amount decimal.Decimal) string {
	return decimal.NewFromInt(GrossAmount(amount)).StringFixed(2)
}

// ParseAmount parses a user or gateway supplied amount.
func ParseAmount(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", v, err)
	}
	return d, nil
}

// SameGross reports whether a gross_amount reported by the gateway matches
// the stored donation amount after rounding.
func SameGross(reported string, stored decimal.Decimal) bool {
	d, err := ParseAmount(reported)
	if err != nil {
		return false
	}
	return d.Equal(decimal.NewFromInt(GrossAmount(stored)))
}
