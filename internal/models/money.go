package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount that always serializes with two fractional
// digits ("45.00", never "45").
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MustMoney parses s and panics on malformed input. Meant for tests and constants.
func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.StringFixed(2))
}

// Cents converts the amount to the smallest currency unit, rounding half away
// from zero.
func (m Money) Cents() int64 {
	return m.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
