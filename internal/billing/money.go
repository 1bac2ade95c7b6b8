package billing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount converts an untrusted numeric value into a non-negative decimal.
// Non-finite values are rejected and negative values clamp to zero, so
// malformed form input never reaches the arithmetic below.
func Amount(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("amount is not a finite number")
	}
	d := decimal.NewFromFloat(v)
	if d.IsNegative() {
		return decimal.Zero, nil
	}
	return d, nil
}

// AmountFromString parses a decimal string into a non-negative amount.
// Empty input parses as zero.
func AmountFromString(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, nil
	}
	return d, nil
}

// Quantity converts an untrusted numeric value into a strictly positive
// decimal quantity.
func Quantity(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("quantity is not a finite number")
	}
	d := decimal.NewFromFloat(v)
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("quantity must be positive")
	}
	return d, nil
}
