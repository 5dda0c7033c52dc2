// internal/pkg/money/money.go
package money

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to two decimal places, half up.
// Every derived amount in the system goes through this; truncation is never used.
func Round2(d decimal.Decimal) decimal.Decimal {
	// decimal.Round is half-away-from-zero, which is HALF_UP for the
	// non-negative amounts money ever takes here.
	return d.Round(2)
}

// LineTotal computes unit price times quantity, rounded to currency precision.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Zero is the canonical zero amount.
func Zero() decimal.Decimal {
	return decimal.NewFromInt(0)
}
