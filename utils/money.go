package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyAmount        = errors.New("amount is empty")
	ErrInvalidAmount      = errors.New("amount is not a valid decimal")
	ErrNonPositiveDivisor = errors.New("expected amount must be positive")
)

// ParseAmount parses a gateway amount such as "0.012" or "1.5e-3" into a decimal.
// Exponents beyond MaxAmountExponent and coefficients longer than
// MaxAmountDigits are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	if len(s) > 2*MaxAmountDigits {
		return decimal.Zero, fmt.Errorf("%w: too long", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if exp := d.Exponent(); exp > MaxAmountExponent || exp < -MaxAmountExponent || d.NumDigits() > MaxAmountDigits {
		return decimal.Zero, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return d, nil
}

// RoundDown2 rounds toward zero to FiatScale places
func RoundDown2(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(FiatScale)
}

// ProportionalFiat converts a paid crypto amount into fiat using the quote
// ratio recorded when the payment intent was created:
//
//	round_down(paid / expected * target, 2)
//
// The quotient is truncated exactly at FiatScale, so no intermediate rounding
// can push the result up by a minor unit.
func ProportionalFiat(paid, expected, target decimal.Decimal) (decimal.Decimal, error) {
	if !expected.IsPositive() {
		return decimal.Zero, ErrNonPositiveDivisor
	}
	q, _ := paid.Mul(target).QuoRem(expected, FiatScale)
	return RoundDown2(q), nil
}

// FormatFiat renders a fiat amount with exactly two decimals
func FormatFiat(d decimal.Decimal) string {
	return d.StringFixed(FiatScale)
}

// SameCurrency compares asset codes case-insensitively
func SameCurrency(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
