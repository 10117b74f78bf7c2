package utils

import (
	"time"
)

// Token time constants
const (
	// AccessTokenTTL is the time-to-live for operator access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is AccessTokenTTL in seconds
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Settlement constants
const (
	// DefaultFiatCurrency is the currency balances and targets are kept in
	DefaultFiatCurrency = "EUR"

	// FiatScale is the number of fractional digits kept for fiat amounts
	FiatScale = 2

	// MaxAmountExponent bounds the decimal exponent accepted for any amount
	MaxAmountExponent = 30

	// MaxAmountDigits bounds the coefficient length accepted for any amount
	MaxAmountDigits = 40

	// NOWPaymentsSignatureHeader carries the HMAC-SHA512 of the IPN body
	NOWPaymentsSignatureHeader = "x-nowpayments-sig"

	// PaymentLockKeyPrefix namespaces distributed settlement locks in Redis
	PaymentLockKeyPrefix = "ipn:lock:"
)
