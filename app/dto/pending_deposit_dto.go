package dto

import "encoding/json"

// CreatePendingDepositRequest registers a payment intent issued by checkout
type CreatePendingDepositRequest struct {
	PaymentID            FlexString      `json:"payment_id" validate:"required,max=128"`
	UserID               int64           `json:"user_id" validate:"required,gt=0"`
	Currency             string          `json:"currency" validate:"required,max=32"`
	TargetFiatAmount     string          `json:"target_fiat_amount" validate:"required"`
	ExpectedCryptoAmount string          `json:"expected_crypto_amount" validate:"required"`
	IsPurchase           bool            `json:"is_purchase"`
	BasketSnapshot       json.RawMessage `json:"basket_snapshot,omitempty" swaggertype:"object"`
	DiscountCodeUsed     *string         `json:"discount_code_used,omitempty" validate:"omitempty,max=64"`
}

type PendingDepositDTO struct {
	PaymentID            string          `json:"payment_id" example:"5077125051"`
	UserID               int64           `json:"user_id" example:"123456789"`
	Currency             string          `json:"currency" example:"btc"`
	TargetFiatAmount     string          `json:"target_fiat_amount" example:"100.00"`
	ExpectedCryptoAmount string          `json:"expected_crypto_amount" example:"0.01"`
	IsPurchase           bool            `json:"is_purchase" example:"true"`
	BasketSnapshot       json.RawMessage `json:"basket_snapshot,omitempty" swaggertype:"object"`
	DiscountCodeUsed     *string         `json:"discount_code_used,omitempty"`
	CreatedAt            string          `json:"created_at" example:"2024-01-15T10:30:00Z"`
}
