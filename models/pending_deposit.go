package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PendingDeposit is an outstanding gateway payment intent. It is written once
// when a payment address is issued and deleted once when settled or cancelled.
type PendingDeposit struct {
	PaymentID            string          `gorm:"type:varchar(128);primaryKey" json:"payment_id"`
	UserID               int64           `gorm:"not null;index:idx_pending_deposits_user_id" json:"user_id"`
	Currency             string          `gorm:"type:varchar(32);not null" json:"currency"`
	TargetFiatAmount     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"target_fiat_amount"`
	ExpectedCryptoAmount decimal.Decimal `gorm:"type:numeric(38,18);not null;default:0" json:"expected_crypto_amount"`
	IsPurchase           bool            `gorm:"not null;default:false" json:"is_purchase"`
	BasketSnapshot       json.RawMessage `gorm:"type:jsonb" json:"basket_snapshot,omitempty"`
	DiscountCodeUsed     *string         `gorm:"type:varchar(64)" json:"discount_code_used,omitempty"`
	CreatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_pending_deposits_created_at" json:"created_at"`
}

func (PendingDeposit) TableName() string {
	return "pending_deposits"
}

// Kind returns a short label used in logs
func (p *PendingDeposit) Kind() string {
	if p.IsPurchase {
		return "purchase"
	}
	return "refill"
}

// DiscountCode returns the discount code or "" when none was used
func (p *PendingDeposit) DiscountCode() string {
	if p.DiscountCodeUsed == nil {
		return ""
	}
	return *p.DiscountCodeUsed
}

// PendingDepositFilter represents filter criteria for pending deposit queries
type PendingDepositFilter struct {
	PaymentID     *string    `json:"payment_id,omitempty"`
	UserID        *int64     `json:"user_id,omitempty"`
	Currency      *string    `json:"currency,omitempty"`
	IsPurchase    *bool      `json:"is_purchase,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
