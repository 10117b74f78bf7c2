package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditKind identifies why a balance credit was issued
type CreditKind string

const (
	CreditKindRefill              CreditKind = "refill"
	CreditKindOverpayment         CreditKind = "overpayment"
	CreditKindUnderpaymentSalvage CreditKind = "underpayment_salvage"
	CreditKindManualAdjustment    CreditKind = "manual_adjustment"
)

// UserBalance holds the spendable fiat balance of a user
type UserBalance struct {
	UserID    int64           `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UserBalance) TableName() string {
	return "user_balances"
}

// BalanceCredit is an append-only ledger row. (payment_id, kind) is unique so
// a credit for one payment is applied at most once.
type BalanceCredit struct {
	ID        uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID      uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	UserID    int64           `gorm:"not null;index" json:"user_id"`
	PaymentID string          `gorm:"type:varchar(128);not null;uniqueIndex:uk_balance_credits_payment_kind" json:"payment_id"`
	Kind      CreditKind      `gorm:"type:varchar(32);not null;uniqueIndex:uk_balance_credits_payment_kind" json:"kind"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Memo      string          `gorm:"type:text" json:"memo"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BalanceCredit) TableName() string {
	return "balance_credits"
}

// BeforeCreate ensures UUID is set
func (c *BalanceCredit) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	return nil
}

// BalanceCreditFilter represents filter criteria for credit ledger queries
type BalanceCreditFilter struct {
	UserID        *int64      `json:"user_id,omitempty"`
	PaymentID     *string     `json:"payment_id,omitempty"`
	Kind          *CreditKind `json:"kind,omitempty"`
	CreatedAfter  *time.Time  `json:"created_after,omitempty"`
	CreatedBefore *time.Time  `json:"created_before,omitempty"`
}
