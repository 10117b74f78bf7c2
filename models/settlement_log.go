package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementLog is the audit trail row written for every processed notification
type SettlementLog struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID     string          `gorm:"type:varchar(128);not null;index" json:"payment_id"`
	GatewayStatus string          `gorm:"type:varchar(32);not null" json:"gateway_status"`
	Outcome       string          `gorm:"type:varchar(40);not null" json:"outcome"`
	State         string          `gorm:"type:varchar(20);not null;index" json:"state"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"amount"`
	Reason        *string         `gorm:"type:text" json:"reason,omitempty"`
	RequestID     *string         `gorm:"size:255" json:"request_id,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (SettlementLog) TableName() string {
	return "settlement_logs"
}

// SettlementLogFilter represents filter criteria for settlement log queries
type SettlementLogFilter struct {
	PaymentID     *string
	State         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
