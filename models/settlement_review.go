package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementStage names the sub-step of a settlement that failed
type SettlementStage string

const (
	SettlementStageFinalizePurchase    SettlementStage = "finalize_purchase"
	SettlementStageCreditOverpayment   SettlementStage = "credit_overpayment"
	SettlementStageCreditSalvage       SettlementStage = "credit_underpayment_salvage"
	SettlementStageCreditRefill        SettlementStage = "credit_refill"
	SettlementStageReleaseReservations SettlementStage = "release_reservations"
	SettlementStageRemovePending       SettlementStage = "remove_pending"
)

// SettlementStages lists every stage a review can be opened at
var SettlementStages = []SettlementStage{
	SettlementStageFinalizePurchase,
	SettlementStageCreditOverpayment,
	SettlementStageCreditSalvage,
	SettlementStageCreditRefill,
	SettlementStageReleaseReservations,
	SettlementStageRemovePending,
}

// BlockingSettlementStages returns the stages for which Blocking is true
func BlockingSettlementStages() []SettlementStage {
	out := make([]SettlementStage, 0, len(SettlementStages))
	for _, s := range SettlementStages {
		if s.Blocking() {
			out = append(out, s)
		}
	}
	return out
}

// Retryable reports whether re-running the settlement is a valid resolution
func (s SettlementStage) Retryable() bool {
	switch s {
	case SettlementStageFinalizePurchase, SettlementStageCreditSalvage, SettlementStageCreditRefill:
		return true
	}
	return false
}

// Blocking reports whether an open review at this stage must stop automatic
// settlement of the same payment. Reviews opened after the outcome was applied
// (overpayment credit, reservation release) are informational only.
func (s SettlementStage) Blocking() bool {
	switch s {
	case SettlementStageCreditOverpayment, SettlementStageReleaseReservations:
		return false
	}
	return true
}

// SettlementReviewStatus is the lifecycle of a manual-review entry
type SettlementReviewStatus string

const (
	SettlementReviewStatusOpen     SettlementReviewStatus = "open"
	SettlementReviewStatusResolved SettlementReviewStatus = "resolved"
)

// SettlementResolution records how an operator closed a review
type SettlementResolution string

const (
	SettlementResolutionDismissed SettlementResolution = "dismissed"
	SettlementResolutionRemoved   SettlementResolution = "removed"
	SettlementResolutionRetried   SettlementResolution = "retried"
)

// SettlementReview is a manual-review queue entry opened when a settlement
// sub-step failed. The deposit and the triggering notification are kept as
// snapshots so an operator can act after the pending record is gone.
type SettlementReview struct {
	ID           uint                   `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID         uuid.UUID              `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	PaymentID    string                 `gorm:"type:varchar(128);not null;index:idx_settlement_reviews_payment_status" json:"payment_id"`
	UserID       int64                  `gorm:"not null;index" json:"user_id"`
	Stage        SettlementStage        `gorm:"type:varchar(40);not null" json:"stage"`
	Amount       decimal.Decimal        `gorm:"type:numeric(20,2);not null;default:0" json:"amount"`
	ErrorMessage string                 `gorm:"type:text" json:"error_message"`
	Status       SettlementReviewStatus `gorm:"type:varchar(20);not null;default:'open';index:idx_settlement_reviews_payment_status" json:"status"`
	Resolution   *SettlementResolution  `gorm:"type:varchar(20)" json:"resolution,omitempty"`
	ResolvedBy   *string                `gorm:"type:varchar(255)" json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time             `json:"resolved_at,omitempty"`
	Note         *string                `gorm:"type:text" json:"note,omitempty"`

	DepositSnapshot json.RawMessage `gorm:"type:jsonb" json:"deposit_snapshot,omitempty"`
	Notification    json.RawMessage `gorm:"type:jsonb" json:"notification,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SettlementReview) TableName() string {
	return "settlement_reviews"
}

// BeforeCreate ensures UUID is set
func (r *SettlementReview) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	return nil
}

func (r *SettlementReview) IsOpen() bool {
	return r.Status == SettlementReviewStatusOpen
}

// SettlementReviewFilter represents filter criteria for review queries
type SettlementReviewFilter struct {
	UUID          *uuid.UUID
	PaymentID     *string
	UserID        *int64
	Stage         *SettlementStage
	Status        *SettlementReviewStatus
	Stages        []SettlementStage
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
