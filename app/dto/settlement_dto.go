package dto

import (
	"encoding/json"
	"time"
)

// FinalizePurchaseRequest asks the shop to deliver a paid basket
type FinalizePurchaseRequest struct {
	UserID       int64           `json:"user_id"`
	PaymentID    string          `json:"payment_id"`
	Basket       json.RawMessage `json:"basket"`
	DiscountCode string          `json:"discount_code,omitempty"`
}

// ReleaseReservationsRequest asks the shop to un-reserve the items of a basket
type ReleaseReservationsRequest struct {
	Basket json.RawMessage `json:"basket"`
}

// Settlement event types published to the event stream
const (
	SettlementEventSettled      = "settlement.settled"
	SettlementEventCancelled    = "settlement.cancelled"
	SettlementEventManualReview = "settlement.manual_review"
)

// SettlementEvent is published after every settlement that changed state
type SettlementEvent struct {
	Type         string    `json:"type"`
	PaymentID    string    `json:"payment_id"`
	UserID       int64     `json:"user_id"`
	Outcome      string    `json:"outcome"`
	State        string    `json:"state"`
	Reason       string    `json:"reason,omitempty"`
	PaidFiat     string    `json:"paid_fiat"`
	Credited     string    `json:"credited"`
	Currency     string    `json:"currency"`
	Delivered    bool      `json:"delivered"`
	ReviewStages []string  `json:"review_stages,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
