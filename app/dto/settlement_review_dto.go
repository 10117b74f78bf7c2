package dto

import "encoding/json"

// ListSettlementReviewsRequest filters the manual-review queue
type ListSettlementReviewsRequest struct {
	Status    string `query:"status" validate:"omitempty,oneof=open resolved"`
	Stage     string `query:"stage" validate:"omitempty,oneof=finalize_purchase credit_overpayment credit_underpayment_salvage credit_refill release_reservations remove_pending"`
	PaymentID string `query:"payment_id" validate:"omitempty,max=128"`
	Page      int    `query:"page" validate:"omitempty,min=1"`
	PageSize  int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

type SettlementReviewDTO struct {
	UUID            string          `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	PaymentID       string          `json:"payment_id" example:"5077125051"`
	UserID          int64           `json:"user_id" example:"123456789"`
	Stage           string          `json:"stage" example:"finalize_purchase"`
	Amount          string          `json:"amount" example:"100.00"`
	ErrorMessage    string          `json:"error_message"`
	Status          string          `json:"status" example:"open"`
	Resolution      *string         `json:"resolution,omitempty"`
	ResolvedBy      *string         `json:"resolved_by,omitempty"`
	ResolvedAt      *string         `json:"resolved_at,omitempty"`
	Note            *string         `json:"note,omitempty"`
	DepositSnapshot json.RawMessage `json:"deposit_snapshot,omitempty" swaggertype:"object"`
	CreatedAt       string          `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type ListSettlementReviewsResponse struct {
	Items      []SettlementReviewDTO `json:"items"`
	Pagination PaginationInfo        `json:"pagination"`
}

// ResolveSettlementReviewRequest closes a review
type ResolveSettlementReviewRequest struct {
	Action string `json:"action" validate:"required,oneof=dismiss remove_pending retry"`
	Note   string `json:"note" validate:"omitempty,max=1000"`
}

// Review actions
const (
	ReviewActionDismiss       = "dismiss"
	ReviewActionRemovePending = "remove_pending"
	ReviewActionRetry         = "retry"
)

type ResolveSettlementReviewResponse struct {
	Review  SettlementReviewDTO `json:"review"`
	State   string              `json:"state,omitempty"`
	Outcome string              `json:"outcome,omitempty"`
}
