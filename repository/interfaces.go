// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// AdminRepository defines operations for operator accounts
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Admin, error)
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error
}

// PendingDepositRepository defines operations for outstanding payment intents.
// Records are keyed by the gateway payment id and are never updated.
type PendingDepositRepository interface {
	ByPaymentID(ctx context.Context, paymentID string) (*models.PendingDeposit, error)
	ByFilter(ctx context.Context, filter models.PendingDepositFilter, orderBy string, limit, offset int) ([]*models.PendingDeposit, error)
	Count(ctx context.Context, filter models.PendingDepositFilter) (int64, error)
	Save(ctx context.Context, deposit *models.PendingDeposit) error
	// DeleteByPaymentID removes the record. Deleting a missing record is not an error.
	DeleteByPaymentID(ctx context.Context, paymentID string) (bool, error)
	// ListStaleWithoutOpenReview returns records created before cutoff that
	// have no open settlement review.
	ListStaleWithoutOpenReview(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingDeposit, error)
}

// BalanceRepository defines operations for user balances and the credit ledger
type BalanceRepository interface {
	// Credit appends a ledger row and increments the user balance atomically.
	// It returns false when a credit for (payment_id, kind) already exists.
	Credit(ctx context.Context, credit *models.BalanceCredit) (bool, error)
	BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error)
	CreditsByFilter(ctx context.Context, filter models.BalanceCreditFilter, orderBy string, limit, offset int) ([]*models.BalanceCredit, error)
}

// SettlementReviewRepository defines operations for the manual-review queue
type SettlementReviewRepository interface {
	Repository[models.SettlementReview, models.SettlementReviewFilter]
	ByUUID(ctx context.Context, uuid string) (*models.SettlementReview, error)
	HasOpenBlocking(ctx context.Context, paymentID string) (bool, error)
	Update(ctx context.Context, review *models.SettlementReview) error
}

// SettlementLogRepository defines operations for the settlement audit trail
type SettlementLogRepository interface {
	Save(ctx context.Context, entry *models.SettlementLog) error
	ByFilter(ctx context.Context, filter models.SettlementLogFilter, orderBy string, limit, offset int) ([]*models.SettlementLog, error)
}
