package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/ipn-settlement/models"
	"gorm.io/gorm"
)

// PendingDepositRepositoryImpl implements PendingDepositRepository
type PendingDepositRepositoryImpl struct {
	*BaseRepository[models.PendingDeposit, models.PendingDepositFilter]
}

// NewPendingDepositRepository creates a new pending deposit repository
func NewPendingDepositRepository(db *gorm.DB) PendingDepositRepository {
	return &PendingDepositRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PendingDeposit, models.PendingDepositFilter](db),
	}
}

func (r *PendingDepositRepositoryImpl) ByPaymentID(ctx context.Context, paymentID string) (*models.PendingDeposit, error) {
	db := r.getDB(ctx)
	var dep models.PendingDeposit
	if err := db.Where("payment_id = ?", paymentID).Take(&dep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pending deposit %s: %w", paymentID, err)
	}
	return &dep, nil
}

func (r *PendingDepositRepositoryImpl) DeleteByPaymentID(ctx context.Context, paymentID string) (deleted bool, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}
	defer func() { err = finishWrite(db, shouldCommit, err) }()

	res := db.Where("payment_id = ?", paymentID).Delete(&models.PendingDeposit{})
	if res.Error != nil {
		err = fmt.Errorf("failed to delete pending deposit %s: %w", paymentID, res.Error)
		return false, err
	}
	return res.RowsAffected > 0, nil
}

func (r *PendingDepositRepositoryImpl) ListStaleWithoutOpenReview(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingDeposit, error) {
	db := r.getDB(ctx)
	q := db.Model(&models.PendingDeposit{}).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM settlement_reviews sr WHERE sr.payment_id = pending_deposits.payment_id AND sr.status = ?)",
			models.SettlementReviewStatusOpen).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var deps []*models.PendingDeposit
	if err := q.Find(&deps).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale pending deposits: %w", err)
	}
	return deps, nil
}

func (r *PendingDepositRepositoryImpl) ByFilter(ctx context.Context, filter models.PendingDepositFilter, orderBy string, limit, offset int) ([]*models.PendingDeposit, error) {
	q := r.applyFilter(r.getDB(ctx).Model(&models.PendingDeposit{}), filter)
	if orderBy != "" {
		q = q.Order(orderBy)
	} else {
		q = q.Order("created_at DESC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var deps []*models.PendingDeposit
	if err := q.Find(&deps).Error; err != nil {
		return nil, err
	}
	return deps, nil
}

func (r *PendingDepositRepositoryImpl) Count(ctx context.Context, filter models.PendingDepositFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.PendingDeposit{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PendingDepositRepositoryImpl) applyFilter(q *gorm.DB, f models.PendingDepositFilter) *gorm.DB {
	if f.PaymentID != nil {
		q = q.Where("payment_id = ?", *f.PaymentID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Currency != nil {
		q = q.Where("LOWER(currency) = LOWER(?)", *f.Currency)
	}
	if f.IsPurchase != nil {
		q = q.Where("is_purchase = ?", *f.IsPurchase)
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	return q
}
