package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
	"gorm.io/gorm"
)

// SettlementReviewRepositoryImpl implements SettlementReviewRepository
type SettlementReviewRepositoryImpl struct {
	*BaseRepository[models.SettlementReview, models.SettlementReviewFilter]
}

// NewSettlementReviewRepository creates a new settlement review repository
func NewSettlementReviewRepository(db *gorm.DB) SettlementReviewRepository {
	return &SettlementReviewRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SettlementReview, models.SettlementReviewFilter](db),
	}
}

func (r *SettlementReviewRepositoryImpl) ByUUID(ctx context.Context, u string) (*models.SettlementReview, error) {
	parsed, err := utils.ParseUUID(u)
	if err != nil {
		return nil, err
	}
	db := r.getDB(ctx)
	var review models.SettlementReview
	if err := db.Where("uuid = ?", parsed).Last(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find settlement review %s: %w", u, err)
	}
	return &review, nil
}

// HasOpenBlocking reports whether an open review exists for the payment at a
// stage that forbids automatic settlement.
func (r *SettlementReviewRepositoryImpl) HasOpenBlocking(ctx context.Context, paymentID string) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.SettlementReview{}).
		Where("payment_id = ? AND status = ?", paymentID, models.SettlementReviewStatusOpen).
		Where("stage IN ?", models.BlockingSettlementStages()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check open reviews for %s: %w", paymentID, err)
	}
	return count > 0, nil
}

func (r *SettlementReviewRepositoryImpl) Update(ctx context.Context, review *models.SettlementReview) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer func() { err = finishWrite(db, shouldCommit, err) }()

	review.UpdatedAt = utils.UTCNow()
	if err = db.Save(review).Error; err != nil {
		return fmt.Errorf("failed to update settlement review: %w", err)
	}
	return nil
}

func (r *SettlementReviewRepositoryImpl) ByFilter(ctx context.Context, filter models.SettlementReviewFilter, orderBy string, limit, offset int) ([]*models.SettlementReview, error) {
	q := r.applyFilter(r.getDB(ctx).Model(&models.SettlementReview{}), filter)
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
	var reviews []*models.SettlementReview
	if err := q.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *SettlementReviewRepositoryImpl) Count(ctx context.Context, filter models.SettlementReviewFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.SettlementReview{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SettlementReviewRepositoryImpl) Exists(ctx context.Context, filter models.SettlementReviewFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *SettlementReviewRepositoryImpl) applyFilter(q *gorm.DB, f models.SettlementReviewFilter) *gorm.DB {
	if f.UUID != nil {
		q = q.Where("uuid = ?", *f.UUID)
	}
	if f.PaymentID != nil {
		q = q.Where("payment_id = ?", *f.PaymentID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Stage != nil {
		q = q.Where("stage = ?", *f.Stage)
	}
	if len(f.Stages) > 0 {
		q = q.Where("stage IN ?", f.Stages)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	return q
}
