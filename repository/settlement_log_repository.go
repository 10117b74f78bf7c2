package repository

import (
	"context"

	"github.com/amirphl/ipn-settlement/models"
	"gorm.io/gorm"
)

// SettlementLogRepositoryImpl implements SettlementLogRepository
type SettlementLogRepositoryImpl struct {
	*BaseRepository[models.SettlementLog, models.SettlementLogFilter]
}

// NewSettlementLogRepository creates a new settlement log repository
func NewSettlementLogRepository(db *gorm.DB) SettlementLogRepository {
	return &SettlementLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SettlementLog, models.SettlementLogFilter](db),
	}
}

func (r *SettlementLogRepositoryImpl) ByFilter(ctx context.Context, filter models.SettlementLogFilter, orderBy string, limit, offset int) ([]*models.SettlementLog, error) {
	q := r.getDB(ctx).Model(&models.SettlementLog{})
	if filter.PaymentID != nil {
		q = q.Where("payment_id = ?", *filter.PaymentID)
	}
	if filter.State != nil {
		q = q.Where("state = ?", *filter.State)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("created_at < ?", *filter.CreatedBefore)
	}
	if orderBy == "" {
		orderBy = "id ASC"
	}
	q = q.Order(orderBy)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var entries []*models.SettlementLog
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
