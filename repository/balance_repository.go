package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceRepositoryImpl implements BalanceRepository
type BalanceRepositoryImpl struct {
	*BaseRepository[models.BalanceCredit, models.BalanceCreditFilter]
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &BalanceRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BalanceCredit, models.BalanceCreditFilter](db),
	}
}

const incrementBalanceSQL = `
INSERT INTO user_balances (user_id, balance, currency, created_at, updated_at)
VALUES (?, ?, ?, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE
SET balance = user_balances.balance + EXCLUDED.balance, updated_at = NOW()`

// Credit writes the ledger row and increments the balance in one transaction.
// A repeated (payment_id, kind) leaves the balance untouched.
func (r *BalanceRepositoryImpl) Credit(ctx context.Context, credit *models.BalanceCredit) (applied bool, err error) {
	if !credit.Amount.IsPositive() {
		return false, fmt.Errorf("credit amount must be positive, got %s", credit.Amount)
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}
	defer func() { err = finishWrite(db, shouldCommit, err) }()

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}, {Name: "kind"}},
		DoNothing: true,
	}).Create(credit)
	if res.Error != nil {
		err = fmt.Errorf("failed to insert balance credit: %w", res.Error)
		return false, err
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err = db.Exec(incrementBalanceSQL, credit.UserID, credit.Amount, credit.Currency).Error; err != nil {
		err = fmt.Errorf("failed to increment balance for user %d: %w", credit.UserID, err)
		return false, err
	}

	return true, nil
}

func (r *BalanceRepositoryImpl) BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error) {
	db := r.getDB(ctx)
	var bal models.UserBalance
	if err := db.Where("user_id = ?", userID).Take(&bal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read balance for user %d: %w", userID, err)
	}
	return bal.Balance, nil
}

func (r *BalanceRepositoryImpl) CreditsByFilter(ctx context.Context, filter models.BalanceCreditFilter, orderBy string, limit, offset int) ([]*models.BalanceCredit, error) {
	q := r.getDB(ctx).Model(&models.BalanceCredit{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.PaymentID != nil {
		q = q.Where("payment_id = ?", *filter.PaymentID)
	}
	if filter.Kind != nil {
		q = q.Where("kind = ?", *filter.Kind)
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
	var credits []*models.BalanceCredit
	if err := q.Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}
