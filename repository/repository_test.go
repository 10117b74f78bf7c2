package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/repository"
	testingutil "github.com/amirphl/ipn-settlement/testing"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingDepositRepository(t *testing.T) {
	testDB := testingutil.RequireTestDB(t)
	fixtures := testingutil.NewTestFixtures(testDB)
	repo := repository.NewPendingDepositRepository(testDB.DB)
	ctx := context.Background()

	t.Run("ByPaymentID", func(t *testing.T) {
		dep, err := fixtures.CreatePurchaseDeposit(7, "25.00", utils.UTCNow())
		require.NoError(t, err)

		got, err := repo.ByPaymentID(ctx, dep.PaymentID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsPurchase)
		assert.True(t, decimal.RequireFromString("25").Equal(got.TargetFiatAmount))
		assert.JSONEq(t, string(dep.BasketSnapshot), string(got.BasketSnapshot))
	})

	t.Run("ByPaymentIDNotFound", func(t *testing.T) {
		got, err := repo.ByPaymentID(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		dep, err := fixtures.CreateRefillDeposit(8, "10.00", utils.UTCNow())
		require.NoError(t, err)

		deleted, err := repo.DeleteByPaymentID(ctx, dep.PaymentID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.DeleteByPaymentID(ctx, dep.PaymentID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("ListStaleWithoutOpenReview", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())
		old := utils.UTCNow().Add(-48 * time.Hour)

		stale, err := fixtures.CreateRefillDeposit(9, "10.00", old)
		require.NoError(t, err)
		underReview, err := fixtures.CreateRefillDeposit(9, "12.00", old)
		require.NoError(t, err)
		_, err = fixtures.CreateRefillDeposit(9, "14.00", utils.UTCNow())
		require.NoError(t, err)
		_, err = fixtures.CreateOpenReview(underReview, models.SettlementStageCreditRefill)
		require.NoError(t, err)

		deps, err := repo.ListStaleWithoutOpenReview(ctx, utils.UTCNow().Add(-24*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, deps, 1)
		assert.Equal(t, stale.PaymentID, deps[0].PaymentID)
	})
}

func TestBalanceRepository(t *testing.T) {
	testDB := testingutil.RequireTestDB(t)
	repo := repository.NewBalanceRepository(testDB.DB)
	ctx := context.Background()

	credit := func(paymentID string, kind models.CreditKind, amount string) (bool, error) {
		return repo.Credit(ctx, &models.BalanceCredit{
			UserID:    42,
			PaymentID: paymentID,
			Kind:      kind,
			Amount:    decimal.RequireFromString(amount),
			Currency:  "EUR",
		})
	}

	applied, err := credit("p-1", models.CreditKindRefill, "10.50")
	require.NoError(t, err)
	assert.True(t, applied)

	// a redelivered notification must not double-credit
	applied, err = credit("p-1", models.CreditKindRefill, "10.50")
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = credit("p-1", models.CreditKindOverpayment, "0.25")
	require.NoError(t, err)
	assert.True(t, applied)

	_, err = credit("p-2", models.CreditKindRefill, "0")
	assert.Error(t, err)

	balance, err := repo.BalanceOf(ctx, 42)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.75").Equal(balance), "balance %s", balance)

	balance, err = repo.BalanceOf(ctx, 99)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	credits, err := repo.CreditsByFilter(ctx, models.BalanceCreditFilter{PaymentID: utils.ToPtr("p-1")}, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, credits, 2)
}

func TestSettlementReviewRepository(t *testing.T) {
	testDB := testingutil.RequireTestDB(t)
	fixtures := testingutil.NewTestFixtures(testDB)
	repo := repository.NewSettlementReviewRepository(testDB.DB)
	ctx := context.Background()

	dep, err := fixtures.CreatePurchaseDeposit(5, "30.00", utils.UTCNow())
	require.NoError(t, err)

	t.Run("InformationalReviewDoesNotBlock", func(t *testing.T) {
		_, err := fixtures.CreateOpenReview(dep, models.SettlementStageCreditOverpayment)
		require.NoError(t, err)

		blocking, err := repo.HasOpenBlocking(ctx, dep.PaymentID)
		require.NoError(t, err)
		assert.False(t, blocking)
	})

	review, err := fixtures.CreateOpenReview(dep, models.SettlementStageFinalizePurchase)
	require.NoError(t, err)

	t.Run("OpenFinalizeReviewBlocks", func(t *testing.T) {
		blocking, err := repo.HasOpenBlocking(ctx, dep.PaymentID)
		require.NoError(t, err)
		assert.True(t, blocking)
	})

	t.Run("ByUUID", func(t *testing.T) {
		got, err := repo.ByUUID(ctx, review.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.SettlementStageFinalizePurchase, got.Stage)
		assert.True(t, got.IsOpen())
	})

	t.Run("ResolvedReviewStopsBlocking", func(t *testing.T) {
		got, err := repo.ByUUID(ctx, review.UUID.String())
		require.NoError(t, err)

		now := utils.UTCNow()
		got.Status = models.SettlementReviewStatusResolved
		got.Resolution = utils.ToPtr(models.SettlementResolutionDismissed)
		got.ResolvedBy = utils.ToPtr("admin:1")
		got.ResolvedAt = &now
		require.NoError(t, repo.Update(ctx, got))

		blocking, err := repo.HasOpenBlocking(ctx, dep.PaymentID)
		require.NoError(t, err)
		assert.False(t, blocking)
	})

	t.Run("Count", func(t *testing.T) {
		open := models.SettlementReviewStatusOpen
		count, err := repo.Count(ctx, models.SettlementReviewFilter{PaymentID: &dep.PaymentID, Status: &open})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestAdminRepository(t *testing.T) {
	testDB := testingutil.RequireTestDB(t)
	fixtures := testingutil.NewTestFixtures(testDB)
	repo := repository.NewAdminRepository(testDB.DB)
	ctx := context.Background()

	admin, err := fixtures.CreateTestAdmin("operator")
	require.NoError(t, err)

	got, err := repo.ByUsername(ctx, "operator")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, admin.ID, got.ID)
	assert.Nil(t, got.LastLoginAt)

	at := utils.UTCNow()
	require.NoError(t, repo.UpdateLastLogin(ctx, admin.ID, at))

	got, err = repo.ByID(ctx, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)

	missing, err := repo.ByUsername(ctx, "ghost")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithTransaction(t *testing.T) {
	testDB := testingutil.RequireTestDB(t)
	fixtures := testingutil.NewTestFixtures(testDB)
	deposits := repository.NewPendingDepositRepository(testDB.DB)
	reviews := repository.NewSettlementReviewRepository(testDB.DB)
	ctx := context.Background()

	resolve := func(txCtx context.Context, review *models.SettlementReview) error {
		if _, err := deposits.DeleteByPaymentID(txCtx, review.PaymentID); err != nil {
			return err
		}
		review.Status = models.SettlementReviewStatusResolved
		review.Resolution = utils.ToPtr(models.SettlementResolutionRemoved)
		return reviews.Update(txCtx, review)
	}

	t.Run("RollsBackOnError", func(t *testing.T) {
		dep, err := fixtures.CreatePurchaseDeposit(11, "40.00", utils.UTCNow())
		require.NoError(t, err)
		review, err := fixtures.CreateOpenReview(dep, models.SettlementStageRemovePending)
		require.NoError(t, err)

		err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
			if err := resolve(txCtx, review); err != nil {
				return err
			}
			return errors.New("abort")
		})
		require.EqualError(t, err, "abort")

		got, err := deposits.ByPaymentID(ctx, dep.PaymentID)
		require.NoError(t, err)
		assert.NotNil(t, got)

		stored, err := reviews.ByUUID(ctx, review.UUID.String())
		require.NoError(t, err)
		assert.True(t, stored.IsOpen())
	})

	t.Run("Commits", func(t *testing.T) {
		dep, err := fixtures.CreateRefillDeposit(12, "15.00", utils.UTCNow())
		require.NoError(t, err)
		review, err := fixtures.CreateOpenReview(dep, models.SettlementStageRemovePending)
		require.NoError(t, err)

		require.NoError(t, repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
			return resolve(txCtx, review)
		}))

		got, err := deposits.ByPaymentID(ctx, dep.PaymentID)
		require.NoError(t, err)
		assert.Nil(t, got)

		stored, err := reviews.ByUUID(ctx, review.UUID.String())
		require.NoError(t, err)
		assert.False(t, stored.IsOpen())
	})
}
