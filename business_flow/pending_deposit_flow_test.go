package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePendingDepositRepo struct {
	mu       sync.Mutex
	deposits map[string]*models.PendingDeposit
	saveErr  error
}

func newFakePendingDepositRepo() *fakePendingDepositRepo {
	return &fakePendingDepositRepo{deposits: make(map[string]*models.PendingDeposit)}
}

func (r *fakePendingDepositRepo) ByPaymentID(ctx context.Context, paymentID string) (*models.PendingDeposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deposits[paymentID], nil
}

func (r *fakePendingDepositRepo) ByFilter(ctx context.Context, filter models.PendingDepositFilter, orderBy string, limit, offset int) ([]*models.PendingDeposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PendingDeposit
	for _, d := range r.deposits {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakePendingDepositRepo) Count(ctx context.Context, filter models.PendingDepositFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.deposits)), nil
}

func (r *fakePendingDepositRepo) Save(ctx context.Context, deposit *models.PendingDeposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.deposits[deposit.PaymentID]; ok {
		return errors.New("duplicate key value violates unique constraint")
	}
	r.deposits[deposit.PaymentID] = deposit
	return nil
}

func (r *fakePendingDepositRepo) DeleteByPaymentID(ctx context.Context, paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.deposits[paymentID]
	delete(r.deposits, paymentID)
	return ok, nil
}

func (r *fakePendingDepositRepo) ListStaleWithoutOpenReview(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingDeposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PendingDeposit
	for _, d := range r.deposits {
		if d.CreatedAt.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func validPurchaseRequest(id string) *dto.CreatePendingDepositRequest {
	return &dto.CreatePendingDepositRequest{
		PaymentID:            dto.FlexString(id),
		UserID:               42,
		Currency:             " BTC ",
		TargetFiatAmount:     "100.00",
		ExpectedCryptoAmount: "0.01",
		IsPurchase:           true,
		BasketSnapshot:       json.RawMessage(`{"items":[{"sku":"A1","qty":1}]}`),
		DiscountCodeUsed:     utils.ToPtr("SPRING"),
	}
}

func TestPendingDepositFlow_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresPurchase", func(t *testing.T) {
		repo := newFakePendingDepositRepo()
		flow := NewPendingDepositFlow(repo, nil)

		out, err := flow.Register(ctx, validPurchaseRequest("5077125051"), nil)
		require.NoError(t, err)
		assert.Equal(t, "5077125051", out.PaymentID)
		assert.Equal(t, "btc", out.Currency)
		assert.Equal(t, "100.00", out.TargetFiatAmount)
		assert.Equal(t, "0.01", out.ExpectedCryptoAmount)

		stored, err := repo.ByPaymentID(ctx, "5077125051")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.IsPurchase)
		assert.Equal(t, "SPRING", stored.DiscountCode())
	})

	t.Run("StoresRefillWithoutBasket", func(t *testing.T) {
		repo := newFakePendingDepositRepo()
		flow := NewPendingDepositFlow(repo, nil)

		req := validPurchaseRequest("r1")
		req.IsPurchase = false
		req.BasketSnapshot = json.RawMessage(`null`)
		out, err := flow.Register(ctx, req, nil)
		require.NoError(t, err)
		assert.False(t, out.IsPurchase)
		assert.Nil(t, out.BasketSnapshot)
	})

	t.Run("DuplicateIsConflict", func(t *testing.T) {
		repo := newFakePendingDepositRepo()
		flow := NewPendingDepositFlow(repo, nil)

		_, err := flow.Register(ctx, validPurchaseRequest("dup"), nil)
		require.NoError(t, err)
		_, err = flow.Register(ctx, validPurchaseRequest("dup"), nil)
		assert.Equal(t, "PENDING_DEPOSIT_EXISTS", BusinessErrorCode(err))
		assert.True(t, IsPendingDepositExists(err))
	})

	t.Run("PurchaseRequiresBasket", func(t *testing.T) {
		flow := NewPendingDepositFlow(newFakePendingDepositRepo(), nil)

		req := validPurchaseRequest("nb")
		req.BasketSnapshot = nil
		_, err := flow.Register(ctx, req, nil)
		assert.ErrorIs(t, err, ErrBasketMissing)
	})

	t.Run("RejectsBadAmounts", func(t *testing.T) {
		flow := NewPendingDepositFlow(newFakePendingDepositRepo(), nil)

		for _, mutate := range []func(*dto.CreatePendingDepositRequest){
			func(r *dto.CreatePendingDepositRequest) { r.TargetFiatAmount = "abc" },
			func(r *dto.CreatePendingDepositRequest) { r.TargetFiatAmount = "0" },
			func(r *dto.CreatePendingDepositRequest) { r.ExpectedCryptoAmount = "-1" },
		} {
			req := validPurchaseRequest("bad")
			mutate(req)
			_, err := flow.Register(ctx, req, nil)
			assert.Equal(t, "PENDING_DEPOSIT_VALIDATION_FAILED", BusinessErrorCode(err))
		}
	})

	t.Run("SaveFailure", func(t *testing.T) {
		repo := newFakePendingDepositRepo()
		repo.saveErr = errors.New("db down")
		flow := NewPendingDepositFlow(repo, nil)

		_, err := flow.Register(ctx, validPurchaseRequest("sf"), nil)
		assert.Equal(t, "PENDING_DEPOSIT_SAVE_FAILED", BusinessErrorCode(err))
	})
}

func TestPendingDepositFlow_Get(t *testing.T) {
	repo := newFakePendingDepositRepo()
	flow := NewPendingDepositFlow(repo, nil)
	_, err := flow.Register(context.Background(), validPurchaseRequest("g1"), nil)
	require.NoError(t, err)

	out, err := flow.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", out.PaymentID)

	_, err = flow.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPendingDepositNotFound)
}

func TestRepositoryPendingDepositStore(t *testing.T) {
	repo := newFakePendingDepositRepo()
	store := NewRepositoryPendingDepositStore(repo, nil)
	require.NoError(t, repo.Save(context.Background(), purchaseDeposit("s1", "btc", "0.01", "100.00")))

	d, err := store.Lookup(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, d)

	require.NoError(t, store.Remove(context.Background(), "s1", RemovalPurchaseSuccess))
	// removing twice is not an error
	require.NoError(t, store.Remove(context.Background(), "s1", RemovalPurchaseSuccess))

	d, err = store.Lookup(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, d)
}
