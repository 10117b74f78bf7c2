package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/ipn-settlement/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitCall(t *testing.T) {
	t.Run("ReturnsResult", func(t *testing.T) {
		want := errors.New("boom")
		err := awaitCall(context.Background(), time.Second, func(ctx context.Context) error { return want })
		assert.ErrorIs(t, err, want)

		assert.NoError(t, awaitCall(context.Background(), time.Second, func(ctx context.Context) error { return nil }))
	})

	t.Run("ContextAwareCallReportsTimeout", func(t *testing.T) {
		err := awaitCall(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, ErrCollaboratorTimeout)
	})

	t.Run("TimesOutOnStuckCall", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)

		start := time.Now()
		err := awaitCall(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
			<-block
			return nil
		})
		assert.ErrorIs(t, err, ErrCollaboratorTimeout)
		assert.True(t, IsCollaboratorTimeout(err))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		err := awaitCall(context.Background(), time.Second, func(ctx context.Context) error { panic("oops") })
		assert.ErrorContains(t, err, "panicked")
	})
}

type fakeBalanceRepo struct {
	mu       sync.Mutex
	credits  map[string]*models.BalanceCredit
	balances map[int64]decimal.Decimal
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{
		credits:  make(map[string]*models.BalanceCredit),
		balances: make(map[int64]decimal.Decimal),
	}
}

func (r *fakeBalanceRepo) Credit(ctx context.Context, credit *models.BalanceCredit) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := credit.PaymentID + "|" + string(credit.Kind)
	if _, ok := r.credits[key]; ok {
		return false, nil
	}
	r.credits[key] = credit
	r.balances[credit.UserID] = r.balances[credit.UserID].Add(credit.Amount)
	return true, nil
}

func (r *fakeBalanceRepo) BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID], nil
}

func (r *fakeBalanceRepo) CreditsByFilter(ctx context.Context, filter models.BalanceCreditFilter, orderBy string, limit, offset int) ([]*models.BalanceCredit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.BalanceCredit
	for _, c := range r.credits {
		out = append(out, c)
	}
	return out, nil
}

func TestLedgerBalanceCreditor(t *testing.T) {
	repo := newFakeBalanceRepo()
	creditor := NewLedgerBalanceCreditor(repo, "EUR", nil)
	ctx := context.Background()
	req := CreditRequest{PaymentID: "p1", Kind: models.CreditKindRefill, Memo: "Refill p1"}

	require.NoError(t, creditor.Credit(ctx, 7, decimal.RequireFromString("25.00"), req))
	// a repeated credit for the same payment and kind is a no-op success
	require.NoError(t, creditor.Credit(ctx, 7, decimal.RequireFromString("25.00"), req))

	bal, err := repo.BalanceOf(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "25", bal.String())

	credits, err := repo.CreditsByFilter(ctx, models.BalanceCreditFilter{}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, "EUR", credits[0].Currency)
	assert.Equal(t, "Refill p1", credits[0].Memo)
}
