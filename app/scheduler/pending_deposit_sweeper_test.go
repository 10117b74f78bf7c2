package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	deposits []*models.PendingDeposit
	err      error
	cutoff   time.Time
	limit    int
}

func (l *fakeLister) ListStaleWithoutOpenReview(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingDeposit, error) {
	l.cutoff, l.limit = cutoff, limit
	if l.err != nil {
		return nil, l.err
	}
	var out []*models.PendingDeposit
	for _, d := range l.deposits {
		if d.CreatedAt.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

type expiringEngine struct {
	mu      sync.Mutex
	expired []string
	failFor string
}

func (e *expiringEngine) Settle(ctx context.Context, n *businessflow.PaymentNotification) (*businessflow.SettlementResult, error) {
	return nil, errors.New("not used")
}

func (e *expiringEngine) Expire(ctx context.Context, paymentID string) (*businessflow.SettlementResult, error) {
	if paymentID == e.failFor {
		return nil, errors.New("store unavailable")
	}
	e.mu.Lock()
	e.expired = append(e.expired, paymentID)
	e.mu.Unlock()
	return &businessflow.SettlementResult{PaymentID: paymentID, State: businessflow.SettlementStateCancelled}, nil
}

func (e *expiringEngine) expiredIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]string(nil), e.expired...)
	sort.Strings(out)
	return out
}

func newExecutor(t *testing.T) *businessflow.SettlementExecutor {
	ex := businessflow.NewSettlementExecutor(2, 16, nil)
	t.Cleanup(func() { _ = ex.Shutdown(context.Background()) })
	return ex
}

func TestPendingDepositSweeper_RunOnce(t *testing.T) {
	now := time.Now().UTC()
	lister := &fakeLister{deposits: []*models.PendingDeposit{
		{PaymentID: "old-1", CreatedAt: now.Add(-48 * time.Hour)},
		{PaymentID: "old-2", CreatedAt: now.Add(-25 * time.Hour)},
		{PaymentID: "fresh", CreatedAt: now.Add(-time.Hour)},
	}}
	engine := &expiringEngine{}
	sweeper := NewPendingDepositSweeper(lister, engine, newExecutor(t), 24*time.Hour, time.Minute, 50, nil)

	cancelled := sweeper.RunOnce(context.Background())
	assert.Equal(t, 2, cancelled)
	assert.Equal(t, []string{"old-1", "old-2"}, engine.expiredIDs())
	assert.Equal(t, 50, lister.limit)
	assert.WithinDuration(t, now.Add(-24*time.Hour), lister.cutoff, 5*time.Second)
}

func TestPendingDepositSweeper_Failures(t *testing.T) {
	now := time.Now().UTC()

	t.Run("ListError", func(t *testing.T) {
		engine := &expiringEngine{}
		sweeper := NewPendingDepositSweeper(&fakeLister{err: errors.New("db down")}, engine, newExecutor(t), time.Hour, time.Minute, 10, nil)
		assert.Equal(t, 0, sweeper.RunOnce(context.Background()))
		assert.Empty(t, engine.expiredIDs())
	})

	t.Run("OneExpiryFails", func(t *testing.T) {
		lister := &fakeLister{deposits: []*models.PendingDeposit{
			{PaymentID: "a", CreatedAt: now.Add(-2 * time.Hour)},
			{PaymentID: "b", CreatedAt: now.Add(-2 * time.Hour)},
		}}
		engine := &expiringEngine{failFor: "a"}
		sweeper := NewPendingDepositSweeper(lister, engine, newExecutor(t), time.Hour, time.Minute, 10, nil)
		assert.Equal(t, 1, sweeper.RunOnce(context.Background()))
		assert.Equal(t, []string{"b"}, engine.expiredIDs())
	})

	t.Run("ExecutorClosed", func(t *testing.T) {
		lister := &fakeLister{deposits: []*models.PendingDeposit{
			{PaymentID: "a", CreatedAt: now.Add(-2 * time.Hour)},
		}}
		ex := newExecutor(t)
		require.NoError(t, ex.Shutdown(context.Background()))
		engine := &expiringEngine{}
		sweeper := NewPendingDepositSweeper(lister, engine, ex, time.Hour, time.Minute, 10, nil)
		assert.Equal(t, 0, sweeper.RunOnce(context.Background()))
		assert.Empty(t, engine.expiredIDs())
	})
}

func TestPendingDepositSweeper_StartStop(t *testing.T) {
	lister := &fakeLister{deposits: []*models.PendingDeposit{
		{PaymentID: "old", CreatedAt: time.Now().UTC().Add(-2 * time.Hour)},
	}}
	engine := &expiringEngine{}
	sweeper := NewPendingDepositSweeper(lister, engine, newExecutor(t), time.Hour, time.Hour, 10, nil)

	stop := sweeper.Start(context.Background())
	require.Eventually(t, func() bool { return len(engine.expiredIDs()) == 1 }, 2*time.Second, 10*time.Millisecond)
	stop()
}
