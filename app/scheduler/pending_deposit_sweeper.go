// Package scheduler runs the background jobs of the settlement service
package scheduler

import (
	"context"
	"time"

	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
	"go.uber.org/zap"
)

// StaleDepositLister finds pending deposits that no notification settled
type StaleDepositLister interface {
	ListStaleWithoutOpenReview(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingDeposit, error)
}

// PendingDepositSweeper expires payment intents older than the pending TTL.
// Deposits with an open review are left to the operator.
type PendingDepositSweeper struct {
	deposits  StaleDepositLister
	engine    businessflow.SettlementEngine
	submitter businessflow.SettlementSubmitter
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewPendingDepositSweeper(
	deposits StaleDepositLister,
	engine businessflow.SettlementEngine,
	submitter businessflow.SettlementSubmitter,
	ttl, interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *PendingDepositSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingDepositSweeper{
		deposits:  deposits,
		engine:    engine,
		submitter: submitter,
		ttl:       ttl,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.Named("pending_deposit_sweeper"),
	}
}

// Start launches the sweep loop in a background goroutine and returns a stop
// function that waits for the running sweep to finish.
func (s *PendingDepositSweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// RunOnce expires one batch of stale deposits and returns how many were cancelled
func (s *PendingDepositSweeper) RunOnce(ctx context.Context) int {
	cutoff := utils.UTCNow().Add(-s.ttl)
	stale, err := s.deposits.ListStaleWithoutOpenReview(ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list stale pending deposits", zap.Error(err))
		return 0
	}
	if len(stale) == 0 {
		return 0
	}

	futures := make(map[string]*businessflow.Future, len(stale))
	for _, d := range stale {
		paymentID := d.PaymentID
		future, err := s.submitter.Submit(ctx, "expire:"+paymentID, func(taskCtx context.Context) (*businessflow.SettlementResult, error) {
			return s.engine.Expire(taskCtx, paymentID)
		})
		if err != nil {
			s.logger.Warn("could not schedule expiry", zap.String("payment_id", paymentID), zap.Error(err))
			if businessflow.IsExecutorUnavailable(err) {
				break
			}
			continue
		}
		futures[paymentID] = future
	}

	cancelled := 0
	for paymentID, future := range futures {
		result, err := future.Wait(ctx)
		if err != nil {
			s.logger.Error("expiry failed", zap.String("payment_id", paymentID), zap.Error(err))
			continue
		}
		if result != nil && result.State == businessflow.SettlementStateCancelled {
			cancelled++
		}
	}

	s.logger.Info("stale pending deposits swept",
		zap.Int("found", len(stale)),
		zap.Int("scheduled", len(futures)),
		zap.Int("cancelled", cancelled),
		zap.Time("cutoff", cutoff),
	)
	return cancelled
}
