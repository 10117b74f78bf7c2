package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PendingDepositStore reads and removes outstanding payment intents
type PendingDepositStore interface {
	// Lookup returns nil, nil when no record exists
	Lookup(ctx context.Context, paymentID string) (*models.PendingDeposit, error)
	// Remove is idempotent
	Remove(ctx context.Context, paymentID, reason string) error
}

// CreditRequest identifies a balance credit so it can be applied at most once
type CreditRequest struct {
	PaymentID string
	Kind      models.CreditKind
	Memo      string
}

// BalanceCreditor increments a user's fiat balance
type BalanceCreditor interface {
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, req CreditRequest) error
}

// PurchaseFinalizer delivers the items of a paid basket
type PurchaseFinalizer interface {
	FinalizePurchase(ctx context.Context, req dto.FinalizePurchaseRequest) error
}

// ReservationReleaser returns reserved items of a basket to stock. Idempotent.
type ReservationReleaser interface {
	ReleaseReservations(ctx context.Context, basket json.RawMessage) error
}

// UserNotifier sends a message to a user. Best effort.
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID int64, message string) error
}

// OperatorNotifier alerts the operator. Best effort.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, message string) error
}

// ReviewQueue persists manual-review entries
type ReviewQueue interface {
	HasOpenBlocking(ctx context.Context, paymentID string) (bool, error)
	Save(ctx context.Context, review *models.SettlementReview) error
}

// SettlementAuditTrail persists one row per processed notification
type SettlementAuditTrail interface {
	Save(ctx context.Context, entry *models.SettlementLog) error
}

// awaitCall runs fn on its own goroutine and gives up when timeout elapses
// or ctx is done. A call that returns after the deadline is treated as failed.
func awaitCall(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("collaborator panicked: %v", r)
			}
		}()
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		if cerr := callCtx.Err(); cerr != nil && (err == nil || errors.Is(err, cerr)) {
			return fmt.Errorf("%w after %s", ErrCollaboratorTimeout, timeout)
		}
		return err
	case <-callCtx.Done():
		return fmt.Errorf("%w after %s: %v", ErrCollaboratorTimeout, timeout, callCtx.Err())
	}
}

// RepositoryPendingDepositStore adapts the pending deposit repository
type RepositoryPendingDepositStore struct {
	repo   repository.PendingDepositRepository
	logger *zap.Logger
}

func NewRepositoryPendingDepositStore(repo repository.PendingDepositRepository, logger *zap.Logger) *RepositoryPendingDepositStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepositoryPendingDepositStore{repo: repo, logger: logger}
}

func (s *RepositoryPendingDepositStore) Lookup(ctx context.Context, paymentID string) (*models.PendingDeposit, error) {
	return s.repo.ByPaymentID(ctx, paymentID)
}

func (s *RepositoryPendingDepositStore) Remove(ctx context.Context, paymentID, reason string) error {
	deleted, err := s.repo.DeleteByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}
	s.logger.Info("pending deposit removed",
		zap.String("payment_id", paymentID),
		zap.String("reason", reason),
		zap.Bool("existed", deleted),
	)
	return nil
}

// LedgerBalanceCreditor adapts the balance repository
type LedgerBalanceCreditor struct {
	repo     repository.BalanceRepository
	currency string
	logger   *zap.Logger
}

func NewLedgerBalanceCreditor(repo repository.BalanceRepository, currency string, logger *zap.Logger) *LedgerBalanceCreditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerBalanceCreditor{repo: repo, currency: currency, logger: logger}
}

func (c *LedgerBalanceCreditor) Credit(ctx context.Context, userID int64, amount decimal.Decimal, req CreditRequest) error {
	applied, err := c.repo.Credit(ctx, &models.BalanceCredit{
		UserID:    userID,
		PaymentID: req.PaymentID,
		Kind:      req.Kind,
		Amount:    amount,
		Currency:  c.currency,
		Memo:      req.Memo,
	})
	if err != nil {
		return err
	}
	if !applied {
		c.logger.Warn("balance credit already applied",
			zap.String("payment_id", req.PaymentID),
			zap.String("kind", string(req.Kind)),
			zap.Int64("user_id", userID),
		)
	}
	return nil
}
