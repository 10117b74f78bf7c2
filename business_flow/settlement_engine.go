package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/app/services"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/amirphl/ipn-settlement/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlementState is the per-payment lifecycle reported for a notification
type SettlementState string

const (
	SettlementStatePending      SettlementState = "pending"
	SettlementStateSettling     SettlementState = "settling"
	SettlementStateSettled      SettlementState = "settled"
	SettlementStateManualReview SettlementState = "manual_review"
	SettlementStateCancelled    SettlementState = "cancelled"
	SettlementStateIgnored      SettlementState = "ignored"
	SettlementStateNotFound     SettlementState = "not_found"
)

// Removal reasons recorded when a pending deposit is deleted
const (
	RemovalPurchaseSuccess     = "purchase_success"
	RemovalUnderpaymentSalvage = "underpayment_salvage"
	RemovalZeroCredit          = "zero_credit"
	RemovalRefillSuccess       = "refill_success"
	RemovalFailure             = "failure"
	RemovalExpiry              = "expiry"
	RemovalManualResolution    = "manual_resolution"
)

const reasonOpenReview = "open_review"

// PaymentNotification is a validated gateway notification
type PaymentNotification struct {
	PaymentID     string
	PaymentStatus string
	PayCurrency   string
	ActuallyPaid  decimal.Decimal
	// Raw is kept on review entries so an operator can replay it
	Raw       json.RawMessage
	RequestID string
}

// SettlementResult describes what one Settle or Expire call did
type SettlementResult struct {
	PaymentID    string
	State        SettlementState
	Outcome      OutcomeKind
	Reason       string
	PaidFiat     decimal.Decimal
	Credited     decimal.Decimal
	Delivered    bool
	Released     bool
	Removed      bool
	ReviewStages []models.SettlementStage
}

// SettlementEngine applies exactly one outcome per payment
type SettlementEngine interface {
	Settle(ctx context.Context, n *PaymentNotification) (*SettlementResult, error)
	Expire(ctx context.Context, paymentID string) (*SettlementResult, error)
}

// SettlementTimeouts bounds every collaborator call
type SettlementTimeouts struct {
	Store    time.Duration
	Finalize time.Duration
	Credit   time.Duration
	Release  time.Duration
	Lock     time.Duration
}

// DefaultSettlementTimeouts returns the production defaults
func DefaultSettlementTimeouts() SettlementTimeouts {
	return SettlementTimeouts{
		Store:    10 * time.Second,
		Finalize: 60 * time.Second,
		Credit:   30 * time.Second,
		Release:  30 * time.Second,
		Lock:     90 * time.Second,
	}
}

// SettlementCollaborators groups the side-effecting dependencies of the engine
type SettlementCollaborators struct {
	Store     PendingDepositStore
	Creditor  BalanceCreditor
	Finalizer PurchaseFinalizer
	Releaser  ReservationReleaser
	Reviews   ReviewQueue
	Audit     SettlementAuditTrail
	Events    services.SettlementEventPublisher
}

// SettlementEngineImpl implements SettlementEngine
type SettlementEngineImpl struct {
	c            SettlementCollaborators
	notifier     *SettlementNotifier
	locker       PaymentLocker
	timeouts     SettlementTimeouts
	fiatCurrency string
	logger       *zap.Logger
}

func NewSettlementEngine(
	collaborators SettlementCollaborators,
	notifier *SettlementNotifier,
	locker PaymentLocker,
	timeouts SettlementTimeouts,
	fiatCurrency string,
	logger *zap.Logger,
) SettlementEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collaborators.Events == nil {
		collaborators.Events = services.NewNoopSettlementEventPublisher()
	}
	if fiatCurrency == "" {
		fiatCurrency = utils.DefaultFiatCurrency
	}
	if notifier == nil {
		notifier = NewSettlementNotifier(nil, nil, 0, logger)
	}
	return &SettlementEngineImpl{
		c:            collaborators,
		notifier:     notifier,
		locker:       locker,
		timeouts:     timeouts,
		fiatCurrency: fiatCurrency,
		logger:       logger,
	}
}

// settlement carries the state of one run through the engine
type settlement struct {
	n       *PaymentNotification
	deposit *models.PendingDeposit
	outcome SettlementOutcome
	result  *SettlementResult
}

func (e *SettlementEngineImpl) Settle(ctx context.Context, n *PaymentNotification) (*SettlementResult, error) {
	if n == nil || strings.TrimSpace(n.PaymentID) == "" {
		return nil, ErrInvalidPayload
	}
	return e.withPaymentLock(ctx, n.PaymentID, func(ctx context.Context) (*SettlementResult, error) {
		return e.settleLocked(ctx, n, func(d *models.PendingDeposit) SettlementOutcome {
			return Classify(n.PaymentStatus, n.PayCurrency, n.ActuallyPaid, d)
		})
	})
}

func (e *SettlementEngineImpl) Expire(ctx context.Context, paymentID string) (*SettlementResult, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, ErrInvalidPayload
	}
	n := &PaymentNotification{PaymentID: paymentID, PaymentStatus: GatewayStatusExpired}
	return e.withPaymentLock(ctx, paymentID, func(ctx context.Context) (*SettlementResult, error) {
		return e.settleLocked(ctx, n, func(*models.PendingDeposit) SettlementOutcome {
			return cancelOutcome(GatewayStatusExpired)
		})
	})
}

func (e *SettlementEngineImpl) withPaymentLock(ctx context.Context, paymentID string, fn func(context.Context) (*SettlementResult, error)) (*SettlementResult, error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.timeouts.Lock)
	release, err := e.locker.Acquire(lockCtx, paymentID)
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()
	return fn(ctx)
}

func (e *SettlementEngineImpl) settleLocked(ctx context.Context, n *PaymentNotification, classify func(*models.PendingDeposit) SettlementOutcome) (*SettlementResult, error) {
	var deposit *models.PendingDeposit
	err := e.call(ctx, "lookup_pending", e.timeouts.Store, func(c context.Context) error {
		var lerr error
		deposit, lerr = e.c.Store.Lookup(c, n.PaymentID)
		return lerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending deposit %s: %w", n.PaymentID, err)
	}

	s := &settlement{n: n, deposit: deposit, result: &SettlementResult{PaymentID: n.PaymentID}}

	if deposit == nil {
		e.logger.Warn("pending deposit not found",
			zap.String("payment_id", n.PaymentID),
			zap.String("status", n.PaymentStatus),
		)
		s.result.State = SettlementStateNotFound
		s.result.Outcome = OutcomeIgnore
		e.record(ctx, s)
		return s.result, nil
	}

	var blocked bool
	err = e.call(ctx, "check_reviews", e.timeouts.Store, func(c context.Context) error {
		var rerr error
		blocked, rerr = e.c.Reviews.HasOpenBlocking(c, n.PaymentID)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check manual reviews for %s: %w", n.PaymentID, err)
	}
	if blocked {
		e.logger.Warn("payment awaits manual review, skipping",
			zap.String("payment_id", n.PaymentID),
			zap.String("status", n.PaymentStatus),
		)
		s.result.State = SettlementStateManualReview
		s.result.Outcome = OutcomeIgnore
		s.result.Reason = reasonOpenReview
		e.record(ctx, s)
		return s.result, nil
	}

	s.outcome = classify(deposit)
	s.result.Outcome = s.outcome.Kind
	s.result.Reason = s.outcome.Reason
	s.result.PaidFiat = s.outcome.PaidFiat

	e.logger.Info("settling payment",
		zap.String("payment_id", n.PaymentID),
		zap.String("status", n.PaymentStatus),
		zap.String("kind", deposit.Kind()),
		zap.Int64("user_id", deposit.UserID),
		zap.String("outcome", string(s.outcome.Kind)),
		zap.String("paid_fiat", utils.FormatFiat(s.outcome.PaidFiat)),
		zap.String("target_fiat", utils.FormatFiat(deposit.TargetFiatAmount)),
	)

	switch s.outcome.Kind {
	case OutcomeIgnore:
		s.result.State = SettlementStateIgnored
	case OutcomeFinalizePurchase:
		e.applyFinalize(ctx, s)
	case OutcomeCreditSalvage:
		e.applySalvage(ctx, s)
	case OutcomeCreditRefill:
		e.applyRefill(ctx, s)
	case OutcomeCancel:
		e.applyCancel(ctx, s)
	}

	e.record(ctx, s)
	return s.result, nil
}

func (e *SettlementEngineImpl) applyFinalize(ctx context.Context, s *settlement) {
	d := s.deposit
	err := e.call(ctx, "finalize_purchase", e.timeouts.Finalize, func(c context.Context) error {
		if len(d.BasketSnapshot) == 0 {
			return ErrBasketMissing
		}
		return e.c.Finalizer.FinalizePurchase(c, dto.FinalizePurchaseRequest{
			UserID:       d.UserID,
			PaymentID:    d.PaymentID,
			Basket:       d.BasketSnapshot,
			DiscountCode: d.DiscountCode(),
		})
	})
	if err != nil {
		e.openReview(ctx, s, models.SettlementStageFinalizePurchase, d.TargetFiatAmount, err,
			fmt.Sprintf("⚠️ CRITICAL: Crypto purchase %s paid by user %d but FAILED TO FINALIZE. Pending deposit kept. Error: %v",
				d.PaymentID, d.UserID, err))
		s.result.State = SettlementStateManualReview
		return
	}
	s.result.Delivered = true
	s.result.State = SettlementStateSettled

	over := s.outcome.Overpayment
	if over.IsPositive() {
		err := e.credit(ctx, d, over, models.CreditKindOverpayment, fmt.Sprintf("Overpayment on purchase %s", d.PaymentID))
		if err != nil {
			e.openReview(ctx, s, models.SettlementStageCreditOverpayment, over, err,
				fmt.Sprintf("⚠️ CRITICAL: Failed to credit overpayment for purchase %s user %d. Amount: %s %s. MANUAL CHECK NEEDED!",
					d.PaymentID, d.UserID, utils.FormatFiat(over), e.fiatCurrency))
		} else {
			s.result.Credited = over
		}
	}

	e.removeAfterApply(ctx, s, RemovalPurchaseSuccess)

	msg := fmt.Sprintf("✅ Payment received for order %s. Your items have been delivered.", d.PaymentID)
	if s.result.Credited.IsPositive() {
		msg += fmt.Sprintf("\nAn overpayment of %s %s has been credited to your balance.",
			utils.FormatFiat(s.result.Credited), e.fiatCurrency)
	}
	e.notifyUser(d.UserID, msg)
}

func (e *SettlementEngineImpl) applySalvage(ctx context.Context, s *settlement) {
	d := s.deposit
	amount := s.outcome.Amount
	if amount.IsPositive() {
		err := e.credit(ctx, d, amount, models.CreditKindUnderpaymentSalvage, fmt.Sprintf("Underpayment on purchase %s", d.PaymentID))
		if err != nil {
			e.openReview(ctx, s, models.SettlementStageCreditSalvage, amount, err,
				fmt.Sprintf("⚠️ CRITICAL: Failed to credit balance for UNDERPAYMENT %s user %d. Amount: %s %s. MANUAL CHECK NEEDED!",
					d.PaymentID, d.UserID, utils.FormatFiat(amount), e.fiatCurrency))
			s.result.State = SettlementStateManualReview
			return
		}
		s.result.Credited = amount
	}
	s.result.State = SettlementStateSettled

	e.notifyUser(d.UserID, fmt.Sprintf(
		"⚠️ Purchase Failed: Underpayment detected. Amount needed was %s %s. Your balance has been credited with the received value (%s %s). Your items were not delivered.",
		utils.FormatFiat(d.TargetFiatAmount), e.fiatCurrency, utils.FormatFiat(amount), e.fiatCurrency))

	e.release(ctx, s)
	e.removeAfterApply(ctx, s, RemovalUnderpaymentSalvage)
}

func (e *SettlementEngineImpl) applyRefill(ctx context.Context, s *settlement) {
	d := s.deposit
	amount := s.outcome.Amount
	if !amount.IsPositive() {
		e.logger.Warn("refill credit rounds to zero, removing without credit",
			zap.String("payment_id", d.PaymentID),
			zap.Int64("user_id", d.UserID),
		)
		s.result.State = SettlementStateSettled
		e.removeAfterApply(ctx, s, RemovalZeroCredit)
		return
	}

	err := e.credit(ctx, d, amount, models.CreditKindRefill, fmt.Sprintf("Refill %s", d.PaymentID))
	if err != nil {
		e.openReview(ctx, s, models.SettlementStageCreditRefill, amount, err,
			fmt.Sprintf("⚠️ CRITICAL: Refill %s for user %d FAILED to credit %s %s. Pending deposit kept. MANUAL CHECK NEEDED!",
				d.PaymentID, d.UserID, utils.FormatFiat(amount), e.fiatCurrency))
		s.result.State = SettlementStateManualReview
		return
	}
	s.result.Credited = amount
	s.result.State = SettlementStateSettled

	e.removeAfterApply(ctx, s, RemovalRefillSuccess)
	e.notifyUser(d.UserID, fmt.Sprintf("✅ Your balance has been credited with %s %s.", utils.FormatFiat(amount), e.fiatCurrency))
}

func (e *SettlementEngineImpl) applyCancel(ctx context.Context, s *settlement) {
	d := s.deposit
	s.result.State = SettlementStateCancelled

	reason := cancelRemovalReason(s.outcome.Reason)
	err := e.call(ctx, "remove_pending", e.timeouts.Store, func(c context.Context) error {
		return e.c.Store.Remove(c, d.PaymentID, reason)
	})
	if err != nil {
		// nothing was applied, the next delivery or the sweeper retries the cancel
		e.logger.Error("failed to remove cancelled pending deposit",
			zap.String("payment_id", d.PaymentID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	} else {
		s.result.Removed = true
	}

	if d.IsPurchase {
		e.release(ctx, s)
		e.notifyUser(d.UserID, "Payment Failed/Expired. Your items are no longer reserved.")
	} else {
		e.notifyUser(d.UserID, fmt.Sprintf("Payment Status: Your payment (%s) was cancelled or expired.", d.PaymentID))
	}

	if s.outcome.IsDataIntegrityCancel() {
		e.notifier.AlertOperator(fmt.Sprintf(
			"⚠️ CRITICAL: Payment %s for user %d cancelled: %s (deposit currency %s, paid in %s, expected %s).",
			d.PaymentID, d.UserID, s.outcome.Reason, d.Currency, s.n.PayCurrency, d.ExpectedCryptoAmount.String()))
	}
}

func cancelRemovalReason(reason string) string {
	switch reason {
	case GatewayStatusFailed, GatewayStatusRefunded:
		return RemovalFailure
	case GatewayStatusExpired:
		return RemovalExpiry
	default:
		return reason
	}
}

func (e *SettlementEngineImpl) credit(ctx context.Context, d *models.PendingDeposit, amount decimal.Decimal, kind models.CreditKind, memo string) error {
	return e.call(ctx, "credit_"+string(kind), e.timeouts.Credit, func(c context.Context) error {
		return e.c.Creditor.Credit(c, d.UserID, amount, CreditRequest{PaymentID: d.PaymentID, Kind: kind, Memo: memo})
	})
}

func (e *SettlementEngineImpl) release(ctx context.Context, s *settlement) {
	d := s.deposit
	if !d.IsPurchase || len(d.BasketSnapshot) == 0 {
		return
	}
	err := e.call(ctx, "release_reservations", e.timeouts.Release, func(c context.Context) error {
		return e.c.Releaser.ReleaseReservations(c, d.BasketSnapshot)
	})
	if err != nil {
		e.openReview(ctx, s, models.SettlementStageReleaseReservations, decimal.Zero, err,
			fmt.Sprintf("⚠️ CRITICAL: Failed to release reservations for payment %s user %d. MANUAL CHECK NEEDED!", d.PaymentID, d.UserID))
		return
	}
	s.result.Released = true
}

// removeAfterApply deletes the record once money has moved. A failure leaves
// a blocking review so a redelivery cannot apply the outcome again.
func (e *SettlementEngineImpl) removeAfterApply(ctx context.Context, s *settlement, reason string) {
	d := s.deposit
	err := e.call(ctx, "remove_pending", e.timeouts.Store, func(c context.Context) error {
		return e.c.Store.Remove(c, d.PaymentID, reason)
	})
	if err != nil {
		e.openReview(ctx, s, models.SettlementStageRemovePending, s.result.Credited, err,
			fmt.Sprintf("⚠️ CRITICAL: Payment %s (user %d) was settled (%s) but its pending record could not be removed. MANUAL CHECK NEEDED!",
				d.PaymentID, d.UserID, reason))
		return
	}
	s.result.Removed = true
}

func (e *SettlementEngineImpl) openReview(ctx context.Context, s *settlement, stage models.SettlementStage, amount decimal.Decimal, cause error, alert string) {
	d := s.deposit
	s.result.ReviewStages = append(s.result.ReviewStages, stage)
	settlementManualReviewsTotal.WithLabelValues(string(stage)).Inc()

	e.logger.Error("settlement needs manual review",
		zap.String("payment_id", d.PaymentID),
		zap.Int64("user_id", d.UserID),
		zap.String("stage", string(stage)),
		zap.String("amount", utils.FormatFiat(amount)),
		zap.Error(cause),
	)

	snapshot, err := json.Marshal(d)
	if err != nil {
		snapshot = nil
	}
	review := &models.SettlementReview{
		PaymentID:       d.PaymentID,
		UserID:          d.UserID,
		Stage:           stage,
		Amount:          amount,
		ErrorMessage:    cause.Error(),
		Status:          models.SettlementReviewStatusOpen,
		DepositSnapshot: snapshot,
		Notification:    s.n.Raw,
	}
	err = e.call(ctx, "open_review", e.timeouts.Store, func(c context.Context) error {
		return e.c.Reviews.Save(c, review)
	})
	if err != nil {
		e.logger.Error("failed to persist manual review",
			zap.String("payment_id", d.PaymentID),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		alert += " (review entry could not be stored)"
	}
	e.notifier.AlertOperator(alert)
}

func (e *SettlementEngineImpl) notifyUser(userID int64, message string) {
	e.notifier.NotifyUser(userID, message)
}

func (e *SettlementEngineImpl) call(ctx context.Context, operation string, timeout time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := awaitCall(ctx, timeout, fn)
	observeCollaborator(operation, start, err)
	return err
}

// record writes the audit row, the metric and the settlement event.
// Failures here are logged only.
func (e *SettlementEngineImpl) record(ctx context.Context, s *settlement) {
	r := s.result
	settlementOutcomesTotal.WithLabelValues(string(r.Outcome), string(r.State)).Inc()

	amount := r.Credited
	if r.Outcome == OutcomeFinalizePurchase && r.Delivered {
		amount = r.PaidFiat
	}

	entry := &models.SettlementLog{
		PaymentID:     r.PaymentID,
		GatewayStatus: s.n.PaymentStatus,
		Outcome:       string(r.Outcome),
		State:         string(r.State),
		Amount:        amount,
	}
	if r.Reason != "" {
		entry.Reason = utils.ToPtr(r.Reason)
	}
	if s.n.RequestID != "" {
		entry.RequestID = utils.ToPtr(s.n.RequestID)
	}
	if e.c.Audit != nil {
		err := e.call(ctx, "audit_log", e.timeouts.Store, func(c context.Context) error {
			return e.c.Audit.Save(c, entry)
		})
		if err != nil {
			e.logger.Warn("failed to write settlement log", zap.String("payment_id", r.PaymentID), zap.Error(err))
		}
	}

	eventType := settlementEventType(r.State)
	if eventType == "" {
		return
	}
	event := &dto.SettlementEvent{
		Type:       eventType,
		PaymentID:  r.PaymentID,
		Outcome:    string(r.Outcome),
		State:      string(r.State),
		Reason:     r.Reason,
		PaidFiat:   utils.FormatFiat(r.PaidFiat),
		Credited:   utils.FormatFiat(r.Credited),
		Currency:   e.fiatCurrency,
		Delivered:  r.Delivered,
		OccurredAt: utils.UTCNow(),
	}
	if s.deposit != nil {
		event.UserID = s.deposit.UserID
	}
	for _, st := range r.ReviewStages {
		event.ReviewStages = append(event.ReviewStages, string(st))
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.c.Events.Publish(pubCtx, event); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("failed to publish settlement event",
			zap.String("payment_id", r.PaymentID),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

func settlementEventType(state SettlementState) string {
	switch state {
	case SettlementStateSettled:
		return dto.SettlementEventSettled
	case SettlementStateCancelled:
		return dto.SettlementEventCancelled
	case SettlementStateManualReview:
		return dto.SettlementEventManualReview
	}
	return ""
}
