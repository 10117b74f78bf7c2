package businessflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/amirphl/ipn-settlement/models"
	"github.com/shopspring/decimal"
)

// sleepCtx blocks for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type removal struct {
	PaymentID string
	Reason    string
}

type fakeStore struct {
	mu        sync.Mutex
	deposits  map[string]*models.PendingDeposit
	removals  []removal
	lookupErr error
	removeErr error
}

func newFakeStore(deposits ...*models.PendingDeposit) *fakeStore {
	s := &fakeStore{deposits: make(map[string]*models.PendingDeposit)}
	for _, d := range deposits {
		s.deposits[d.PaymentID] = d
	}
	return s
}

func (s *fakeStore) Lookup(ctx context.Context, paymentID string) (*models.PendingDeposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	d, ok := s.deposits[paymentID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *fakeStore) Remove(ctx context.Context, paymentID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.deposits, paymentID)
	s.removals = append(s.removals, removal{PaymentID: paymentID, Reason: reason})
	return nil
}

func (s *fakeStore) has(paymentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.deposits[paymentID]
	return ok
}

func (s *fakeStore) removalReasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.removals))
	for _, r := range s.removals {
		out = append(out, r.Reason)
	}
	return out
}

type creditCall struct {
	UserID int64
	Amount decimal.Decimal
	Req    CreditRequest
}

type fakeCreditor struct {
	mu      sync.Mutex
	calls   []creditCall
	applied map[string]bool
	err     error
	delay   time.Duration
}

func newFakeCreditor() *fakeCreditor {
	return &fakeCreditor{applied: make(map[string]bool)}
}

func (c *fakeCreditor) Credit(ctx context.Context, userID int64, amount decimal.Decimal, req CreditRequest) error {
	if err := sleepCtx(ctx, c.delay); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	key := req.PaymentID + "|" + string(req.Kind)
	if c.applied[key] {
		return nil
	}
	c.applied[key] = true
	c.calls = append(c.calls, creditCall{UserID: userID, Amount: amount, Req: req})
	return nil
}

func (c *fakeCreditor) credits() []creditCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]creditCall(nil), c.calls...)
}

type fakeFinalizer struct {
	mu    sync.Mutex
	calls []dto.FinalizePurchaseRequest
	err   error
	delay time.Duration
}

func (f *fakeFinalizer) FinalizePurchase(ctx context.Context, req dto.FinalizePurchaseRequest) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	err := f.err
	f.mu.Unlock()
	if err := sleepCtx(ctx, f.delay); err != nil {
		return err
	}
	return err
}

func (f *fakeFinalizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeReleaser struct {
	mu      sync.Mutex
	baskets []json.RawMessage
	err     error
}

func (r *fakeReleaser) ReleaseReservations(ctx context.Context, basket json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baskets = append(r.baskets, basket)
	return r.err
}

func (r *fakeReleaser) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.baskets)
}

type fakeReviewQueue struct {
	mu      sync.Mutex
	reviews []*models.SettlementReview
	saveErr error
	delay   time.Duration
}

func (q *fakeReviewQueue) HasOpenBlocking(ctx context.Context, paymentID string) (bool, error) {
	if err := sleepCtx(ctx, q.delay); err != nil {
		return false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.reviews {
		if r.PaymentID == paymentID && r.IsOpen() && r.Stage.Blocking() {
			return true, nil
		}
	}
	return false, nil
}

func (q *fakeReviewQueue) Save(ctx context.Context, review *models.SettlementReview) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.saveErr != nil {
		return q.saveErr
	}
	q.reviews = append(q.reviews, review)
	return nil
}

func (q *fakeReviewQueue) stages() []models.SettlementStage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.SettlementStage, 0, len(q.reviews))
	for _, r := range q.reviews {
		out = append(out, r.Stage)
	}
	return out
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []*models.SettlementLog
}

func (a *fakeAudit) Save(ctx context.Context, entry *models.SettlementLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAudit) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

type userMessage struct {
	UserID  int64
	Message string
}

type recordingMessenger struct {
	mu        sync.Mutex
	users     []userMessage
	operators []string
	err       error
	delay     time.Duration
}

func (m *recordingMessenger) NotifyUser(ctx context.Context, userID int64, message string) error {
	if err := sleepCtx(ctx, m.delay); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, userMessage{UserID: userID, Message: message})
	return m.err
}

func (m *recordingMessenger) NotifyOperator(ctx context.Context, message string) error {
	if err := sleepCtx(ctx, m.delay); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operators = append(m.operators, message)
	return m.err
}

func (m *recordingMessenger) userMessages() []userMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]userMessage(nil), m.users...)
}

func (m *recordingMessenger) operatorMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.operators...)
}

// fakeEngine returns a canned result, optionally after a delay
type fakeEngine struct {
	mu      sync.Mutex
	settled []*PaymentNotification
	expired []string
	result  *SettlementResult
	err     error
	delay   time.Duration
}

func (e *fakeEngine) Settle(ctx context.Context, n *PaymentNotification) (*SettlementResult, error) {
	e.mu.Lock()
	e.settled = append(e.settled, n)
	e.mu.Unlock()
	if err := sleepCtx(ctx, e.delay); err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		r := *e.result
		r.PaymentID = n.PaymentID
		return &r, nil
	}
	return &SettlementResult{PaymentID: n.PaymentID, State: SettlementStateSettled, Outcome: OutcomeFinalizePurchase}, nil
}

func (e *fakeEngine) Expire(ctx context.Context, paymentID string) (*SettlementResult, error) {
	e.mu.Lock()
	e.expired = append(e.expired, paymentID)
	e.mu.Unlock()
	return &SettlementResult{PaymentID: paymentID, State: SettlementStateCancelled, Outcome: OutcomeCancel}, nil
}

func (e *fakeEngine) settledCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.settled)
}

func purchaseDeposit(paymentID, currency, expected, target string) *models.PendingDeposit {
	return &models.PendingDeposit{
		PaymentID:            paymentID,
		UserID:               42,
		Currency:             currency,
		TargetFiatAmount:     decimal.RequireFromString(target),
		ExpectedCryptoAmount: decimal.RequireFromString(expected),
		IsPurchase:           true,
		BasketSnapshot:       json.RawMessage(`{"items":[{"sku":"A1","qty":1}]}`),
		CreatedAt:            time.Now().UTC(),
	}
}

func refillDeposit(paymentID, currency, expected, target string) *models.PendingDeposit {
	return &models.PendingDeposit{
		PaymentID:            paymentID,
		UserID:               7,
		Currency:             currency,
		TargetFiatAmount:     decimal.RequireFromString(target),
		ExpectedCryptoAmount: decimal.RequireFromString(expected),
		CreatedAt:            time.Now().UTC(),
	}
}
