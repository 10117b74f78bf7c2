package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/ipn-settlement/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PaymentLocker serializes settlement of a single payment id.
// The returned release func must be called exactly once.
type PaymentLocker interface {
	Acquire(ctx context.Context, paymentID string) (release func(), err error)
}

type paymentLatch struct {
	ch   chan struct{}
	refs int
}

// PaymentLocks is a keyed in-process lock. When a redis client is set it also
// holds ipn:lock:{payment_id} so replicas behind a load balancer serialize too.
type PaymentLocks struct {
	mu      sync.Mutex
	latches map[string]*paymentLatch

	rc           *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
}

// NewPaymentLocks creates a payment locker. rc may be nil.
func NewPaymentLocks(rc *redis.Client, ttl time.Duration) *PaymentLocks {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &PaymentLocks{
		latches:      make(map[string]*paymentLatch),
		rc:           rc,
		ttl:          ttl,
		pollInterval: 100 * time.Millisecond,
	}
}

// compare-and-delete so an expired holder cannot release a newer one
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *PaymentLocks) Acquire(ctx context.Context, paymentID string) (func(), error) {
	if err := l.acquireLocal(ctx, paymentID); err != nil {
		return nil, err
	}
	if l.rc == nil {
		return func() { l.releaseLocal(paymentID) }, nil
	}

	key := utils.PaymentLockKeyPrefix + paymentID
	token := uuid.NewString()
	if err := l.acquireRemote(ctx, key, token); err != nil {
		l.releaseLocal(paymentID)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseLockScript.Run(rctx, l.rc, []string{key}, token).Err()
			l.releaseLocal(paymentID)
		})
	}, nil
}

func (l *PaymentLocks) acquireLocal(ctx context.Context, paymentID string) error {
	l.mu.Lock()
	latch, ok := l.latches[paymentID]
	if !ok {
		latch = &paymentLatch{ch: make(chan struct{}, 1)}
		l.latches[paymentID] = latch
	}
	latch.refs++
	l.mu.Unlock()

	select {
	case latch.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(paymentID, latch)
		return fmt.Errorf("%w: %s: %v", ErrLockTimeout, paymentID, ctx.Err())
	}
}

func (l *PaymentLocks) releaseLocal(paymentID string) {
	l.mu.Lock()
	latch, ok := l.latches[paymentID]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-latch.ch
	l.unref(paymentID, latch)
}

func (l *PaymentLocks) unref(paymentID string, latch *paymentLatch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	latch.refs--
	if latch.refs == 0 {
		delete(l.latches, paymentID)
	}
}

func (l *PaymentLocks) acquireRemote(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to acquire payment lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		}
	}
}

// lockedCount is the number of payment ids with a live latch
func (l *PaymentLocks) lockedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.latches)
}
