package businessflow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SettlementNotifier dispatches user messages and operator alerts in the
// background so a slow messenger never delays settlement.
type SettlementNotifier struct {
	users     UserNotifier
	operators OperatorNotifier
	timeout   time.Duration
	logger    *zap.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewSettlementNotifier(users UserNotifier, operators OperatorNotifier, timeout time.Duration, logger *zap.Logger) *SettlementNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementNotifier{users: users, operators: operators, timeout: timeout, logger: logger}
}

// NotifyUser queues a message for a user
func (n *SettlementNotifier) NotifyUser(userID int64, message string) {
	if n.users == nil {
		return
	}
	n.dispatch("user", func(ctx context.Context) error {
		return n.users.NotifyUser(ctx, userID, message)
	}, zap.Int64("user_id", userID))
}

// AlertOperator queues an operator alert
func (n *SettlementNotifier) AlertOperator(message string) {
	if n.operators == nil {
		n.logger.Warn("operator alert dropped, no operator notifier", zap.String("message", message))
		return
	}
	n.dispatch("operator", func(ctx context.Context) error {
		return n.operators.NotifyOperator(ctx, message)
	})
}

func (n *SettlementNotifier) dispatch(target string, send func(context.Context) error, fields ...zap.Field) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Warn("notification dropped after shutdown", append(fields, zap.String("target", target))...)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		err := awaitCall(context.Background(), n.timeout, send)
		if err != nil {
			n.logger.Warn("notification failed", append(fields, zap.String("target", target), zap.Error(err))...)
		}
	}()
}

// Drain stops accepting notifications and waits for in-flight sends
func (n *SettlementNotifier) Drain(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
