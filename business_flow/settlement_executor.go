package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// SettlementTask is a unit of settlement work run on the executor
type SettlementTask func(ctx context.Context) (*SettlementResult, error)

// Future is the handle of a submitted task
type Future struct {
	done   chan struct{}
	result *SettlementResult
	err    error
}

// Wait blocks until the task finished or ctx is done
func (f *Future) Wait(ctx context.Context) (*SettlementResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the task has finished
func (f *Future) Done() <-chan struct{} {
	return f.done
}

type queuedTask struct {
	name   string
	task   SettlementTask
	future *Future
}

// SettlementExecutor is a bounded worker pool. Tasks run on a context that
// is detached from the submitter so a webhook timing out does not abort a
// settlement half way.
type SettlementExecutor struct {
	queue   chan queuedTask
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	depth   func(int)
}

// NewSettlementExecutor starts workers goroutines reading from a queue of queueSize
func NewSettlementExecutor(workers, queueSize int, logger *zap.Logger) *SettlementExecutor {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &SettlementExecutor{
		queue:   make(chan queuedTask, queueSize),
		baseCtx: ctx,
		cancel:  cancel,
		logger:  logger,
		depth:   func(n int) { settlementExecutorQueueDepth.Set(float64(n)) },
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

func (e *SettlementExecutor) worker() {
	defer e.wg.Done()
	for qt := range e.queue {
		e.depth(len(e.queue))
		e.run(qt)
	}
}

func (e *SettlementExecutor) run(qt queuedTask) {
	defer close(qt.future.done)
	defer func() {
		if r := recover(); r != nil {
			qt.future.err = fmt.Errorf("settlement task %s panicked: %v", qt.name, r)
			e.logger.Error("settlement task panicked", zap.String("task", qt.name), zap.Any("panic", r))
		}
	}()
	qt.future.result, qt.future.err = qt.task(e.baseCtx)
	if qt.future.err != nil {
		e.logger.Error("settlement task failed", zap.String("task", qt.name), zap.Error(qt.future.err))
		return
	}
	if r := qt.future.result; r != nil {
		e.logger.Info("settlement task finished",
			zap.String("task", qt.name),
			zap.String("payment_id", r.PaymentID),
			zap.String("state", string(r.State)),
			zap.String("outcome", string(r.Outcome)),
		)
	}
}

// Submit enqueues a task. It waits for a free queue slot until ctx is done and
// then fails with ErrExecutorBusy.
func (e *SettlementExecutor) Submit(ctx context.Context, name string, task SettlementTask) (*Future, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrExecutorClosed
	}

	qt := queuedTask{name: name, task: task, future: &Future{done: make(chan struct{})}}
	select {
	case e.queue <- qt:
		e.depth(len(e.queue))
		return qt.future, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrExecutorBusy, ctx.Err())
	}
}

// Shutdown stops intake and waits for queued and running tasks. When ctx
// expires first the running tasks' context is cancelled.
func (e *SettlementExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-drained
		return errors.Join(errors.New("settlement executor drain interrupted"), ctx.Err())
	}
}
