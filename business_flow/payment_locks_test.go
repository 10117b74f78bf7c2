package businessflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentLocks(t *testing.T) {
	t.Run("SerializesSameKey", func(t *testing.T) {
		locks := NewPaymentLocks(nil, 0)

		var inside, maxInside int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := locks.Acquire(context.Background(), "p1")
				if !assert.NoError(t, err) {
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				release()
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxInside)
		assert.Equal(t, 0, locks.lockedCount())
	})

	t.Run("DifferentKeysDoNotBlock", func(t *testing.T) {
		locks := NewPaymentLocks(nil, 0)

		releaseA, err := locks.Acquire(context.Background(), "a")
		require.NoError(t, err)
		defer releaseA()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		releaseB, err := locks.Acquire(ctx, "b")
		require.NoError(t, err)
		releaseB()
	})

	t.Run("TimesOutWhileHeld", func(t *testing.T) {
		locks := NewPaymentLocks(nil, 0)

		release, err := locks.Acquire(context.Background(), "p2")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = locks.Acquire(ctx, "p2")
		assert.ErrorIs(t, err, ErrLockTimeout)

		release()
		assert.Equal(t, 0, locks.lockedCount())

		again, err := locks.Acquire(context.Background(), "p2")
		require.NoError(t, err)
		again()
	})
}
