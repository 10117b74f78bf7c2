package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementNotifier(t *testing.T) {
	t.Run("DeliversAndDrains", func(t *testing.T) {
		m := &recordingMessenger{}
		n := NewSettlementNotifier(m, m, time.Second, nil)

		n.NotifyUser(1, "hello")
		n.AlertOperator("alert")

		require.NoError(t, n.Drain(context.Background()))
		assert.Equal(t, []userMessage{{UserID: 1, Message: "hello"}}, m.userMessages())
		assert.Equal(t, []string{"alert"}, m.operatorMessages())
	})

	t.Run("SlowMessengerTimesOut", func(t *testing.T) {
		m := &recordingMessenger{delay: time.Second}
		n := NewSettlementNotifier(m, m, 20*time.Millisecond, nil)

		start := time.Now()
		n.NotifyUser(1, "late")
		require.NoError(t, n.Drain(context.Background()))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.Empty(t, m.userMessages())
	})

	t.Run("FailuresAreSwallowed", func(t *testing.T) {
		m := &recordingMessenger{err: errors.New("telegram down")}
		n := NewSettlementNotifier(m, m, time.Second, nil)

		n.NotifyUser(1, "x")
		require.NoError(t, n.Drain(context.Background()))
		assert.Len(t, m.userMessages(), 1)
	})

	t.Run("DropsAfterDrain", func(t *testing.T) {
		m := &recordingMessenger{}
		n := NewSettlementNotifier(m, m, time.Second, nil)
		require.NoError(t, n.Drain(context.Background()))

		n.NotifyUser(1, "dropped")
		assert.Empty(t, m.userMessages())
	})

	t.Run("NilNotifiersAreSafe", func(t *testing.T) {
		n := NewSettlementNotifier(nil, nil, 0, nil)
		n.NotifyUser(1, "x")
		n.AlertOperator("y")
		require.NoError(t, n.Drain(context.Background()))
	})
}
