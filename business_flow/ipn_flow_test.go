package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIPNSecret = "ipn-secret"

func newIPNHarness(t *testing.T, engine *fakeEngine, opts IPNOptions) (IPNFlow, *SettlementExecutor) {
	ex := NewSettlementExecutor(2, 8, nil)
	t.Cleanup(func() { _ = ex.Shutdown(context.Background()) })
	return NewIPNFlow(engine, ex, opts, nil), ex
}

func TestSignIPNBody(t *testing.T) {
	body := []byte(`{"payment_status":"finished","payment_id":5077125051,"fee":{"depositFee":0,"currency":"btc"},"order_description":"<b>&</b>"}`)
	canonical := `{"fee":{"currency":"btc","depositFee":0},"order_description":"<b>&</b>","payment_id":5077125051,"payment_status":"finished"}`

	mac := hmac.New(sha512.New, []byte(testIPNSecret))
	mac.Write([]byte(canonical))
	want := hex.EncodeToString(mac.Sum(nil))

	got, err := SignIPNBody(body, testIPNSecret)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = SignIPNBody([]byte(`{not json`), testIPNSecret)
	assert.Error(t, err)
}

func TestIPNFlow_HandleNotification(t *testing.T) {
	ctx := context.Background()
	meta := &ClientMetadata{RequestID: "req-1"}
	validBody := []byte(`{"payment_id":5077125051,"payment_status":"finished","pay_currency":"btc","actually_paid":0.012,"price_amount":100}`)

	t.Run("ProcessedWithinAckWait", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{AckWait: time.Second})

		ack, err := flow.HandleNotification(ctx, validBody, "", meta)
		require.NoError(t, err)
		assert.Equal(t, dto.IPNAckProcessed, ack.Status)
		assert.Equal(t, "5077125051", ack.PaymentID)
		assert.Equal(t, string(SettlementStateSettled), ack.State)
		assert.Equal(t, string(OutcomeFinalizePurchase), ack.Outcome)

		require.Equal(t, 1, engine.settledCount())
		n := engine.settled[0]
		assert.Equal(t, "5077125051", n.PaymentID)
		assert.Equal(t, "finished", n.PaymentStatus)
		assert.Equal(t, "0.012", n.ActuallyPaid.String())
		assert.Equal(t, "req-1", n.RequestID)
		assert.JSONEq(t, string(validBody), string(n.Raw))
	})

	t.Run("AcceptedWhenSettlementIsSlow", func(t *testing.T) {
		engine := &fakeEngine{delay: 300 * time.Millisecond}
		flow, ex := newIPNHarness(t, engine, IPNOptions{AckWait: 30 * time.Millisecond})

		ack, err := flow.HandleNotification(ctx, validBody, "", meta)
		require.NoError(t, err)
		assert.Equal(t, dto.IPNAckAccepted, ack.Status)
		assert.Empty(t, ack.State)

		require.NoError(t, ex.Shutdown(context.Background()))
		assert.Equal(t, 1, engine.settledCount())
	})

	t.Run("ValidSignature", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{Secret: testIPNSecret, VerifySignature: true, AckWait: time.Second})

		sig, err := SignIPNBody(validBody, testIPNSecret)
		require.NoError(t, err)

		ack, err := flow.HandleNotification(ctx, validBody, sig, meta)
		require.NoError(t, err)
		assert.Equal(t, dto.IPNAckProcessed, ack.Status)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{Secret: testIPNSecret, VerifySignature: true})

		_, err := flow.HandleNotification(ctx, validBody, "deadbeef", meta)
		require.Error(t, err)
		assert.Equal(t, "IPN_SIGNATURE_INVALID", BusinessErrorCode(err))
		assert.True(t, IsInvalidSignature(err))
		assert.Equal(t, 0, engine.settledCount())

		_, err = flow.HandleNotification(ctx, validBody, "", meta)
		assert.Equal(t, "IPN_SIGNATURE_INVALID", BusinessErrorCode(err))
	})

	t.Run("SignatureIgnoredWhenDisabled", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{Secret: testIPNSecret, AckWait: time.Second})

		ack, err := flow.HandleNotification(ctx, validBody, "garbage", meta)
		require.NoError(t, err)
		assert.Equal(t, dto.IPNAckProcessed, ack.Status)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{})

		_, err := flow.HandleNotification(ctx, []byte(`{"payment_id":`), "", meta)
		assert.Equal(t, "IPN_INVALID_PAYLOAD", BusinessErrorCode(err))

		_, err = flow.HandleNotification(ctx, nil, "", meta)
		assert.Equal(t, "IPN_INVALID_PAYLOAD", BusinessErrorCode(err))
		assert.Equal(t, 0, engine.settledCount())
	})

	t.Run("MissingRequiredFields", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{})

		bodies := [][]byte{
			[]byte(`{"payment_status":"finished","pay_currency":"btc","actually_paid":"1"}`),
			[]byte(`{"payment_id":"1","pay_currency":"btc","actually_paid":"1"}`),
			[]byte(`{"payment_id":"1","payment_status":"finished","actually_paid":"1"}`),
			[]byte(`{"payment_id":"1","payment_status":"finished","pay_currency":"btc"}`),
			[]byte(`{"payment_id":"1","payment_status":"finished","pay_currency":"btc","actually_paid":"abc"}`),
		}
		for _, body := range bodies {
			_, err := flow.HandleNotification(ctx, body, "", meta)
			assert.Equal(t, "IPN_VALIDATION_FAILED", BusinessErrorCode(err), string(body))
		}
		assert.Equal(t, 0, engine.settledCount())
	})

	t.Run("ChildPaymentIsIgnored", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{})

		body := []byte(`{"payment_id":"2","parent_payment_id":"1","payment_status":"finished","pay_currency":"btc","actually_paid":"1"}`)
		ack, err := flow.HandleNotification(ctx, body, "", meta)
		require.NoError(t, err)
		assert.Equal(t, dto.IPNAckChildIgnored, ack.Status)
		assert.Equal(t, 0, engine.settledCount())
	})

	t.Run("ExecutorClosed", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, ex := newIPNHarness(t, engine, IPNOptions{})
		require.NoError(t, ex.Shutdown(context.Background()))

		_, err := flow.HandleNotification(ctx, validBody, "", meta)
		assert.Equal(t, "IPN_UNAVAILABLE", BusinessErrorCode(err))
		assert.True(t, IsExecutorUnavailable(err))
	})

	t.Run("EngineErrorIsStillAcknowledged", func(t *testing.T) {
		engine := &fakeEngine{err: errors.New("lookup failed")}
		flow, _ := newIPNHarness(t, engine, IPNOptions{AckWait: time.Second})

		ack, err := flow.HandleNotification(ctx, validBody, "", meta)
		require.NoError(t, err)
		assert.Equal(t, dto.IPNAckFailed, ack.Status)
		assert.Equal(t, "5077125051", ack.PaymentID)
		assert.Equal(t, 1, engine.settledCount())
	})

	t.Run("HugeExponentIsRejected", func(t *testing.T) {
		engine := &fakeEngine{}
		flow, _ := newIPNHarness(t, engine, IPNOptions{AckWait: time.Second})

		body := []byte(`{"payment_id":"9","payment_status":"finished","pay_currency":"btc","actually_paid":"1e-100000000"}`)
		_, err := flow.HandleNotification(ctx, body, "", meta)
		assert.Equal(t, "IPN_VALIDATION_FAILED", BusinessErrorCode(err))
		assert.Equal(t, 0, engine.settledCount())
	})
}
