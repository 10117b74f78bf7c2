package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirphl/ipn-settlement/app/dto"
	businessflow "github.com/amirphl/ipn-settlement/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPendingDepositFlow struct {
	registered  *dto.CreatePendingDepositRequest
	registerErr error
	getErr      error
}

func (s *stubPendingDepositFlow) Register(ctx context.Context, req *dto.CreatePendingDepositRequest, metadata *businessflow.ClientMetadata) (*dto.PendingDepositDTO, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	s.registered = req
	return &dto.PendingDepositDTO{PaymentID: req.PaymentID.String(), UserID: req.UserID, Currency: req.Currency}, nil
}

func (s *stubPendingDepositFlow) Get(ctx context.Context, paymentID string) (*dto.PendingDepositDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &dto.PendingDepositDTO{PaymentID: paymentID}, nil
}

func newPendingDepositApp(flow businessflow.PendingDepositFlow) *fiber.App {
	app := fiber.New()
	h := NewPendingDepositHandler(flow, nil)
	app.Post("/pending-deposits", h.Register)
	app.Get("/pending-deposits/:payment_id", h.Get)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestPendingDepositHandlerRegister(t *testing.T) {
	const valid = `{"payment_id":"5077125051","user_id":42,"currency":"btc","target_fiat_amount":"100","expected_crypto_amount":"0.0015"}`

	t.Run("Created", func(t *testing.T) {
		flow := &stubPendingDepositFlow{}
		resp := postJSON(t, newPendingDepositApp(flow), "/pending-deposits", valid)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		require.NotNil(t, flow.registered)
		assert.Equal(t, "5077125051", flow.registered.PaymentID.String())
		assert.Equal(t, int64(42), flow.registered.UserID)
	})

	t.Run("NumericPaymentID", func(t *testing.T) {
		flow := &stubPendingDepositFlow{}
		resp := postJSON(t, newPendingDepositApp(flow), "/pending-deposits",
			`{"payment_id":5077125051,"user_id":42,"currency":"btc","target_fiat_amount":"100","expected_crypto_amount":"0.0015"}`)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		require.NotNil(t, flow.registered)
		assert.Equal(t, "5077125051", flow.registered.PaymentID.String())
	})

	t.Run("MissingFields", func(t *testing.T) {
		flow := &stubPendingDepositFlow{}
		resp := postJSON(t, newPendingDepositApp(flow), "/pending-deposits", `{"payment_id":"1"}`)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, decodeResponse(t, resp)))
		assert.Nil(t, flow.registered)
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		flow := &stubPendingDepositFlow{registerErr: businessflow.NewBusinessError("PENDING_DEPOSIT_EXISTS", "Pending deposit already exists", businessflow.ErrPendingDepositExists)}
		resp := postJSON(t, newPendingDepositApp(flow), "/pending-deposits", valid)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "PENDING_DEPOSIT_EXISTS", errorCode(t, decodeResponse(t, resp)))
	})

	t.Run("FlowValidation", func(t *testing.T) {
		flow := &stubPendingDepositFlow{registerErr: businessflow.NewBusinessError("PENDING_DEPOSIT_VALIDATION_FAILED", "target_fiat_amount must be a positive decimal", businessflow.ErrInvalidAmount)}
		resp := postJSON(t, newPendingDepositApp(flow), "/pending-deposits", valid)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestPendingDepositHandlerGet(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		app := newPendingDepositApp(&stubPendingDepositFlow{})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/pending-deposits/5077125051", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.True(t, decodeResponse(t, resp).Success)
	})

	t.Run("NotFound", func(t *testing.T) {
		app := newPendingDepositApp(&stubPendingDepositFlow{getErr: businessflow.NewBusinessError("PENDING_DEPOSIT_NOT_FOUND", "Pending deposit not found", businessflow.ErrPendingDepositNotFound)})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/pending-deposits/missing", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "PENDING_DEPOSIT_NOT_FOUND", errorCode(t, decodeResponse(t, resp)))
	})
}
