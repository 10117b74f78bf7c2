package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopClientFinalizePurchase(t *testing.T) {
	var got dto.FinalizePurchaseRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/internal/purchases/finalize", r.URL.Path)
		assert.Equal(t, "shop-key", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(dto.APIResponse{Success: true, Message: "delivered"})
	}))
	defer srv.Close()

	c := NewShopClient(srv.URL+"/", "shop-key", time.Second)
	err := c.FinalizePurchase(context.Background(), dto.FinalizePurchaseRequest{
		UserID:       42,
		PaymentID:    "p-1",
		Basket:       json.RawMessage(`[{"product_id":1}]`),
		DiscountCode: "SPRING",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "p-1", got.PaymentID)
	assert.Equal(t, "SPRING", got.DiscountCode)
	assert.JSONEq(t, `[{"product_id":1}]`, string(got.Basket))
}

func TestShopClientFailures(t *testing.T) {
	t.Run("HTTPStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewShopClient(srv.URL, "k", time.Second).ReleaseReservations(context.Background(), json.RawMessage(`[]`))
		assert.ErrorContains(t, err, "502")
	})

	t.Run("UnsuccessfulEnvelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(dto.APIResponse{Success: false, Message: "out of stock"})
		}))
		defer srv.Close()

		err := NewShopClient(srv.URL, "k", time.Second).FinalizePurchase(context.Background(), dto.FinalizePurchaseRequest{PaymentID: "p"})
		assert.ErrorContains(t, err, "out of stock")
	})

	t.Run("Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		err := NewShopClient(srv.URL, "k", 20*time.Millisecond).ReleaseReservations(context.Background(), json.RawMessage(`[]`))
		assert.Error(t, err)
	})

	t.Run("EmptyBodyIsSuccess", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		err := NewShopClient(srv.URL, "k", time.Second).ReleaseReservations(context.Background(), json.RawMessage(`[]`))
		assert.NoError(t, err)
	})
}
