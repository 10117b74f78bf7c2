package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
)

// ShopClient talks to the shop backend that owns baskets, stock and delivery
type ShopClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewShopClient(baseURL, apiKey string, timeout time.Duration) *ShopClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ShopClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// FinalizePurchase asks the shop to deliver the basket of a paid purchase.
// The shop deduplicates by payment id.
func (c *ShopClient) FinalizePurchase(ctx context.Context, req dto.FinalizePurchaseRequest) error {
	return c.post(ctx, "/api/v1/internal/purchases/finalize", req)
}

// ReleaseReservations returns the reserved items of a basket to stock
func (c *ShopClient) ReleaseReservations(ctx context.Context, basket json.RawMessage) error {
	return c.post(ctx, "/api/v1/internal/reservations/release", dto.ReleaseReservationsRequest{Basket: basket})
}

func (c *ShopClient) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode shop request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shop %s http status: %d", path, resp.StatusCode)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var apiResp dto.APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("failed to decode JSON into APIResponse: %w", err)
	}
	if !apiResp.Success {
		return fmt.Errorf("shop %s failed: %s", path, apiResp.Message)
	}
	return nil
}
