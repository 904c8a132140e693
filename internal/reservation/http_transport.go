package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/goldenserzh/sportshop/internal/inventory"
)

// HTTPTransport calls the inventory service's reserve/release endpoints. The
// idempotency token travels in the Idempotency-Key header. The underlying
// http.Client carries no timeout of its own; the per-request context set by
// the retrying client is the only deadline.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

type mutationRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (t *HTTPTransport) Reserve(ctx context.Context, token, productID string, quantity int) error {
	return t.post(ctx, "/api/inventory/reserve", token, productID, quantity)
}

func (t *HTTPTransport) Release(ctx context.Context, token, productID string, quantity int) error {
	return t.post(ctx, "/api/inventory/release", token, productID, quantity)
}

func (t *HTTPTransport) post(ctx context.Context, path, token, productID string, quantity int) error {
	body, err := json.Marshal(mutationRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", token)

	resp, err := t.client.Do(req)
	if err != nil {
		// The call may or may not have reached the ledger; retrying the
		// same token is safe either way.
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return inventory.ErrNotFound
	case http.StatusConflict:
		return inventory.ErrInsufficientStock
	default:
		return fmt.Errorf("%w: inventory returned status %d", ErrTransient, resp.StatusCode)
	}
}
