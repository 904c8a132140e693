package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldenserzh/sportshop/internal/inventory"
)

// StockNotifier receives a signal when a reservation drains a product to
// zero. Notification is best effort.
type StockNotifier interface {
	StockDepleted(ctx context.Context, productID string)
}

type nopNotifier struct{}

func (nopNotifier) StockDepleted(context.Context, string) {}

type InventoryHandler struct {
	ledger   inventory.Ledger
	notifier StockNotifier
}

func NewInventoryHandler(ledger inventory.Ledger, notifier StockNotifier) *InventoryHandler {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &InventoryHandler{ledger: ledger, notifier: notifier}
}

func (h *InventoryHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *InventoryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	available, err := h.ledger.Peek(r.Context(), productID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, inventory.StockItem{ProductID: productID, Available: available})
}

type adjustRequest struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
}

func (h *InventoryHandler) AdjustAvailability(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.Available < 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.ledger.SetAvailable(r.Context(), req.ProductID, req.Available); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type mutationRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Reserve applies an idempotent stock reservation. The Idempotency-Key
// header carries the token; repeating a token is a no-op success.
func (h *InventoryHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	token, req, ok := h.mutation(w, r)
	if !ok {
		return
	}

	err := h.ledger.Reserve(r.Context(), token, req.ProductID, req.Quantity)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case errors.Is(err, inventory.ErrInsufficientStock):
		http.Error(w, "insufficient stock", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if available, err := h.ledger.Peek(r.Context(), req.ProductID); err == nil && available == 0 {
		h.notifier.StockDepleted(r.Context(), req.ProductID)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) Release(w http.ResponseWriter, r *http.Request) {
	token, req, ok := h.mutation(w, r)
	if !ok {
		return
	}

	err := h.ledger.Release(r.Context(), token, req.ProductID, req.Quantity)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) mutation(w http.ResponseWriter, r *http.Request) (string, mutationRequest, bool) {
	token := r.Header.Get("Idempotency-Key")
	if token == "" {
		http.Error(w, "missing Idempotency-Key", http.StatusBadRequest)
		return "", mutationRequest{}, false
	}

	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return "", mutationRequest{}, false
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return "", mutationRequest{}, false
	}

	return token, req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
