package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goldenserzh/sportshop/internal/order"
	"github.com/goldenserzh/sportshop/internal/saga"
)

// OrderService is the saga coordinator surface the handlers need.
type OrderService interface {
	CreateOrder(ctx context.Context, req saga.CreateOrderRequest) (*order.Order, error)
	CancelOrder(ctx context.Context, id int64) (*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
}

type OrderHandler struct {
	svc OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req saga.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Reservation retries can take several seconds on a flaky ledger.
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	o, err := h.svc.CreateOrder(ctx, req)
	if err != nil {
		writeSagaError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	o, err := h.svc.CancelOrder(ctx, id)
	if err != nil {
		writeSagaError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("orderId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid orderId")
		return 0, false
	}
	return id, true
}

// writeSagaError maps coordinator errors onto HTTP statuses. Item failures
// name the offending product so clients can act on them.
func writeSagaError(w http.ResponseWriter, err error) {
	var itemErr *saga.ItemFailure

	switch {
	case errors.Is(err, saga.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, saga.ErrAlreadyTerminal):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, saga.ErrPartialRelease):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &itemErr):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":     itemErr.Error(),
			"productId": itemErr.ProductID,
		})
	default:
		writeError(w, http.StatusInternalServerError, "order operation failed")
	}
}
