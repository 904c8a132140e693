package http

import (
	"encoding/json"
	"net/http"
)

func NewRouter(svc OrderService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler)

	h := NewOrderHandler(svc)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{orderId}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{orderId}/cancel", h.CancelOrder)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "order-service",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
