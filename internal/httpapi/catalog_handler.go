package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goldenserzh/sportshop/internal/catalog"
	"github.com/goldenserzh/sportshop/internal/inventory"
)

type CatalogHandler struct {
	repo   catalog.Repository
	ledger inventory.Ledger
}

func NewCatalogHandler(repo catalog.Repository, ledger inventory.Ledger) *CatalogHandler {
	return &CatalogHandler{repo: repo, ledger: ledger}
}

type createProductRequest struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Category     string  `json:"category"`
	InitialStock int     `json:"initialStock"`
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Price < 0 || req.InitialStock < 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	p := catalog.Product{ID: req.ID, Name: req.Name, Price: req.Price, Category: req.Category}
	if err := h.repo.Create(r.Context(), p); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// A product is orderable from the moment it exists, so the ledger gets
	// a row even when the initial stock is zero.
	if err := h.ledger.SetAvailable(r.Context(), p.ID, req.InitialStock); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	p, err := h.repo.Get(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	p.ID = chi.URLParam(r, "productId")
	if p.Name == "" || p.Price < 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(r.Context(), p); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if err := h.repo.Delete(r.Context(), productID); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
