package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goldenserzh/sportshop/internal/catalog"
	"github.com/goldenserzh/sportshop/internal/inventory"
)

func newCatalogRouter(t *testing.T) (http.Handler, catalog.Repository, *inventory.MemoryLedger) {
	t.Helper()
	repo := catalog.NewMemoryRepository()
	ledger := inventory.NewMemoryLedger()
	inv := NewInventoryHandler(ledger, nil)
	cat := NewCatalogHandler(repo, ledger)
	return NewRouter(inv, cat), repo, ledger
}

func TestCreateProduct_SeedsLedger(t *testing.T) {
	r, repo, ledger := newCatalogRouter(t)

	body := `{"id":"p1","name":"Football","price":15.0,"category":"football","initialStock":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	if _, err := repo.Get(context.Background(), "p1"); err != nil {
		t.Fatalf("product not stored: %v", err)
	}
	if got, _ := ledger.Peek(context.Background(), "p1"); got != 10 {
		t.Fatalf("ledger not seeded, available = %d", got)
	}
}

func TestCreateProduct_GeneratesID(t *testing.T) {
	r, _, _ := newCatalogRouter(t)

	body := `{"name":"Tennis Ball","price":3.5,"category":"tennis"}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/", strings.NewReader(body))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}

	var p catalog.Product
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestCreateProduct_Invalid(t *testing.T) {
	r, _, _ := newCatalogRouter(t)

	tests := map[string]string{
		"missing name":   `{"price":1.0}`,
		"negative price": `{"name":"x","price":-1}`,
		"negative stock": `{"name":"x","price":1,"initialStock":-5}`,
		"broken json":    `{nope`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/products/", strings.NewReader(body))
			res := httptest.NewRecorder()
			r.ServeHTTP(res, req)

			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
		})
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	r, _, _ := newCatalogRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products/nope", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestUpdateProduct_OK(t *testing.T) {
	r, repo, _ := newCatalogRouter(t)
	_ = repo.Create(context.Background(), catalog.Product{ID: "p1", Name: "Football", Price: 15})

	body := `{"name":"Football Pro","price":25.0,"category":"football"}`
	req := httptest.NewRequest(http.MethodPut, "/api/products/p1", strings.NewReader(body))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	p, err := repo.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Name != "Football Pro" || p.Price != 25.0 {
		t.Fatalf("product not updated: %+v", p)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	r, _, _ := newCatalogRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/products/nope", strings.NewReader(`{"name":"x","price":1}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDeleteProduct_OK(t *testing.T) {
	r, repo, _ := newCatalogRouter(t)
	_ = repo.Create(context.Background(), catalog.Product{ID: "p1", Name: "Football", Price: 15})

	req := httptest.NewRequest(http.MethodDelete, "/api/products/p1", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if _, err := repo.Get(context.Background(), "p1"); err == nil {
		t.Fatalf("product still present after delete")
	}
}

func TestListProducts_EmptyIsArray(t *testing.T) {
	r, _, _ := newCatalogRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products/", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if body := strings.TrimSpace(res.Body.String()); body != "[]" {
		t.Fatalf("expected empty array, got %q", body)
	}
}
