package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(inv *InventoryHandler, cat *CatalogHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", inv.Health)

	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/{productId}", inv.GetAvailability)
		r.Post("/adjust", inv.AdjustAvailability)
		r.Post("/reserve", inv.Reserve)
		r.Post("/release", inv.Release)
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", cat.ListProducts)
		r.Post("/", cat.CreateProduct)
		r.Get("/{productId}", cat.GetProduct)
		r.Put("/{productId}", cat.UpdateProduct)
		r.Delete("/{productId}", cat.DeleteProduct)
	})

	return r
}
