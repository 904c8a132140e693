package catalog

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepository struct {
	mu       sync.Mutex
	products map[string]Product
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{products: make(map[string]Product)}
}

func (r *MemoryRepository) Get(ctx context.Context, productID string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = p
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; !ok {
		return ErrNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.products, productID)
	return nil
}
