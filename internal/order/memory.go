package order

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps orders in process. Orders are copied on the way in and
// out so callers never share mutable state with the store.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[int64]*Order
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[int64]*Order)}
}

func (s *MemoryStore) Create(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	o.ID = s.nextID

	cp := cloneOrder(o)
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusPending {
		return ErrStatusConflict
	}
	o.Status = StatusFailed
	o.FailureReason = reason
	return nil
}

func cloneOrder(o *Order) Order {
	cp := *o
	cp.Items = make([]Item, len(o.Items))
	copy(cp.Items, o.Items)
	return cp
}
