package inventory

import (
	"context"
	"sync"

	"github.com/goldenserzh/sportshop/internal/dedup"
)

// MemoryLedger is an in-process Ledger. A single mutex makes every operation
// indivisible, which is what closes the check-then-decrement race.
type MemoryLedger struct {
	mu    sync.Mutex
	stock map[string]int
	ops   *dedup.MemoryRegistry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		stock: make(map[string]int),
		ops:   dedup.NewMemoryRegistry(),
	}
}

func (l *MemoryLedger) Reserve(ctx context.Context, token, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ops.Seen(token) {
		return nil
	}

	available, ok := l.stock[productID]
	if !ok {
		return ErrNotFound
	}
	if available < quantity {
		return ErrInsufficientStock
	}

	l.stock[productID] = available - quantity
	l.ops.Mark(token)
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, token, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ops.Seen(token) {
		return nil
	}

	available, ok := l.stock[productID]
	if !ok {
		return ErrNotFound
	}

	l.stock[productID] = available + quantity
	l.ops.Mark(token)
	return nil
}

func (l *MemoryLedger) Peek(ctx context.Context, productID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	available, ok := l.stock[productID]
	if !ok {
		return 0, ErrNotFound
	}
	return available, nil
}

func (l *MemoryLedger) SetAvailable(ctx context.Context, productID string, available int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stock[productID] = available
	return nil
}
