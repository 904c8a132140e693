package reservation

import (
	"context"

	"github.com/goldenserzh/sportshop/internal/inventory"
)

// LedgerTransport calls a Ledger in the same process. Used when the order
// service runs with an embedded ledger, and by tests.
type LedgerTransport struct {
	ledger inventory.Ledger
}

func NewLedgerTransport(ledger inventory.Ledger) *LedgerTransport {
	return &LedgerTransport{ledger: ledger}
}

func (t *LedgerTransport) Reserve(ctx context.Context, token, productID string, quantity int) error {
	return t.ledger.Reserve(ctx, token, productID, quantity)
}

func (t *LedgerTransport) Release(ctx context.Context, token, productID string, quantity int) error {
	return t.ledger.Release(ctx, token, productID, quantity)
}
