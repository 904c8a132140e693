package inventory

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Ledger owns per-product available quantities. Reserve and Release are the
// only mutations the order flow is allowed to perform, and both are atomic:
// no caller can observe a checked-but-not-yet-decremented state.
//
// Every mutation carries an idempotency token. A token whose mutation has
// already been applied is a no-op, so a retried call after a lost response
// cannot double-decrement or double-increment stock.
type Ledger interface {
	// Reserve checks available >= quantity and decrements in one step.
	// Returns ErrInsufficientStock or ErrNotFound without mutating.
	Reserve(ctx context.Context, token, productID string, quantity int) error

	// Release increments available. It compensates a prior successful
	// reservation and is never blocked by stock limits.
	Release(ctx context.Context, token, productID string, quantity int) error

	// Peek returns the current available quantity. Advisory only; never a
	// basis for a reservation decision.
	Peek(ctx context.Context, productID string) (int, error)

	// SetAvailable upserts the absolute available quantity. Admin path,
	// used when products are created or restocked.
	SetAvailable(ctx context.Context, productID string, available int) error
}
