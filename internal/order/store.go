package order

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned by compare-and-set status updates when
	// the order is no longer in the expected status.
	ErrStatusConflict = errors.New("order status conflict")
)

// Store owns order records. IDs are assigned monotonically at Create. Status
// writes are compare-and-set so the saga coordinator stays the only effective
// writer of transitions.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}
