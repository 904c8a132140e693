package saga

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest rejects malformed order requests before anything
	// is persisted.
	ErrInvalidRequest = errors.New("invalid order request")

	// ErrAlreadyTerminal is returned when a cancellation targets an order
	// that is not in the created status.
	ErrAlreadyTerminal = errors.New("order is not cancellable")

	// ErrPartialRelease signals that compensation could not return every
	// reserved item to the ledger. The operation is safe to retry; released
	// tokens are deduplicated.
	ErrPartialRelease = errors.New("partial release")
)

// ItemFailure reports which order line sank the reservation pass.
type ItemFailure struct {
	ProductID string
	Err       error
}

func (e *ItemFailure) Error() string {
	return fmt.Sprintf("item %s: %v", e.ProductID, e.Err)
}

func (e *ItemFailure) Unwrap() error { return e.Err }
