package order

type Status string

const (
	// StatusPending is set before any stock is touched, so the order is
	// addressable while its reservations are still in flight.
	StatusPending Status = "pending"
	// StatusCreated means every line item's reservation succeeded.
	StatusCreated Status = "created"
	// StatusFailed means a reservation failed; any reserved stock has been
	// released (or the discrepancy surfaced to the caller).
	StatusFailed Status = "failed"
	// StatusCancelled is reachable from StatusCreated only, after all stock
	// was returned.
	StatusCancelled Status = "cancelled"
)
