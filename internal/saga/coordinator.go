package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goldenserzh/sportshop/internal/order"
	"github.com/goldenserzh/sportshop/internal/reservation"
)

// Generations partition idempotency tokens per phase of an order's life.
// Retries within a phase share a token; distinct phases never collide.
const (
	genReserve  = "reserve"
	genRollback = "rollback"
	genCancel   = "cancel"
)

// StockClient is the retrying reservation client the coordinator drives.
type StockClient interface {
	Reserve(ctx context.Context, op reservation.Op) error
	Release(ctx context.Context, op reservation.Op) error
}

// Events receives lifecycle notifications after a transition is durable.
// Publishing is best effort; failures must not undo the transition.
type Events interface {
	OrderCreated(ctx context.Context, o order.Order)
	OrderFailed(ctx context.Context, o order.Order)
	OrderCancelled(ctx context.Context, o order.Order)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) OrderCreated(context.Context, order.Order)   {}
func (NopEvents) OrderFailed(context.Context, order.Order)    {}
func (NopEvents) OrderCancelled(context.Context, order.Order) {}

type CreateOrderRequest struct {
	Items         []order.Item `json:"items"`
	CustomerName  string       `json:"customerName"`
	CustomerEmail string       `json:"customerEmail"`
}

// Coordinator runs the order saga: persist a pending order, reserve each
// line in sequence, and either promote the order to created or roll the
// reserved prefix back and mark it failed. It is the only writer of order
// status transitions.
type Coordinator struct {
	orders order.Store
	stock  StockClient
	events Events
	logger *log.Logger

	// Per-order cancellation locks. Creation needs no lock because the
	// order is invisible to cancellation until it leaves pending.
	locks sync.Map
}

func NewCoordinator(orders order.Store, stock StockClient, events Events, logger *log.Logger) *Coordinator {
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{orders: orders, stock: stock, events: events, logger: logger}
}

func (c *Coordinator) CreateOrder(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	o := &order.Order{
		Items:         req.Items,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Status:        order.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := c.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// Reserve line by line, remembering the applied prefix so a failure
	// compensates exactly what was taken.
	var reserved []order.Item
	for _, item := range o.Items {
		op := reservation.Op{OrderID: o.ID, ProductID: item.ProductID, Quantity: item.Quantity, Generation: genReserve}
		if err := c.stock.Reserve(ctx, op); err != nil {
			return nil, c.failOrder(ctx, o, reserved, &ItemFailure{ProductID: item.ProductID, Err: err})
		}
		reserved = append(reserved, item)
	}

	if err := c.orders.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCreated); err != nil {
		return nil, fmt.Errorf("promote order %d: %w", o.ID, err)
	}
	o.Status = order.StatusCreated

	c.logger.Printf("order %d created with %d items", o.ID, len(o.Items))
	c.events.OrderCreated(ctx, *o)
	return o, nil
}

// failOrder compensates the reserved prefix and records the failure. The
// returned error carries the item failure, joined with ErrPartialRelease
// when compensation itself fell short.
func (c *Coordinator) failOrder(ctx context.Context, o *order.Order, reserved []order.Item, itemErr *ItemFailure) error {
	releaseErr := c.releaseAll(ctx, o.ID, reserved, genRollback)

	if err := c.orders.MarkFailed(ctx, o.ID, itemErr.Error()); err != nil {
		c.logger.Printf("order %d: mark failed: %v", o.ID, err)
	}
	o.Status = order.StatusFailed
	o.FailureReason = itemErr.Error()

	c.logger.Printf("order %d failed: %v", o.ID, itemErr)
	c.events.OrderFailed(ctx, *o)

	if releaseErr != nil {
		return errors.Join(itemErr, fmt.Errorf("%w: %v", ErrPartialRelease, releaseErr))
	}
	return itemErr
}

func (c *Coordinator) CancelOrder(ctx context.Context, id int64) (*order.Order, error) {
	mu := c.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	o, err := c.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusCreated {
		return nil, fmt.Errorf("%w: order %d is %s", ErrAlreadyTerminal, id, o.Status)
	}

	// Release before flipping the status. If any release fails the order
	// stays created and the client retries; released tokens are
	// deduplicated, so a retry only touches the remainder.
	if err := c.releaseAll(ctx, o.ID, o.Items, genCancel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPartialRelease, err)
	}

	if err := c.orders.UpdateStatus(ctx, o.ID, order.StatusCreated, order.StatusCancelled); err != nil {
		if errors.Is(err, order.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: order %d", ErrAlreadyTerminal, id)
		}
		return nil, fmt.Errorf("cancel order %d: %w", id, err)
	}
	o.Status = order.StatusCancelled

	c.logger.Printf("order %d cancelled", id)
	c.events.OrderCancelled(ctx, *o)
	return o, nil
}

func (c *Coordinator) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return c.orders.Get(ctx, id)
}

func (c *Coordinator) ListOrders(ctx context.Context) ([]order.Order, error) {
	return c.orders.List(ctx)
}

// releaseAll returns every given item to the ledger. All items are attempted
// even after a failure so one bad line cannot strand the rest.
func (c *Coordinator) releaseAll(ctx context.Context, orderID int64, items []order.Item, generation string) error {
	var errs []error
	for _, item := range items {
		op := reservation.Op{OrderID: orderID, ProductID: item.ProductID, Quantity: item.Quantity, Generation: generation}
		if err := c.stock.Release(ctx, op); err != nil {
			c.logger.Printf("order %d: release %s x%d: %v", orderID, item.ProductID, item.Quantity, err)
			errs = append(errs, fmt.Errorf("release %s: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Coordinator) lockFor(id int64) *sync.Mutex {
	mu, _ := c.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func validateRequest(req CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item without product id", ErrInvalidRequest)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: non-positive quantity for %s", ErrInvalidRequest, item.ProductID)
		}
		if seen[item.ProductID] {
			return fmt.Errorf("%w: duplicate product %s", ErrInvalidRequest, item.ProductID)
		}
		seen[item.ProductID] = true
	}
	return nil
}
