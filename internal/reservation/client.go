package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrTransient marks channel failures whose effect on the ledger is unknown
// (timeouts, dropped connections, 5xx). They are safe to retry with the same
// idempotency token because the ledger deduplicates by token.
var ErrTransient = errors.New("transient inventory failure")

// IsTransient reports whether a failed call may be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// Transport performs a single attempt of a ledger call. Implementations map
// their channel's failure modes onto ErrTransient or the ledger's permanent
// errors.
type Transport interface {
	Reserve(ctx context.Context, token, productID string, quantity int) error
	Release(ctx context.Context, token, productID string, quantity int) error
}

// Op identifies one logical ledger mutation. Generation distinguishes
// otherwise identical mutations for the same order line (the reserve during
// creation, the rollback after a failed creation, the release on cancel), so
// each gets its own idempotency token while retries of the same mutation
// share one.
type Op struct {
	OrderID    int64
	ProductID  string
	Quantity   int
	Generation string
}

func (op Op) token() string {
	return fmt.Sprintf("%d:%s:%s", op.OrderID, op.ProductID, op.Generation)
}

type Config struct {
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration
}

// Client wraps a Transport with a per-call timeout and bounded retries for
// transient failures. Permanent failures surface immediately.
type Client struct {
	transport Transport
	cfg       Config
	logger    *log.Logger
}

func NewClient(transport Transport, cfg Config, logger *log.Logger) *Client {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 50 * time.Millisecond
	}
	return &Client{transport: transport, cfg: cfg, logger: logger}
}

func (c *Client) Reserve(ctx context.Context, op Op) error {
	return c.do(ctx, "reserve", op, c.transport.Reserve)
}

func (c *Client) Release(ctx context.Context, op Op) error {
	return c.do(ctx, "release", op, c.transport.Release)
}

func (c *Client) do(ctx context.Context, kind string, op Op, call func(ctx context.Context, token, productID string, quantity int) error) error {
	token := op.token()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if attempt > 1 {
			backoff := c.cfg.Backoff << (attempt - 2)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		err := call(callCtx, token, op.ProductID, op.Quantity)
		cancel()

		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}

		lastErr = err
		if c.logger != nil {
			c.logger.Printf("%s %s attempt %d/%d failed: %v", kind, token, attempt, c.cfg.Attempts, err)
		}
	}

	return fmt.Errorf("%s %s: retries exhausted: %w", kind, token, lastErr)
}
