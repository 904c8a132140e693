package integration

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goldenserzh/sportshop/internal/db"
	"github.com/goldenserzh/sportshop/internal/inventory"
	"github.com/goldenserzh/sportshop/internal/order"
	"github.com/goldenserzh/sportshop/internal/reservation"
	"github.com/goldenserzh/sportshop/internal/saga"
	"github.com/goldenserzh/sportshop/internal/sequence"
	"github.com/goldenserzh/sportshop/internal/testutil"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container-backed tests")
	}
}

// newStack wires a coordinator against a real Postgres: SQL order store on
// one side, pgx ledger on the other, exactly like the deployed services.
func newStack(t *testing.T) (*saga.Coordinator, inventory.Ledger) {
	t.Helper()

	sqlDB, dsn := testutil.StartPostgres(t)
	require.NoError(t, db.RunMigrations(dsn, log.New(os.Stderr, "migrate ", log.LstdFlags)))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ledger := inventory.NewPostgresLedger(pool)

	client := reservation.NewClient(
		reservation.NewLedgerTransport(ledger),
		reservation.Config{Attempts: 3, Timeout: 5 * time.Second, Backoff: 20 * time.Millisecond},
		nil,
	)

	orders := order.NewRepository(sqlDB, sequence.NewRepository(sqlDB))
	return saga.NewCoordinator(orders, client, saga.NopEvents{}, nil), ledger
}

func TestSagaAgainstPostgres(t *testing.T) {
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	coord, ledger := newStack(t)

	require.NoError(t, ledger.SetAvailable(ctx, "p1", 10))
	require.NoError(t, ledger.SetAvailable(ctx, "p2", 3))

	// Happy path drains both products.
	o, err := coord.CreateOrder(ctx, saga.CreateOrderRequest{
		Items: []order.Item{
			{ProductID: "p1", Quantity: 4},
			{ProductID: "p2", Quantity: 2},
		},
		CustomerName: "Alice",
	})
	require.NoError(t, err)
	require.Equal(t, order.StatusCreated, o.Status)

	available, err := ledger.Peek(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 6, available)

	// A second order that overshoots p2 must roll its p1 reservation back.
	_, err = coord.CreateOrder(ctx, saga.CreateOrderRequest{
		Items: []order.Item{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 5},
		},
	})
	var itemErr *saga.ItemFailure
	require.ErrorAs(t, err, &itemErr)
	require.Equal(t, "p2", itemErr.ProductID)

	available, err = ledger.Peek(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 6, available, "failed order must not hold stock")

	orders, err := coord.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, order.StatusFailed, orders[1].Status)
	require.NotEmpty(t, orders[1].FailureReason)

	// Cancellation returns the first order's stock.
	cancelled, err := coord.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, cancelled.Status)

	available, err = ledger.Peek(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 10, available)

	_, err = coord.CancelOrder(ctx, o.ID)
	require.True(t, errors.Is(err, saga.ErrAlreadyTerminal))
}

func TestLedgerTokenDedupAgainstPostgres(t *testing.T) {
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	_, ledger := newStack(t)
	require.NoError(t, ledger.SetAvailable(ctx, "p1", 10))

	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Reserve(ctx, "1:p1:reserve", "p1", 4))
	}

	available, err := ledger.Peek(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 6, available, "repeated token must apply once")

	// A failed reserve must not burn its token for a later, smaller one.
	require.ErrorIs(t, ledger.Reserve(ctx, "2:p1:reserve", "p1", 100), inventory.ErrInsufficientStock)
	require.NoError(t, ledger.Reserve(ctx, "2:p1:reserve", "p1", 2))

	available, err = ledger.Peek(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 4, available)
}
