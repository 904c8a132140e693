package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goldenserzh/sportshop/internal/events"
	"github.com/goldenserzh/sportshop/internal/order"
	"github.com/goldenserzh/sportshop/internal/sequence"
	"github.com/goldenserzh/sportshop/internal/testutil"
)

func TestPublishOrderCreated(t *testing.T) {
	requireIntegration(t)

	conn := testutil.StartRabbitMQ(t)

	pub, err := events.NewPublisher(conn, sequence.NewMemoryRepository(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	o := order.Order{
		ID:            1,
		Items:         []order.Item{{ProductID: "p1", Quantity: 2}},
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		Status:        order.StatusCreated,
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
	pub.OrderCreated(ctx, o)

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	deliveries, err := ch.Consume(events.OrderCreatedQueue, "", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case msg := <-deliveries:
		var env events.OrderCreatedEnvelope
		require.NoError(t, json.Unmarshal(msg.Body, &env))
		require.NoError(t, env.Validate(events.OrderCreatedEventName, 1))
		require.Equal(t, int64(1), env.Payload.OrderID)
		require.Equal(t, "1", env.PartitionKey)
		require.NotNil(t, env.Sequence)
		require.Equal(t, int64(1), *env.Sequence)
	case <-time.After(10 * time.Second):
		t.Fatal("no OrderCreated message received")
	}
}
