package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/goldenserzh/sportshop/internal/order"
)

const (
	OrderCreatedEventName   = "OrderCreated"
	OrderFailedEventName    = "OrderFailed"
	OrderCancelledEventName = "OrderCancelled"
	StockDepletedEventName  = "StockDepleted"

	orderEventVersion = 1
	producerName      = "order-service"
)

type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderCreatedPayload struct {
	OrderID       int64       `json:"orderId"`
	Items         []OrderLine `json:"items"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	Timestamp     time.Time   `json:"timestamp"`
}

type OrderFailedPayload struct {
	OrderID   int64       `json:"orderId"`
	Items     []OrderLine `json:"items"`
	Reason    string      `json:"reason"`
	Timestamp time.Time   `json:"timestamp"`
}

type OrderCancelledPayload struct {
	OrderID   int64       `json:"orderId"`
	Items     []OrderLine `json:"items"`
	Timestamp time.Time   `json:"timestamp"`
}

// StockDepletedPayload is emitted by the inventory side when a product's
// available count reaches zero.
type StockDepletedPayload struct {
	ProductID string    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderCreatedEnvelope = EventEnvelope[OrderCreatedPayload]
type OrderFailedEnvelope = EventEnvelope[OrderFailedPayload]
type OrderCancelledEnvelope = EventEnvelope[OrderCancelledPayload]
type StockDepletedEnvelope = EventEnvelope[StockDepletedPayload]

func orderLines(items []order.Item) []OrderLine {
	lines := make([]OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

func envelope[T any](name string, partitionKey string, seq int64, payload T) EventEnvelope[T] {
	return EventEnvelope[T]{
		EventName:    name,
		EventVersion: orderEventVersion,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: partitionKey,
		Sequence:     &seq,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}
}

func BuildOrderCreatedEnvelope(o order.Order, seq int64) OrderCreatedEnvelope {
	return envelope(OrderCreatedEventName, strconv.FormatInt(o.ID, 10), seq, OrderCreatedPayload{
		OrderID:       o.ID,
		Items:         orderLines(o.Items),
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Timestamp:     o.CreatedAt,
	})
}

func BuildOrderFailedEnvelope(o order.Order, seq int64) OrderFailedEnvelope {
	return envelope(OrderFailedEventName, strconv.FormatInt(o.ID, 10), seq, OrderFailedPayload{
		OrderID:   o.ID,
		Items:     orderLines(o.Items),
		Reason:    o.FailureReason,
		Timestamp: time.Now().UTC(),
	})
}

func BuildOrderCancelledEnvelope(o order.Order, seq int64) OrderCancelledEnvelope {
	return envelope(OrderCancelledEventName, strconv.FormatInt(o.ID, 10), seq, OrderCancelledPayload{
		OrderID:   o.ID,
		Items:     orderLines(o.Items),
		Timestamp: time.Now().UTC(),
	})
}

func BuildStockDepletedEnvelope(productID string, seq int64) StockDepletedEnvelope {
	return envelope(StockDepletedEventName, productID, seq, StockDepletedPayload{
		ProductID: productID,
		Timestamp: time.Now().UTC(),
	})
}
