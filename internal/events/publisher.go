package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/goldenserzh/sportshop/internal/order"
	"github.com/goldenserzh/sportshop/internal/sequence"
)

const (
	OrderCreatedQueue   = "order.created"
	OrderFailedQueue    = "order.failed"
	OrderCancelledQueue = "order.cancelled"
	StockDepletedQueue  = "stock.depleted"

	orderEventSequence = "events.order"
	stockEventSequence = "events.stock"
)

// Publisher emits lifecycle events to RabbitMQ. Publishing is best effort:
// failures are logged and never propagated to the saga, which has already
// committed the transition the event describes.
type Publisher struct {
	ch     *amqp.Channel
	seq    sequence.Repository
	logger *log.Logger
}

func NewPublisher(conn *amqp.Connection, seq sequence.Repository, logger *log.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare queues so publish never fails due to missing infra
	for _, queue := range []string{OrderCreatedQueue, OrderFailedQueue, OrderCancelledQueue, StockDepletedQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare %s: %w", queue, err)
		}
	}

	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{ch: ch, seq: seq, logger: logger}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) OrderCreated(ctx context.Context, o order.Order) {
	seq := p.next(ctx, orderEventSequence)
	p.publish(ctx, OrderCreatedQueue, BuildOrderCreatedEnvelope(o, seq))
}

func (p *Publisher) OrderFailed(ctx context.Context, o order.Order) {
	seq := p.next(ctx, orderEventSequence)
	p.publish(ctx, OrderFailedQueue, BuildOrderFailedEnvelope(o, seq))
}

func (p *Publisher) OrderCancelled(ctx context.Context, o order.Order) {
	seq := p.next(ctx, orderEventSequence)
	p.publish(ctx, OrderCancelledQueue, BuildOrderCancelledEnvelope(o, seq))
}

// StockDepleted is published by the inventory service when a reservation
// drains a product to zero.
func (p *Publisher) StockDepleted(ctx context.Context, productID string) {
	seq := p.next(ctx, stockEventSequence)
	p.publish(ctx, StockDepletedQueue, BuildStockDepletedEnvelope(productID, seq))
}

func (p *Publisher) next(ctx context.Context, name string) int64 {
	seq, err := p.seq.Next(ctx, name)
	if err != nil {
		p.logger.Printf("event sequence %s: %v", name, err)
		return 0
	}
	return seq
}

func (p *Publisher) publish(ctx context.Context, queue string, ev any) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Printf("marshal event for %s: %v", queue, err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		pubCtx,
		"",    // default exchange
		queue, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Printf("publish to %s: %v", queue, err)
	}
}
