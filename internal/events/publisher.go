// Package events publishes order notifications to RabbitMQ.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/nks-storefront/internal/domain/checkout"
	"github.com/xenking/nks-storefront/internal/domain/order"
)

// DefaultQueue receives order-confirmed events.
const DefaultQueue = "orders.confirmed"

const (
	eventOrderConfirmed = "OrderConfirmed"
	publishTimeout      = 3 * time.Second
)

var (
	_ checkout.Publisher = (*Publisher)(nil)
	_ checkout.Publisher = Noop{}
)

// channel is the subset of *amqp.Channel used by Publisher.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events to a durable queue on the default exchange.
type Publisher struct {
	ch    channel
	queue string
	now   func() time.Time
}

// NewPublisher opens a channel on conn and declares queue.
func NewPublisher(conn *amqp.Connection, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", queue, err)
	}
	return &Publisher{ch: ch, queue: queue, now: time.Now}, nil
}

// Close closes the channel. The connection is owned by the caller.
func (p *Publisher) Close() error {
	return p.ch.Close()
}

// OrderConfirmed publishes o as a persistent JSON message.
func (p *Publisher) OrderConfirmed(ctx context.Context, o *order.Order) error {
	body := encodeOrderConfirmed(o, p.now().UTC())

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.ch.PublishWithContext(pubCtx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    o.ID,
		Type:         eventOrderConfirmed,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventOrderConfirmed, err)
	}
	return nil
}

func encodeOrderConfirmed(o *order.Order, at time.Time) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("eventType")
	e.Str(eventOrderConfirmed)
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)
	e.FieldStart("transactionId")
	e.Str(o.TransactionID)
	e.FieldStart("totalAmount")
	e.Str(o.TotalAmount.String())
	e.FieldStart("paymentStatus")
	e.Str(o.PaymentStatus)
	e.FieldStart("products")
	e.ArrStart()
	for _, it := range o.Products {
		e.ObjStart()
		e.FieldStart("title")
		e.Str(it.Title)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.Str(it.Price.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("timestamp")
	e.Str(at.Format(time.RFC3339))
	e.ObjEnd()
	return e.Bytes()
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

// OrderConfirmed implements checkout.Publisher.
func (Noop) OrderConfirmed(context.Context, *order.Order) error { return nil }
