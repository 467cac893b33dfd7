package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends BookingEvents to a durable topic exchange over one
// long-lived connection.  A broken connection is re-dialled on the next
// Publish.
type Publisher struct {
	url      string
	exchange string
	log      logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(url, exchange string, log logrus.FieldLogger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Publish sends ev as a persistent JSON message routed by ev.RoutingKey.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		p.log.Warn("rabbitmq connection lost, reconnecting")
		if err := p.connect(); err != nil {
			return err
		}
	}
	return p.ch.PublishWithContext(ctx, p.exchange, ev.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	})
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Discard is a publisher that drops every event.  It is used when the
// queue is disabled.
type Discard struct{}

func (Discard) Publish(context.Context, BookingEvent) error { return nil }
