package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hall-reservation/internal/config"
)

// AuditConsumer binds a durable queue to every booking.* key and appends
// each event to an audit log file.
type AuditConsumer struct {
	cfg config.QueueConfig
	log logrus.FieldLogger
}

// NewAuditConsumer returns a consumer for cfg.
func NewAuditConsumer(cfg config.QueueConfig, log logrus.FieldLogger) *AuditConsumer {
	return &AuditConsumer{cfg: cfg, log: log}
}

// Run consumes until ctx is cancelled, re-dialling with exponential
// backoff (capped at 30s) whenever the broker goes away.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.WithError(err).Warnf("booking-consumer: dial failed, retrying in %s", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("booking-consumer: consume loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("booking-consumer: set QoS failed")
	}
	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "booking.*", c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := AppendAudit(c.cfg.AuditLog, d.Body); err != nil {
			c.log.WithError(err).Error("booking-consumer: handle message failed")
			_ = d.Nack(false, false) // do not requeue poison messages
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// AppendAudit decodes one message body and appends its audit line to
// the file at path, creating parent directories as needed.
func AppendAudit(path string, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.BookingID == 0 {
		return errors.New("event without type or booking id")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(ev.AuditLine()); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
