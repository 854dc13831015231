package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends domain events. Implementations must be safe for concurrent
// use. Callers treat a publish error as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

const (
	exchangeName   = "product-api.events"
	auditQueueName = "product-api.audit"
)

// AMQPPublisher keeps one connection to the broker and opens a short-lived
// channel per message. A dropped connection is redialled on the next publish.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	now  func() time.Time
}

// NewAMQPPublisher dials the broker and declares the events exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, now: time.Now}
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()
	if err := declareTopology(ch); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// Publish stamps the event with an id and time when missing and sends it as
// a persistent JSON message routed by its name.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Name == "" {
		return errors.New("event name is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = p.now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	return ch.PublishWithContext(ctx, exchangeName, ev.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Name,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

// declareTopology sets up a durable topic exchange and the audit queue bound
// to every user and product event. Declarations are idempotent.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(auditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range []string{"user.*", "product.*"} {
		if err := ch.QueueBind(auditQueueName, key, exchangeName, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}
	return nil
}

// Noop discards every event. It is used when the broker is disabled or
// unreachable at startup.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
