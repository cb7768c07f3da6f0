package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-booking/internal/metrics"
)

// Publisher publishes domain events to RabbitMQ.  The connection is opened
// lazily and reopened after the broker drops it.  Errors are logged and
// returned so the caller can choose to ignore them; messages are marked
// persistent.
type Publisher struct {
	url string
	log *logrus.Entry

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{
		url:      url,
		log:      logrus.WithField("component", "publisher"),
		declared: make(map[string]bool),
	}
}

func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	return p.publish(ctx, BookingConfirmedQueue, ev)
}

func (p *Publisher) PublishBookingCanceled(ctx context.Context, ev BookingCanceledEvent) error {
	return p.publish(ctx, BookingCanceledQueue, ev)
}

func (p *Publisher) PublishHoldExpired(ctx context.Context, ev HoldExpiredEvent) error {
	return p.publish(ctx, HoldExpiredQueue, ev)
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Error("marshal event failed")
		metrics.EventsPublished.WithLabelValues(queueName, "error").Inc()
		return fmt.Errorf("marshal %s: %w", queueName, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel unavailable")
		metrics.EventsPublished.WithLabelValues(queueName, "error").Inc()
		return err
	}

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if !p.declared[queueName] {
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			p.log.WithError(err).WithField("queue", queueName).Warn("rabbitmq: queue declare failed")
			p.resetLocked()
			metrics.EventsPublished.WithLabelValues(queueName, "error").Inc()
			return fmt.Errorf("declare %s: %w", queueName, err)
		}
		p.declared[queueName] = true
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.log.WithError(err).WithField("queue", queueName).Warn("rabbitmq: publish failed")
		p.resetLocked()
		metrics.EventsPublished.WithLabelValues(queueName, "error").Inc()
		return fmt.Errorf("publish %s: %w", queueName, err)
	}
	metrics.EventsPublished.WithLabelValues(queueName, "ok").Inc()
	return nil
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	p.declared = make(map[string]bool)
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmedEvent) error {
	return nil
}

func (NopPublisher) PublishBookingCanceled(context.Context, BookingCanceledEvent) error {
	return nil
}

func (NopPublisher) PublishHoldExpired(context.Context, HoldExpiredEvent) error { return nil }
