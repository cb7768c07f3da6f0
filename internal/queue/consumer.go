package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// consumedQueues are the queues the booking log consumer listens to.
var consumedQueues = []string{BookingConfirmedQueue, BookingCanceledQueue, HoldExpiredQueue}

// BookingLog appends one human readable line per domain event to a file.
type BookingLog struct {
	path string
	mu   sync.Mutex
}

// NewBookingLog returns a BookingLog writing to path.  The parent directory
// is created on first write.
func NewBookingLog(path string) *BookingLog {
	return &BookingLog{path: path}
}

// StartBookingConsumer connects to RabbitMQ, declares the booking queues
// (durable) and appends every delivery to the booking log at logPath.  It
// reconnects with exponential backoff and returns only once ctx is done.  A
// message that cannot be handled is rejected without requeue so the
// consumer never spins on it.
func StartBookingConsumer(ctx context.Context, url, logPath string) error {
	bl := NewBookingLog(logPath)
	log := logrus.WithField("component", "booking-consumer")

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("dial broker failed; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, bl, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type delivery struct {
	queue string
	amqp.Delivery
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, bl *BookingLog, log *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}

	merged := make(chan delivery)
	var wg sync.WaitGroup
	for _, q := range consumedQueues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(q string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, Delivery: d}:
				case <-ctx.Done():
					return
				}
			}
		}(q, msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := bl.Handle(d.queue, d.Body); err != nil {
				log.WithError(err).WithField("queue", d.queue).Error("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes body as the event published on queueName and appends its
// log line.
func (b *BookingLog) Handle(queueName string, body []byte) error {
	line, err := FormatLine(queueName, body)
	if err != nil {
		return err
	}
	return b.append(line)
}

func (b *BookingLog) append(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders one booking log line, newline included.
func FormatLine(queueName string, body []byte) (string, error) {
	switch queueName {
	case BookingConfirmedQueue:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queueName, err)
		}
		return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | hold_id=%s | user_id=%s | event_id=%d | event=%q | date=%s | location=%q | seats=%s\n",
			ev.ConfirmedAt, ev.BookingID, ev.HoldID, ev.UserID, ev.EventID, ev.EventName, ev.EventDate, ev.Location, seatList(ev.Seats)), nil
	case BookingCanceledQueue:
		var ev BookingCanceledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queueName, err)
		}
		return fmt.Sprintf("[%s] Booking canceled | booking_id=%d | user_id=%s | event_id=%d | seats=%s\n",
			ev.CanceledAt, ev.BookingID, ev.UserID, ev.EventID, seatList(ev.Seats)), nil
	case HoldExpiredQueue:
		var ev HoldExpiredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queueName, err)
		}
		return fmt.Sprintf("[%s] Hold expired | hold_id=%s | user_id=%s | event_id=%d | seats=%s\n",
			ev.ExpiredAt, ev.HoldID, ev.UserID, ev.EventID, seatList(ev.Seats)), nil
	}
	return "", fmt.Errorf("unknown queue %q", queueName)
}

func seatList(seats []int) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = strconv.Itoa(s)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
