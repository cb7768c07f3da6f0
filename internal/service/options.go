package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-booking/internal/clock"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

const (
	// DefaultHoldTTL is how long a hold keeps its seats.
	DefaultHoldTTL = 5 * time.Minute
	// DefaultSweepInterval is the pause between two expiry sweeps.
	DefaultSweepInterval = 30 * time.Second
)

// Publisher receives domain events after their transaction committed.
// Delivery is best effort; failures are logged and never undo the
// committed change.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCanceled(ctx context.Context, ev queue.BookingCanceledEvent) error
	PublishHoldExpired(ctx context.Context, ev queue.HoldExpiredEvent) error
}

// settings is shared by every service constructor.
type settings struct {
	clock         clock.Clock
	holdTTL       time.Duration
	sweepInterval time.Duration
	publisher     Publisher
	newID         func() string
}

func defaultSettings() settings {
	return settings{
		clock:         clock.NewSystem(),
		holdTTL:       DefaultHoldTTL,
		sweepInterval: DefaultSweepInterval,
		publisher:     queue.NopPublisher{},
		newID:         func() string { return uuid.NewString() },
	}
}

// Option customizes a service.
type Option func(*settings)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithSweepInterval overrides the pause between sweeps.
func WithSweepInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithPublisher sets where domain events go.
func WithPublisher(p Publisher) Option {
	return func(s *settings) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithIDGenerator replaces the hold id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
