package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/clock"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository/memory"
)

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	confirmed []queue.BookingConfirmedEvent
	canceled  []queue.BookingCanceledEvent
	expired   []queue.HoldExpiredEvent
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return p.err
}

func (p *recordingPublisher) PublishBookingCanceled(_ context.Context, ev queue.BookingCanceledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.canceled = append(p.canceled, ev)
	return p.err
}

func (p *recordingPublisher) PublishHoldExpired(_ context.Context, ev queue.HoldExpiredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, ev)
	return p.err
}

func (p *recordingPublisher) counts() (confirmed, canceled, expired int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.confirmed), len(p.canceled), len(p.expired)
}

// fixture wires every service over one memory store and a manual clock.
type fixture struct {
	store        *memory.Store
	clock        *clock.Manual
	pub          *recordingPublisher
	events       *EventService
	holds        *HoldService
	bookings     *BookingService
	availability *AvailabilityService
	sweeper      *Sweeper
}

func newFixture(t *testing.T, extra ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		clock: clock.NewManual(testNow),
		pub:   &recordingPublisher{},
	}
	opts := append([]Option{WithClock(f.clock), WithPublisher(f.pub)}, extra...)
	f.events = NewEventService(f.store, opts...)
	f.holds = NewHoldService(f.store, opts...)
	f.bookings = NewBookingService(f.store, opts...)
	f.availability = NewAvailabilityService(f.store, opts...)
	f.sweeper = NewSweeper(f.store, opts...)
	return f
}

func (f *fixture) createEvent(t *testing.T, name string, seats int) *model.Event {
	t.Helper()
	e, err := f.events.CreateEvent(context.Background(), EventInput{
		Name:       name,
		EventDate:  testNow.Add(30 * 24 * time.Hour),
		Location:   "Main Hall",
		TotalSeats: seats,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) hold(t *testing.T, eventID int64, user string, seats ...int) *model.SeatHold {
	t.Helper()
	h, err := f.holds.HoldSeats(context.Background(), eventID, user, seats)
	require.NoError(t, err)
	return h
}

func (f *fixture) holdStatus(t *testing.T, id string) model.HoldStatus {
	t.Helper()
	h, err := f.store.GetHold(context.Background(), id)
	require.NoError(t, err)
	return h.Status
}
