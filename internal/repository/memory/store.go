// Package memory is an in-process implementation of repository.Store.
//
// Exclusive access to an event's seat inventory comes from a per-event
// mutex (eventlock.Registry) taken by GetEventForUpdate and held until the
// enclosing WithTx returns.  Writes made inside a transaction are staged
// and applied atomically at commit, where status compare-and-sets and
// unique keys are validated again against committed state.  A transition
// that lost a race at commit fails the whole transaction with
// repository.ErrConcurrentUpdate.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/iliyamo/event-ticket-booking/internal/eventlock"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// Store keeps events, holds and bookings in maps guarded by mu.
type Store struct {
	locks *eventlock.Registry

	mu            sync.RWMutex
	events        map[int64]*model.Event
	holds         map[string]*model.SeatHold
	bookings      map[int64]*model.Booking
	nextEventID   atomic.Int64
	nextBookingID atomic.Int64
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		locks:    eventlock.New(),
		events:   make(map[int64]*model.Event),
		holds:    make(map[string]*model.SeatHold),
		bookings: make(map[int64]*model.Booking),
	}
}

// Locks exposes the per-event lock registry.
func (s *Store) Locks() *eventlock.Registry { return s.locks }

type txKey struct{}

// tx is a staged unit of work.  Reads see committed state overlaid with the
// transaction's own writes.
type tx struct {
	unlocks []func()
	locked  map[int64]bool

	events        map[int64]*model.Event
	newEvents     map[int64]bool
	eventVersion  map[int64]int64
	deletedEvents map[int64]bool

	holds    map[string]*model.SeatHold
	newHolds map[string]bool
	holdFrom map[string]model.HoldStatus

	bookings    map[int64]*model.Booking
	newBookings map[int64]bool
	bookingFrom map[int64]model.BookingStatus
}

func newTx() *tx {
	return &tx{
		locked:        make(map[int64]bool),
		events:        make(map[int64]*model.Event),
		newEvents:     make(map[int64]bool),
		eventVersion:  make(map[int64]int64),
		deletedEvents: make(map[int64]bool),
		holds:         make(map[string]*model.SeatHold),
		newHolds:      make(map[string]bool),
		holdFrom:      make(map[string]model.HoldStatus),
		bookings:      make(map[int64]*model.Booking),
		newBookings:   make(map[int64]bool),
		bookingFrom:   make(map[int64]model.BookingStatus),
	}
}

func (t *tx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// WithTx runs fn in a staged transaction.  Event locks taken inside fn are
// released after commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	t := newTx()
	defer t.release()
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	return s.commit(t)
}

// run executes fn inside the caller's transaction or a fresh one.
func (s *Store) run(ctx context.Context, fn func(t *tx) error) error {
	if t := txFromContext(ctx); t != nil {
		return fn(t)
	}
	t := newTx()
	defer t.release()
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

func (t *tx) empty() bool {
	return len(t.events) == 0 && len(t.deletedEvents) == 0 && len(t.holds) == 0 && len(t.bookings) == 0
}

func (s *Store) commit(t *tx) error {
	if t.empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, from := range t.holdFrom {
		cur, ok := s.holds[id]
		if !ok || cur.Status != from {
			return repository.ErrConcurrentUpdate
		}
	}
	for id, from := range t.bookingFrom {
		cur, ok := s.bookings[id]
		if !ok || cur.Status != from {
			return repository.ErrConcurrentUpdate
		}
	}
	for id, v := range t.eventVersion {
		cur, ok := s.events[id]
		if !ok || cur.Version != v {
			return repository.ErrConcurrentUpdate
		}
	}
	for id := range t.deletedEvents {
		if s.referencedLocked(id) {
			return repository.ErrConflict
		}
	}
	for id, e := range t.events {
		if t.deletedEvents[id] {
			continue
		}
		for oid, other := range s.events {
			if oid == id || t.deletedEvents[oid] {
				continue
			}
			if staged, ok := t.events[oid]; ok {
				other = staged
			}
			if sameKey(other.Key(), e.Key()) {
				return repository.ErrDuplicate
			}
		}
	}
	for id := range t.newBookings {
		hid := t.bookings[id].HoldID
		for _, b := range s.bookings {
			if b.HoldID == hid {
				return repository.ErrDuplicate
			}
		}
	}

	for id := range t.deletedEvents {
		delete(s.events, id)
	}
	for id, e := range t.events {
		if !t.deletedEvents[id] {
			s.events[id] = e
		}
	}
	for id, h := range t.holds {
		s.holds[id] = h
	}
	for id, b := range t.bookings {
		s.bookings[id] = b
	}
	return nil
}

func (s *Store) referencedLocked(eventID int64) bool {
	for _, h := range s.holds {
		if h.EventID == eventID {
			return true
		}
	}
	for _, b := range s.bookings {
		if b.EventID == eventID {
			return true
		}
	}
	return false
}

func sameKey(a, b model.EventKey) bool {
	return strings.EqualFold(a.Name, b.Name) &&
		strings.EqualFold(a.Location, b.Location) &&
		a.EventDate.Equal(b.EventDate)
}

func sortedInts(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

func copyEvent(e *model.Event) *model.Event {
	c := *e
	return &c
}

func copyHold(h *model.SeatHold) *model.SeatHold {
	c := *h
	c.Seats = append([]int(nil), h.Seats...)
	return &c
}

func copyBooking(b *model.Booking) *model.Booking {
	c := *b
	c.Seats = append([]int(nil), b.Seats...)
	if b.CanceledAt != nil {
		at := *b.CanceledAt
		c.CanceledAt = &at
	}
	return &c
}

// snapshot views.  Callers must hold s.mu for reading.

func (s *Store) eventView(t *tx, id int64) (*model.Event, bool) {
	if t.deletedEvents[id] {
		return nil, false
	}
	if e, ok := t.events[id]; ok {
		return e, true
	}
	e, ok := s.events[id]
	return e, ok
}

func (s *Store) allEventsView(t *tx) []*model.Event {
	out := make([]*model.Event, 0, len(s.events)+len(t.events))
	for id, e := range s.events {
		if t.deletedEvents[id] {
			continue
		}
		if staged, ok := t.events[id]; ok {
			out = append(out, staged)
			continue
		}
		out = append(out, e)
	}
	for id, e := range t.events {
		if t.newEvents[id] && !t.deletedEvents[id] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) holdView(t *tx, id string) (*model.SeatHold, bool) {
	if h, ok := t.holds[id]; ok {
		return h, true
	}
	h, ok := s.holds[id]
	return h, ok
}

func (s *Store) allHoldsView(t *tx) []*model.SeatHold {
	out := make([]*model.SeatHold, 0, len(s.holds)+len(t.newHolds))
	for id, h := range s.holds {
		if staged, ok := t.holds[id]; ok {
			out = append(out, staged)
			continue
		}
		out = append(out, h)
	}
	for id := range t.newHolds {
		out = append(out, t.holds[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) bookingView(t *tx, id int64) (*model.Booking, bool) {
	if b, ok := t.bookings[id]; ok {
		return b, true
	}
	b, ok := s.bookings[id]
	return b, ok
}

func (s *Store) allBookingsView(t *tx) []*model.Booking {
	out := make([]*model.Booking, 0, len(s.bookings)+len(t.newBookings))
	for id, b := range s.bookings {
		if staged, ok := t.bookings[id]; ok {
			out = append(out, staged)
			continue
		}
		out = append(out, b)
	}
	for id := range t.newBookings {
		out = append(out, t.bookings[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// readView runs fn with the data lock held for reading.
func (s *Store) readView(ctx context.Context, fn func(t *tx) error) error {
	return s.run(ctx, func(t *tx) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fn(t)
	})
}
