package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	return s.readView(ctx, func(t *tx) error {
		for _, other := range s.allBookingsView(t) {
			if other.HoldID == b.HoldID {
				return repository.ErrDuplicate
			}
		}
		b.ID = s.nextBookingID.Add(1)
		c := copyBooking(b)
		c.Seats = sortedInts(c.Seats)
		t.bookings[b.ID] = c
		t.newBookings[b.ID] = true
		return nil
	})
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	var out *model.Booking
	err := s.readView(ctx, func(t *tx) error {
		b, ok := s.bookingView(t, id)
		if !ok {
			return repository.ErrNotFound
		}
		out = copyBooking(b)
		return nil
	})
	return out, err
}

func (s *Store) CancelBooking(ctx context.Context, id int64, at time.Time) (bool, error) {
	applied := false
	err := s.readView(ctx, func(t *tx) error {
		b, ok := s.bookingView(t, id)
		if !ok {
			return repository.ErrNotFound
		}
		if !b.Status.CanTransitionTo(model.BookingCanceled) {
			return nil
		}
		if !t.newBookings[id] {
			if _, staged := t.bookingFrom[id]; !staged {
				t.bookingFrom[id] = model.BookingConfirmed
			}
		}
		next := copyBooking(b)
		next.Status = model.BookingCanceled
		canceledAt := at
		next.CanceledAt = &canceledAt
		t.bookings[id] = next
		applied = true
		return nil
	})
	return applied, err
}

func (s *Store) FindAllBookings(ctx context.Context) ([]model.Booking, error) {
	var out []model.Booking
	err := s.readView(ctx, func(t *tx) error {
		for _, b := range s.allBookingsView(t) {
			out = append(out, *copyBooking(b))
		}
		return nil
	})
	return out, err
}

func (s *Store) FindConfirmedBookingSeatNumbers(ctx context.Context, eventID int64) ([]int, error) {
	var out []int
	err := s.readView(ctx, func(t *tx) error {
		for _, b := range s.allBookingsView(t) {
			if b.EventID == eventID && b.Status == model.BookingConfirmed {
				out = append(out, b.Seats...)
			}
		}
		return nil
	})
	sort.Ints(out)
	return out, err
}

func (s *Store) ExistsConfirmedBooking(ctx context.Context, holdID, userID string) (bool, error) {
	found := false
	err := s.readView(ctx, func(t *tx) error {
		for _, b := range s.allBookingsView(t) {
			if b.HoldID == holdID && b.UserID == userID && b.Status == model.BookingConfirmed {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
