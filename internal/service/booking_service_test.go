package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

func TestBookingService_ConfirmBooking(t *testing.T) {
	t.Parallel()

	t.Run("converts hold into booking", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 3, 1, 2)

		f.clock.Advance(time.Minute)
		b, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
		require.NoError(t, err)

		assert.NotZero(t, b.ID)
		assert.Equal(t, model.BookingConfirmed, b.Status)
		assert.Equal(t, h.ID, b.HoldID)
		assert.Equal(t, "user-1", b.UserID)
		assert.Equal(t, e.ID, b.EventID)
		assert.Equal(t, []int{1, 2, 3}, b.Seats)
		assert.Equal(t, testNow.Add(time.Minute), b.CreatedAt)
		assert.Nil(t, b.CanceledAt)
		assert.Equal(t, model.HoldConfirmed, f.holdStatus(t, h.ID))

		a, err := f.availability.Availability(context.Background(), e.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, a.HeldSeats)
		assert.Equal(t, 3, a.BookedSeats)
		assert.Equal(t, 7, a.AvailableSeats)

		confirmed, _, _ := f.pub.counts()
		require.Equal(t, 1, confirmed)
		ev := f.pub.confirmed[0]
		assert.Equal(t, b.ID, ev.BookingID)
		assert.Equal(t, "Concert", ev.EventName)
		assert.Equal(t, []int{1, 2, 3}, ev.Seats)
	})

	t.Run("expired hold is marked expired and reported gone", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 1, 2)

		f.clock.Advance(DefaultHoldTTL)
		_, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
		assert.ErrorIs(t, err, apperr.ErrHoldExpired)

		// The expiry is committed even though the call failed.
		assert.Equal(t, model.HoldExpired, f.holdStatus(t, h.ID))
		_, _, expired := f.pub.counts()
		assert.Equal(t, 1, expired)

		all, err := f.bookings.ListBookings(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all.Bookings)

		// Seats are free again.
		f.hold(t, e.ID, "user-2", 1, 2)

		// A second attempt keeps reporting the hold as expired.
		_, err = f.bookings.ConfirmBooking(context.Background(), h.ID)
		assert.ErrorIs(t, err, apperr.ErrHoldExpired)
	})

	t.Run("already confirmed hold conflicts and keeps its status", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 1)
		_, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		_, err = f.bookings.ConfirmBooking(context.Background(), h.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, model.HoldConfirmed, f.holdStatus(t, h.ID))

		all, err := f.bookings.ListBookings(context.Background())
		require.NoError(t, err)
		assert.Len(t, all.Bookings, 1)
	})

	t.Run("swept hold reports expired", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 1)
		f.clock.Advance(DefaultHoldTTL + time.Second)
		_, err := f.sweeper.SweepExpiredHolds(context.Background())
		require.NoError(t, err)

		_, err = f.bookings.ConfirmBooking(context.Background(), h.ID)
		assert.ErrorIs(t, err, apperr.ErrHoldExpired)
	})

	t.Run("unknown and blank hold ids", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bookings.ConfirmBooking(context.Background(), "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.bookings.ConfirmBooking(context.Background(), "  ")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("seat booked outside the hold conflicts", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 1, 2)
		require.NoError(t, f.store.CreateBooking(context.Background(), &model.Booking{
			EventID:   e.ID,
			UserID:    "user-2",
			Status:    model.BookingConfirmed,
			CreatedAt: testNow,
			HoldID:    "legacy-hold",
			Seats:     []int{2},
		}))

		_, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
		require.ErrorIs(t, err, apperr.ErrConflict)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, 2, ae.Seat)
		assert.Equal(t, "seat 2 became booked while confirming, please retry", ae.Message)

		assert.Equal(t, model.HoldActive, f.holdStatus(t, h.ID))
		all, err := f.store.FindAllBookings(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 1)
		confirmed, _, _ := f.pub.counts()
		assert.Zero(t, confirmed)
	})

	t.Run("existing booking for the hold conflicts", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 3)
		require.NoError(t, f.store.CreateBooking(context.Background(), &model.Booking{
			EventID:   e.ID,
			UserID:    "user-1",
			Status:    model.BookingConfirmed,
			CreatedAt: testNow,
			HoldID:    h.ID,
			Seats:     []int{3},
		}))

		_, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
		require.ErrorIs(t, err, apperr.ErrConflict)
		assert.Contains(t, err.Error(), "already has a confirmed booking")

		assert.Equal(t, model.HoldActive, f.holdStatus(t, h.ID))
		all, err := f.store.FindAllBookings(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("hold whose event is gone is not found", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 4)

		svc := NewBookingService(missingEventStore{f.store}, WithClock(f.clock), WithPublisher(f.pub))
		_, err := svc.ConfirmBooking(context.Background(), h.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Contains(t, err.Error(), "event")

		assert.Equal(t, model.HoldActive, f.holdStatus(t, h.ID))
		all, err := f.store.FindAllBookings(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("owned confirmation rejects a foreign hold", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 5)

		_, err := f.bookings.ConfirmOwnedBooking(context.Background(), h.ID, "user-2")
		require.ErrorIs(t, err, ErrHoldNotOwned)
		assert.Equal(t, model.HoldActive, f.holdStatus(t, h.ID))

		b, err := f.bookings.ConfirmOwnedBooking(context.Background(), h.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", b.UserID)
	})

	t.Run("publish failure does not undo the booking", func(t *testing.T) {
		f := newFixture(t)
		f.pub.err = errors.New("broker down")
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 1)

		b, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
		require.NoError(t, err)
		got, err := f.bookings.ViewBooking(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingConfirmed, got.Status)
	})
}

func TestBookingService_ConcurrentConfirmAndSweep(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 1)

		var (
			wg         sync.WaitGroup
			confirmErr error
			swept      SweepResult
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, confirmErr = f.bookings.ConfirmBooking(context.Background(), h.ID)
		}()
		go func() {
			defer wg.Done()
			// The sweeper only sees holds that already lapsed, so it must
			// never find this one.
			swept, _ = f.sweeper.SweepExpiredHolds(context.Background())
		}()
		wg.Wait()

		require.NoError(t, confirmErr)
		assert.Equal(t, 0, swept.Expired)
		assert.Equal(t, model.HoldConfirmed, f.holdStatus(t, h.ID))
	}
}

func TestBookingService_ConfirmRacesWithSweeperAfterExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	e := f.createEvent(t, "Concert", 10)
	h := f.hold(t, e.ID, "user-1", 1)
	f.clock.Advance(DefaultHoldTTL)

	var (
		wg         sync.WaitGroup
		confirmErr error
		swept      SweepResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, confirmErr = f.bookings.ConfirmBooking(context.Background(), h.ID)
	}()
	go func() {
		defer wg.Done()
		swept, _ = f.sweeper.SweepExpiredHolds(context.Background())
	}()
	wg.Wait()

	assert.ErrorIs(t, confirmErr, apperr.ErrHoldExpired)
	assert.Equal(t, model.HoldExpired, f.holdStatus(t, h.ID))
	// Exactly one of the two performed the transition.
	_, _, expired := f.pub.counts()
	assert.Equal(t, 1, expired)
	assert.LessOrEqual(t, swept.Expired, 1)

	all, err := f.bookings.ListBookings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all.Bookings)
}

func TestBookingService_CancelBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	e := f.createEvent(t, "Concert", 10)
	h := f.hold(t, e.ID, "user-1", 4, 5)
	b, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	canceled, err := f.bookings.CancelBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, testNow.Add(time.Hour), *canceled.CanceledAt)

	// The hold that produced the booking stays confirmed.
	assert.Equal(t, model.HoldConfirmed, f.holdStatus(t, h.ID))

	a, err := f.availability.Availability(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.BookedSeats)
	assert.Equal(t, 10, a.AvailableSeats)

	// Freed seats can be held again.
	f.hold(t, e.ID, "user-2", 4, 5)

	_, err = f.bookings.CancelBooking(context.Background(), b.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.bookings.CancelBooking(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, canceledEvents, _ := f.pub.counts()
	assert.Equal(t, 1, canceledEvents)
}

func TestBookingService_ListAndView(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	e := f.createEvent(t, "Concert", 10)
	h := f.hold(t, e.ID, "alice", 1)
	b, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
	require.NoError(t, err)
	open1 := f.hold(t, e.ID, "alice", 2)
	open2 := f.hold(t, e.ID, "alice", 3)
	f.hold(t, e.ID, "bob", 4)

	got, err := f.bookings.ViewBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, 2, got.HoldCount)
	assert.ElementsMatch(t, []string{open1.ID, open2.ID}, got.HoldIDs)

	summary, err := f.bookings.ListBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Bookings, 1)
	assert.Equal(t, 2, summary.Bookings[0].HoldCount)
	assert.Len(t, summary.Holds, 3)

	_, err = f.bookings.ViewBooking(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// missingEventStore reports every event as absent when it is locked.
type missingEventStore struct {
	repository.Store
}

func (missingEventStore) GetEventForUpdate(context.Context, int64) (*model.Event, error) {
	return nil, repository.ErrNotFound
}
