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
)

func TestHoldService_HoldSeats(t *testing.T) {
	t.Parallel()

	t.Run("creates active hold with sorted seats", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)

		h, err := f.holds.HoldSeats(context.Background(), e.ID, " user-1 ", []int{3, 1, 2})
		require.NoError(t, err)

		assert.NotEmpty(t, h.ID)
		assert.Equal(t, model.HoldActive, h.Status)
		assert.Equal(t, "user-1", h.UserID)
		assert.Equal(t, []int{1, 2, 3}, h.Seats)
		assert.Equal(t, testNow, h.CreatedAt)
		assert.Equal(t, testNow.Add(DefaultHoldTTL), h.ExpiresAt)

		stored, err := f.store.GetHold(context.Background(), h.ID)
		require.NoError(t, err)
		assert.Equal(t, h.Seats, stored.Seats)
	})

	t.Run("uses configured ttl and id generator", func(t *testing.T) {
		f := newFixture(t, WithHoldTTL(time.Minute), WithIDGenerator(func() string { return "hold-fixed" }))
		e := f.createEvent(t, "Concert", 10)

		h := f.hold(t, e.ID, "user-1", 4)
		assert.Equal(t, "hold-fixed", h.ID)
		assert.Equal(t, testNow.Add(time.Minute), h.ExpiresAt)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)

		tests := []struct {
			name  string
			user  string
			seats []int
			msg   string
		}{
			{name: "blank user", user: "  ", seats: []int{1}, msg: "user_id is required"},
			{name: "no seats", user: "u", seats: nil, msg: "seat_numbers must not be empty"},
			{name: "duplicate seat", user: "u", seats: []int{2, 5, 2}, msg: "seat 2 is requested more than once"},
			{name: "seat zero", user: "u", seats: []int{0}, msg: "seat 0 is out of range 1..10"},
			{name: "seat above total", user: "u", seats: []int{10, 11}, msg: "seat 11 is out of range 1..10"},
			{name: "negative seat", user: "u", seats: []int{-1}, msg: "seat -1 is out of range 1..10"},
		}
		for _, tt := range tests {
			_, err := f.holds.HoldSeats(context.Background(), e.ID, tt.user, tt.seats)
			require.Error(t, err, tt.name)
			assert.True(t, errors.Is(err, apperr.ErrValidation), tt.name)
			assert.Equal(t, tt.msg, err.Error(), tt.name)
		}

		holds, err := f.holds.ListHolds(context.Background(), model.HoldFilter{})
		require.NoError(t, err)
		assert.Empty(t, holds)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.holds.HoldSeats(context.Background(), 99, "u", []int{1})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("conflict names first taken seat and writes nothing", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		f.hold(t, e.ID, "user-1", 4, 5)

		_, err := f.holds.HoldSeats(context.Background(), e.ID, "user-2", []int{6, 5, 4})
		require.Error(t, err)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.KindConflict, ae.Kind)
		assert.Equal(t, 4, ae.Seat)
		assert.Equal(t, "seat 4 is not available", ae.Message)

		holds, err := f.holds.ListHolds(context.Background(), model.HoldFilter{UserID: "user-2"})
		require.NoError(t, err)
		assert.Empty(t, holds)
	})

	t.Run("booked seat is not available", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		h := f.hold(t, e.ID, "user-1", 7)
		_, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
		require.NoError(t, err)

		_, err = f.holds.HoldSeats(context.Background(), e.ID, "user-2", []int{7})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("lapsed hold frees its seats before the sweeper runs", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		f.hold(t, e.ID, "user-1", 1)

		f.clock.Advance(DefaultHoldTTL)
		h := f.hold(t, e.ID, "user-2", 1)
		assert.Equal(t, []int{1}, h.Seats)
	})

	t.Run("same user may hold disjoint seats twice", func(t *testing.T) {
		f := newFixture(t)
		e := f.createEvent(t, "Concert", 10)
		f.hold(t, e.ID, "user-1", 1)
		f.hold(t, e.ID, "user-1", 2)

		holds, err := f.holds.ListHolds(context.Background(), model.HoldFilter{UserID: "user-1"})
		require.NoError(t, err)
		assert.Len(t, holds, 2)
	})
}

func TestHoldService_ConcurrentHoldsOnSameSeat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	e := f.createEvent(t, "Concert", 50)

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       int
		conflicts int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// Every request overlaps on seat 25.
			_, err := f.holds.HoldSeats(context.Background(), e.ID, "user", []int{25, 26 + i%5})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, won)
	assert.Equal(t, workers-1, conflicts)

	a, err := f.availability.Availability(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.HeldSeats)
}

func TestHoldService_ListHolds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	e1 := f.createEvent(t, "Concert", 10)
	e2 := f.createEvent(t, "Play", 10)
	h1 := f.hold(t, e1.ID, "alice", 1)
	f.hold(t, e1.ID, "bob", 2)
	f.hold(t, e2.ID, "alice", 1)
	confirmed := f.hold(t, e2.ID, "alice", 2)
	_, err := f.bookings.ConfirmBooking(context.Background(), confirmed.ID)
	require.NoError(t, err)

	all, err := f.holds.ListHolds(context.Background(), model.HoldFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byEvent, err := f.holds.ListHolds(context.Background(), model.HoldFilter{EventID: &e1.ID})
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	both, err := f.holds.ListHolds(context.Background(), model.HoldFilter{EventID: &e1.ID, UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, h1.ID, both[0].ID)

	none, err := f.holds.ListHolds(context.Background(), model.HoldFilter{UserID: "carol"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
