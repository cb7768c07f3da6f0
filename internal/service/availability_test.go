package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
)

func TestAvailabilityService(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	e1 := f.createEvent(t, "Concert", 10)
	e2 := f.createEvent(t, "Play", 3)

	h := f.hold(t, e1.ID, "alice", 1, 2)
	_, err := f.bookings.ConfirmBooking(context.Background(), h.ID)
	require.NoError(t, err)
	f.hold(t, e1.ID, "bob", 5, 6, 7)
	f.hold(t, e2.ID, "carol", 1, 2, 3)

	a, err := f.availability.Availability(context.Background(), e1.ID)
	require.NoError(t, err)
	assert.Equal(t, e1.ID, a.EventID)
	assert.Equal(t, "Concert", a.Name)
	assert.Equal(t, 10, a.TotalSeats)
	assert.Equal(t, 3, a.HeldSeats)
	assert.Equal(t, 2, a.BookedSeats)
	assert.Equal(t, 5, a.AvailableSeats)

	all, err := f.availability.AvailabilityAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, e2.ID, all[1].EventID)
	assert.Equal(t, 0, all[1].AvailableSeats)

	// Lapsed holds stop counting immediately.
	f.clock.Advance(DefaultHoldTTL)
	a, err = f.availability.Availability(context.Background(), e1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.HeldSeats)
	assert.Equal(t, 8, a.AvailableSeats)

	_, err = f.availability.Availability(context.Background(), 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
