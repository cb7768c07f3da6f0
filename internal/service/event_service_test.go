package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
)

func validInput() EventInput {
	return EventInput{
		Name:       "Jazz Night",
		EventDate:  testNow.Add(48 * time.Hour),
		Location:   "Blue Room",
		TotalSeats: 20,
	}
}

func TestEventService_ValidateEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	assert.NoError(t, f.events.ValidateEvent(validInput()))

	err := f.events.ValidateEvent(EventInput{Name: " ", Location: "", TotalSeats: 0})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t,
		"event_date: is required; location: must not be blank; name: must not be blank; total_seats: must be at least 1",
		err.Error())

	past := validInput()
	past.EventDate = testNow
	err = f.events.ValidateEvent(past)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "event_date: must be in the future", err.Error())
}

func TestEventService_CreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("trims and stores", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Name = "  Jazz Night "
		e, err := f.events.CreateEvent(context.Background(), in)
		require.NoError(t, err)
		assert.NotZero(t, e.ID)
		assert.Equal(t, "Jazz Night", e.Name)
		assert.Equal(t, testNow, e.CreatedAt)

		got, err := f.events.GetEvent(context.Background(), e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.Name, got.Name)
	})

	t.Run("deduplicates on business key ignoring case", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.events.CreateEvent(context.Background(), validInput())
		require.NoError(t, err)

		again := validInput()
		again.Name = "JAZZ NIGHT"
		again.Location = "blue room"
		again.TotalSeats = 99
		second, err := f.events.CreateEvent(context.Background(), again)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 20, second.TotalSeats)

		events, err := f.events.ListEvents(context.Background())
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("batch is validated before anything is stored", func(t *testing.T) {
		f := newFixture(t)
		bad := validInput()
		bad.TotalSeats = 0
		_, err := f.events.CreateEvents(context.Background(), []EventInput{validInput(), bad})
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, err.Error(), "event[1]")

		events, err := f.events.ListEvents(context.Background())
		require.NoError(t, err)
		assert.Empty(t, events)

		other := validInput()
		other.Name = "Other"
		out, err := f.events.CreateEvents(context.Background(), []EventInput{validInput(), other, validInput()})
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, out[0].ID, out[2].ID)
		assert.NotEqual(t, out[0].ID, out[1].ID)

		_, err = f.events.CreateEvents(context.Background(), nil)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("get unknown", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.events.GetEvent(context.Background(), 5)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	t.Parallel()

	t.Run("updates and bumps version", func(t *testing.T) {
		f := newFixture(t)
		e, err := f.events.CreateEvent(context.Background(), validInput())
		require.NoError(t, err)

		in := validInput()
		in.Location = "Green Room"
		in.TotalSeats = 30
		f.clock.Advance(time.Minute)
		got, err := f.events.UpdateEvent(context.Background(), e.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Green Room", got.Location)
		assert.Equal(t, 30, got.TotalSeats)
		assert.Equal(t, e.Version+1, got.Version)
		assert.Equal(t, testNow.Add(time.Minute), got.UpdatedAt)
	})

	t.Run("cannot shrink below an occupied seat", func(t *testing.T) {
		f := newFixture(t)
		e, err := f.events.CreateEvent(context.Background(), validInput())
		require.NoError(t, err)
		f.hold(t, e.ID, "u", 15)

		in := validInput()
		in.TotalSeats = 14
		_, err = f.events.UpdateEvent(context.Background(), e.ID, in)
		assert.ErrorIs(t, err, apperr.ErrConflict)

		in.TotalSeats = 15
		_, err = f.events.UpdateEvent(context.Background(), e.ID, in)
		assert.NoError(t, err)
	})

	t.Run("key clash with another event", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.events.CreateEvent(context.Background(), validInput())
		require.NoError(t, err)
		other := validInput()
		other.Name = "Other"
		e2, err := f.events.CreateEvent(context.Background(), other)
		require.NoError(t, err)

		_, err = f.events.UpdateEvent(context.Background(), e2.ID, validInput())
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.events.UpdateEvent(context.Background(), 7, validInput())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	busy, err := f.events.CreateEvent(context.Background(), validInput())
	require.NoError(t, err)
	f.hold(t, busy.ID, "u", 1)

	err = f.events.DeleteEvent(context.Background(), busy.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	other := validInput()
	other.Name = "Empty"
	empty, err := f.events.CreateEvent(context.Background(), other)
	require.NoError(t, err)
	require.NoError(t, f.events.DeleteEvent(context.Background(), empty.ID))

	_, err = f.events.GetEvent(context.Background(), empty.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.events.DeleteEvent(context.Background(), empty.ID), apperr.ErrNotFound)
}
