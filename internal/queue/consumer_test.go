package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestFormatLine(t *testing.T) {
	line, err := FormatLine(BookingConfirmedQueue, mustJSON(t, BookingConfirmedEvent{
		BookingID:   7,
		HoldID:      "h-1",
		UserID:      "alice",
		EventID:     3,
		EventName:   "Jazz Night",
		EventDate:   "2025-02-01T20:00:00Z",
		Location:    "Blue Room",
		Seats:       []int{4, 5},
		ConfirmedAt: "2025-01-01T12:00:00Z",
	}))
	require.NoError(t, err)
	assert.Equal(t, `[2025-01-01T12:00:00Z] Booking confirmed | booking_id=7 | hold_id=h-1 | user_id=alice | event_id=3 | event="Jazz Night" | date=2025-02-01T20:00:00Z | location="Blue Room" | seats=[4,5]`+"\n", line)

	line, err = FormatLine(BookingCanceledQueue, mustJSON(t, BookingCanceledEvent{
		BookingID: 7, UserID: "alice", EventID: 3, Seats: []int{4}, CanceledAt: "2025-01-02T00:00:00Z",
	}))
	require.NoError(t, err)
	assert.Equal(t, "[2025-01-02T00:00:00Z] Booking canceled | booking_id=7 | user_id=alice | event_id=3 | seats=[4]\n", line)

	line, err = FormatLine(HoldExpiredQueue, mustJSON(t, HoldExpiredEvent{
		HoldID: "h-2", UserID: "bob", EventID: 3, ExpiredAt: "2025-01-01T12:05:00Z",
	}))
	require.NoError(t, err)
	assert.Equal(t, "[2025-01-01T12:05:00Z] Hold expired | hold_id=h-2 | user_id=bob | event_id=3 | seats=[]\n", line)

	_, err = FormatLine("reservation.created", []byte(`{}`))
	assert.Error(t, err)

	_, err = FormatLine(HoldExpiredQueue, []byte(`{`))
	assert.Error(t, err)
}

func TestBookingLog_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	bl := NewBookingLog(path)

	body := mustJSON(t, BookingCanceledEvent{BookingID: 1, UserID: "u", EventID: 2, Seats: []int{1}, CanceledAt: "t"})
	require.NoError(t, bl.Handle(BookingCanceledQueue, body))
	require.NoError(t, bl.Handle(BookingCanceledQueue, body))
	assert.Error(t, bl.Handle("unknown", body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "[t] Booking canceled | booking_id=1 | user_id=u | event_id=2 | seats=[1]\n"
	assert.Equal(t, want+want, string(data))
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.PublishBookingConfirmed(context.Background(), BookingConfirmedEvent{}))
	assert.NoError(t, p.PublishBookingCanceled(context.Background(), BookingCanceledEvent{}))
	assert.NoError(t, p.PublishHoldExpired(context.Background(), HoldExpiredEvent{}))
}
