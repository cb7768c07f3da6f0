// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the booking log consumer.
package queue

// Routing keys.  Each is also the name of a durable queue on the default
// exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCanceledQueue  = "booking.canceled"
	HoldExpiredQueue      = "hold.expired"
)

// BookingConfirmedEvent is published when a hold is successfully converted
// into a booking.  It contains enough information for downstream consumers
// to log, notify, or trigger analytics without querying the primary
// database.
type BookingConfirmedEvent struct {
	BookingID     int64  `json:"booking_id"`
	HoldID        string `json:"hold_id"`
	UserID        string `json:"user_id"`
	EventID       int64  `json:"event_id"`
	EventName     string `json:"event_name"`
	EventDate     string `json:"event_date"`
	Location      string `json:"location"`
	Seats         []int  `json:"seats"`
	ConfirmedAt   string `json:"confirmed_at"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// BookingCanceledEvent is published when a confirmed booking is canceled
// and its seats return to the pool.
type BookingCanceledEvent struct {
	BookingID     int64  `json:"booking_id"`
	UserID        string `json:"user_id"`
	EventID       int64  `json:"event_id"`
	Seats         []int  `json:"seats"`
	CanceledAt    string `json:"canceled_at"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// HoldExpiredEvent is published when a hold times out, either by the
// sweeper or when a late confirmation finds it expired.
type HoldExpiredEvent struct {
	HoldID    string `json:"hold_id"`
	UserID    string `json:"user_id"`
	EventID   int64  `json:"event_id"`
	Seats     []int  `json:"seats"`
	ExpiredAt string `json:"expired_at"`
}
