package model

import "time"

// Booking is a permanent seat allocation created from exactly one hold.
// Its seat set always equals the seat set of that hold.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – event the seats belong to.
//  UserID     – owner, copied from the hold.
//  Status     – CONFIRMED or CANCELED.
//  CreatedAt  – confirmation timestamp.
//  CanceledAt – set once when the booking is canceled.
//  HoldID     – hold the booking was created from (unique).
//  Seats      – booked seat numbers, ascending.
type Booking struct {
	ID         int64         `json:"id"`                    // bookings.id
	EventID    int64         `json:"event_id"`              // bookings.event_id
	UserID     string        `json:"user_id"`               // bookings.user_id
	Status     BookingStatus `json:"status"`                // bookings.status
	CreatedAt  time.Time     `json:"created_at"`            // bookings.created_at
	CanceledAt *time.Time    `json:"canceled_at,omitempty"` // bookings.canceled_at (nullable)
	HoldID     string        `json:"hold_id"`               // bookings.hold_id
	Seats      []int         `json:"seats"`                 // booking_seats.seat_number
}

// BookingWithHolds decorates a booking with the ids of the same user's
// ACTIVE holds on the same event.
type BookingWithHolds struct {
	Booking
	HoldCount int      `json:"hold_count"`
	HoldIDs   []string `json:"hold_ids"`
}

// BookingsSummary is the response of a full bookings listing: every booking
// plus every ACTIVE hold.
type BookingsSummary struct {
	Bookings []BookingWithHolds `json:"bookings"`
	Holds    []SeatHold         `json:"holds"`
}
