package model

import "time"

// Event is a dated occurrence with a fixed number of numbered seats.
// Seats are identified by the integers 1..TotalSeats; there is no seat
// table, the seat universe is implied by TotalSeats.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name; part of the business key.
//  EventDate  – when the event takes place; part of the business key.
//  Location   – venue; part of the business key.
//  TotalSeats – number of seats, always >= 1.
//  Version    – optimistic concurrency counter for metadata updates.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last metadata update timestamp.
type Event struct {
	ID         int64     `json:"id"`          // events.id
	Name       string    `json:"name"`        // events.name
	EventDate  time.Time `json:"event_date"`  // events.event_date
	Location   string    `json:"location"`    // events.location
	TotalSeats int       `json:"total_seats"` // events.total_seats
	Version    int64     `json:"version"`     // events.version
	CreatedAt  time.Time `json:"created_at"`  // events.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // events.updated_at
}

// EventKey is the business identity of an event.  Two events with the same
// name and location (compared case-insensitively) on the same date are the
// same event.
type EventKey struct {
	Name      string
	EventDate time.Time
	Location  string
}

// Key returns the business key of e.
func (e Event) Key() EventKey {
	return EventKey{Name: e.Name, EventDate: e.EventDate, Location: e.Location}
}

// Availability is a point-in-time seat count summary for one event.
// AvailableSeats is TotalSeats minus held and booked seats, clamped at 0.
type Availability struct {
	EventID        int64     `json:"event_id"`
	Name           string    `json:"name"`
	EventDate      time.Time `json:"event_date"`
	Location       string    `json:"location"`
	TotalSeats     int       `json:"total_seats"`
	HeldSeats      int       `json:"held_seats"`
	BookedSeats    int       `json:"booked_seats"`
	AvailableSeats int       `json:"available_seats"`
}
