package model

import "time"

// SeatHold is a time-bounded claim on a set of seats for one user and one
// event.  Holds are never deleted; they leave the ACTIVE state either by
// confirmation or by expiry.
//
// Fields:
//  ID        – UUID, returned to the client for confirmation.
//  EventID   – event the seats belong to.
//  UserID    – opaque user identifier supplied by the caller.
//  Status    – ACTIVE, CONFIRMED or EXPIRED.
//  CreatedAt – when the hold was placed.
//  ExpiresAt – CreatedAt plus the hold TTL.
//  Seats     – held seat numbers, ascending and unique.
type SeatHold struct {
	ID        string     `json:"id"`         // seat_holds.id
	EventID   int64      `json:"event_id"`   // seat_holds.event_id
	UserID    string     `json:"user_id"`    // seat_holds.user_id
	Status    HoldStatus `json:"status"`     // seat_holds.status
	CreatedAt time.Time  `json:"created_at"` // seat_holds.created_at
	ExpiresAt time.Time  `json:"expires_at"` // seat_holds.expires_at
	Seats     []int      `json:"seats"`      // seat_hold_items.seat_number
}

// LiveAt reports whether the hold still occupies its seats at now: it must
// be ACTIVE and its expiry must lie strictly after now.
func (h SeatHold) LiveAt(now time.Time) bool {
	return h.Status == HoldActive && h.ExpiresAt.After(now)
}

// HoldFilter narrows a listing of active holds.  Zero values mean "any".
type HoldFilter struct {
	EventID *int64
	UserID  string
}
