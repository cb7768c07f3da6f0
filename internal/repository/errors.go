// Package repository defines the storage contract used by the booking
// services together with the sentinel errors every implementation
// reports.  These sentinel values allow higher layers to distinguish
// between different failure scenarios without knowing which backend is in
// use.  For example, ErrNotFound indicates that a row does not exist,
// while ErrDuplicate signals that a unique business key is already taken.
package repository

import "errors"

// ErrNotFound is returned when an event, hold or booking does not exist.
// Services translate this into a NotFound business error.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update would violate a unique
// key, such as two events sharing name, date and location or two bookings
// referencing the same hold.
var ErrDuplicate = errors.New("duplicate key")

// ErrConflict is returned when a delete cannot be performed because of
// dependent records, e.g. deleting an event that still has holds or
// bookings.
var ErrConflict = errors.New("conflict")

// ErrConcurrentUpdate is returned when a compare-and-set could not be
// applied because another writer changed the row first.  Optimistic event
// updates report it on a version mismatch; the in-memory store also reports
// it at commit when a staged status transition lost a race.
var ErrConcurrentUpdate = errors.New("concurrent update")

// ErrInvalidTransition is returned when a caller asks for a status change
// the lifecycle does not allow, such as EXPIRED -> CONFIRMED.
var ErrInvalidTransition = errors.New("invalid status transition")
