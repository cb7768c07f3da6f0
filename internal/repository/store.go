package repository

import (
	"context"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// Store is the persistence contract of the booking core.  Every method
// participates in the transaction carried by ctx when called inside
// WithTx; outside of WithTx each call is its own transaction.
//
// Two implementations exist: repository/mysql backs it with InnoDB row
// locks, repository/memory with a per-event mutex registry.  Both give
// GetEventForUpdate the same meaning: the caller holds exclusive access to
// the event's seat inventory until the enclosing WithTx returns.
type Store interface {
	// WithTx runs fn in a transaction.  A non-nil error from fn rolls the
	// transaction back; nested calls reuse the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	EventStore
	HoldStore
	BookingStore
}

// EventStore persists event records.
type EventStore interface {
	// GetEventForUpdate loads an event and acquires its lock for the rest
	// of the transaction.
	GetEventForUpdate(ctx context.Context, id int64) (*model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	// FindEventByKey matches name and location case-insensitively and
	// the date exactly.  It returns ErrNotFound when nothing matches.
	FindEventByKey(ctx context.Context, key model.EventKey) (*model.Event, error)
	// CreateEvent assigns e.ID and e.Version.  ErrDuplicate on a key clash.
	CreateEvent(ctx context.Context, e *model.Event) error
	// UpdateEvent writes metadata when the stored version equals
	// e.Version and bumps it; ErrConcurrentUpdate otherwise.
	UpdateEvent(ctx context.Context, e *model.Event) error
	// DeleteEvent removes an event.  ErrConflict when holds or bookings
	// reference it.
	DeleteEvent(ctx context.Context, id int64) error
}

// HoldStore persists seat holds.
type HoldStore interface {
	CreateHold(ctx context.Context, h *model.SeatHold) error
	GetHold(ctx context.Context, id string) (*model.SeatHold, error)
	// TransitionHold moves a hold from -> to only when its current status
	// is from.  It reports whether the transition was applied.
	TransitionHold(ctx context.Context, id string, from, to model.HoldStatus) (bool, error)
	// FindExpiredActiveHolds lists ACTIVE holds with ExpiresAt <= before.
	FindExpiredActiveHolds(ctx context.Context, before time.Time) ([]model.SeatHold, error)
	// FindActiveHoldSeatNumbers lists seats of ACTIVE holds of the event
	// whose ExpiresAt is strictly after now.
	FindActiveHoldSeatNumbers(ctx context.Context, eventID int64, now time.Time) ([]int, error)
	// FindActiveHolds lists ACTIVE holds matching the filter.
	FindActiveHolds(ctx context.Context, f model.HoldFilter) ([]model.SeatHold, error)
	// FindActiveHoldIDs lists the ids of a user's ACTIVE holds on an event.
	FindActiveHoldIDs(ctx context.Context, eventID int64, userID string) ([]string, error)
}

// BookingStore persists bookings.
type BookingStore interface {
	// CreateBooking assigns b.ID.  ErrDuplicate when the hold already has
	// a booking.
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	// CancelBooking moves a CONFIRMED booking to CANCELED and stamps at.
	// It reports whether the transition was applied.
	CancelBooking(ctx context.Context, id int64, at time.Time) (bool, error)
	FindAllBookings(ctx context.Context) ([]model.Booking, error)
	// FindConfirmedBookingSeatNumbers lists seats of CONFIRMED bookings.
	FindConfirmedBookingSeatNumbers(ctx context.Context, eventID int64) ([]int, error)
	ExistsConfirmedBooking(ctx context.Context, holdID, userID string) (bool, error)
}
