package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// Ledger answers which seats of an event are taken.  It never caches:
// every call reads the store, and callers that act on the answer must
// call it inside the transaction that holds the event lock.
type Ledger struct {
	store repository.Store
}

// NewLedger returns a Ledger reading from store.
func NewLedger(store repository.Store) *Ledger {
	return &Ledger{store: store}
}

// OccupiedSeats returns the seats held by ACTIVE holds that expire after
// now plus the seats of CONFIRMED bookings.
func (l *Ledger) OccupiedSeats(ctx context.Context, eventID int64, now time.Time) (map[int]struct{}, error) {
	held, err := l.store.FindActiveHoldSeatNumbers(ctx, eventID, now)
	if err != nil {
		return nil, fmt.Errorf("active hold seats: %w", err)
	}
	booked, err := l.store.FindConfirmedBookingSeatNumbers(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("confirmed booking seats: %w", err)
	}
	occupied := make(map[int]struct{}, len(held)+len(booked))
	for _, n := range held {
		occupied[n] = struct{}{}
	}
	for _, n := range booked {
		occupied[n] = struct{}{}
	}
	return occupied, nil
}

// BookedSeats returns the seats of CONFIRMED bookings only.
func (l *Ledger) BookedSeats(ctx context.Context, eventID int64) (map[int]struct{}, error) {
	booked, err := l.store.FindConfirmedBookingSeatNumbers(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("confirmed booking seats: %w", err)
	}
	out := make(map[int]struct{}, len(booked))
	for _, n := range booked {
		out[n] = struct{}{}
	}
	return out, nil
}

// Counts returns how many seats are held and booked, on the same basis as
// OccupiedSeats.
func (l *Ledger) Counts(ctx context.Context, eventID int64, now time.Time) (held, booked int, err error) {
	heldSeats, err := l.store.FindActiveHoldSeatNumbers(ctx, eventID, now)
	if err != nil {
		return 0, 0, fmt.Errorf("active hold seats: %w", err)
	}
	bookedSeats, err := l.store.FindConfirmedBookingSeatNumbers(ctx, eventID)
	if err != nil {
		return 0, 0, fmt.Errorf("confirmed booking seats: %w", err)
	}
	return len(heldSeats), len(bookedSeats), nil
}

// HighestOccupiedSeat returns the largest seat number currently taken, or
// 0 when the event is empty.
func (l *Ledger) HighestOccupiedSeat(ctx context.Context, eventID int64, now time.Time) (int, error) {
	occupied, err := l.OccupiedSeats(ctx, eventID, now)
	if err != nil {
		return 0, err
	}
	max := 0
	for n := range occupied {
		if n > max {
			max = n
		}
	}
	return max, nil
}
