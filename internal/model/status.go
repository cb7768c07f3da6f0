package model

import "fmt"

// HoldStatus is the lifecycle state of a SeatHold.
type HoldStatus string

const (
	HoldActive    HoldStatus = "ACTIVE"
	HoldConfirmed HoldStatus = "CONFIRMED"
	HoldExpired   HoldStatus = "EXPIRED"
)

// ParseHoldStatus converts a stored value into a HoldStatus.  Unknown values
// are rejected so corrupt rows never enter the state machine.
func ParseHoldStatus(s string) (HoldStatus, error) {
	switch HoldStatus(s) {
	case HoldActive, HoldConfirmed, HoldExpired:
		return HoldStatus(s), nil
	}
	return "", fmt.Errorf("unknown hold status %q", s)
}

// CanTransitionTo reports whether a hold may move from s to next.  ACTIVE
// may become CONFIRMED or EXPIRED; both of those are terminal.
func (s HoldStatus) CanTransitionTo(next HoldStatus) bool {
	switch s {
	case HoldActive:
		return next == HoldConfirmed || next == HoldExpired
	case HoldConfirmed, HoldExpired:
		return false
	}
	return false
}

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCanceled  BookingStatus = "CANCELED"
)

// ParseBookingStatus converts a stored value into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingConfirmed, BookingCanceled:
		return BookingStatus(s), nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// CanTransitionTo reports whether a booking may move from s to next.  Only
// CONFIRMED -> CANCELED is allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingConfirmed:
		return next == BookingCanceled
	case BookingCanceled:
		return false
	}
	return false
}
