// Package apperr defines the business error kinds surfaced by the booking
// services.  Handlers translate a Kind into an HTTP status and a stable
// error code; anything that is not an *Error is treated as internal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a business failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindHoldExpired
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindHoldExpired:
		return "hold_expired"
	default:
		return "internal"
	}
}

// Error is a business failure with a human readable message.  Seat is set
// when the failure concerns one specific seat number.
type Error struct {
	Kind    Kind
	Message string
	Seat    int
}

func (e *Error) Error() string { return e.Message }

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Validation reports malformed or out-of-range input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing event, hold or booking.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a state clash such as an occupied seat.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// SeatConflict is a Conflict naming the offending seat.
func SeatConflict(seat int, format string, args ...any) *Error {
	e := Conflict(format, args...)
	e.Seat = seat
	return e
}

// HoldExpired reports that a hold is no longer confirmable.
func HoldExpired(format string, args ...any) *Error {
	return &Error{Kind: KindHoldExpired, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried anywhere in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinels usable with errors.Is.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrHoldExpired = &Error{Kind: KindHoldExpired}
)
