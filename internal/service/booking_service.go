package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
	"github.com/iliyamo/event-ticket-booking/internal/logging"
	"github.com/iliyamo/event-ticket-booking/internal/metrics"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// BookingService converts holds into bookings and manages the booking
// lifecycle afterwards.
type BookingService struct {
	store  repository.Store
	ledger *Ledger
	cfg    settings
}

// NewBookingService returns a BookingService over store.
func NewBookingService(store repository.Store, opts ...Option) *BookingService {
	return &BookingService{store: store, ledger: NewLedger(store), cfg: applyOptions(opts)}
}

// ConfirmBooking turns an ACTIVE, unexpired hold into a CONFIRMED booking
// with the same seats.  The booking insert and the hold transition commit
// together under the event lock.
//
// A hold found past its expiry is moved to EXPIRED and that change is
// committed before the hold expired error is returned.  A hold that is
// already CONFIRMED yields a conflict; an EXPIRED one yields hold expired.
func (s *BookingService) ConfirmBooking(ctx context.Context, holdID string) (*model.Booking, error) {
	return s.confirm(ctx, holdID, "")
}

// ErrHoldNotOwned is returned by ConfirmOwnedBooking when the hold belongs
// to another user.
var ErrHoldNotOwned = errors.New("hold belongs to another user")

// ConfirmOwnedBooking is ConfirmBooking restricted to holds placed by
// userID.  A hold owner never changes, so the check runs before the event
// lock is taken.
func (s *BookingService) ConfirmOwnedBooking(ctx context.Context, holdID, userID string) (*model.Booking, error) {
	return s.confirm(ctx, holdID, userID)
}

func (s *BookingService) confirm(ctx context.Context, holdID, owner string) (*model.Booking, error) {
	holdID = strings.TrimSpace(holdID)
	log := logging.FromContext(ctx).WithField("hold_id", holdID)
	if holdID == "" {
		return nil, apperr.Validation("hold_id is required")
	}

	initial, err := s.store.GetHold(ctx, holdID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("hold %s not found", holdID)
		}
		return nil, fmt.Errorf("load hold %s: %w", holdID, err)
	}
	log = log.WithFields(logrus.Fields{"event_id": initial.EventID, "user_id": initial.UserID})
	if owner != "" && initial.UserID != owner {
		log.WithField("caller", owner).Info("confirm booking rejected: foreign hold")
		return nil, ErrHoldNotOwned
	}

	var (
		booking   *model.Booking
		event     *model.Event
		expiredAt time.Time
		timedOut  bool
	)
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		ev, err := s.store.GetEventForUpdate(ctx, initial.EventID)
		if err != nil {
			if isNotFound(err) {
				log.Error("hold references a missing event")
				return apperr.NotFound("event %d not found", initial.EventID)
			}
			return fmt.Errorf("lock event %d: %w", initial.EventID, err)
		}
		event = ev

		hold, err := s.store.GetHold(ctx, holdID)
		if err != nil {
			return fmt.Errorf("reload hold %s: %w", holdID, err)
		}

		now := s.cfg.clock.Now()
		switch hold.Status {
		case model.HoldConfirmed:
			return apperr.Conflict("hold %s is already confirmed", holdID)
		case model.HoldExpired:
			return apperr.HoldExpired("hold %s has expired", holdID)
		}
		if !hold.ExpiresAt.After(now) {
			ok, err := s.store.TransitionHold(ctx, holdID, model.HoldActive, model.HoldExpired)
			if err != nil {
				return fmt.Errorf("expire hold %s: %w", holdID, err)
			}
			// Commit the expiry; the error is reported after WithTx returns.
			timedOut, expiredAt = ok, now
			if !ok {
				return apperr.HoldExpired("hold %s has expired", holdID)
			}
			return nil
		}

		exists, err := s.store.ExistsConfirmedBooking(ctx, holdID, hold.UserID)
		if err != nil {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if exists {
			return apperr.Conflict("hold %s already has a confirmed booking", holdID)
		}

		booked, err := s.ledger.BookedSeats(ctx, hold.EventID)
		if err != nil {
			return err
		}
		for _, n := range hold.Seats {
			if _, taken := booked[n]; taken {
				metrics.SeatConflicts.Inc()
				return apperr.SeatConflict(n, "seat %d became booked while confirming, please retry", n)
			}
		}

		b := &model.Booking{
			EventID:   hold.EventID,
			UserID:    hold.UserID,
			Status:    model.BookingConfirmed,
			CreatedAt: now,
			HoldID:    hold.ID,
			Seats:     append([]int(nil), hold.Seats...),
		}
		if err := s.store.CreateBooking(ctx, b); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("hold %s already has a booking", holdID)
			}
			return fmt.Errorf("save booking: %w", err)
		}
		ok, err := s.store.TransitionHold(ctx, holdID, model.HoldActive, model.HoldConfirmed)
		if err != nil {
			return fmt.Errorf("confirm hold %s: %w", holdID, err)
		}
		if !ok {
			return apperr.HoldExpired("hold %s is no longer active", holdID)
		}
		booking = b
		return nil
	})
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		err = apperr.HoldExpired("hold %s expired while confirming", holdID)
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			log.WithError(err).Error("confirm booking failed")
		} else {
			log.WithError(err).Info("confirm booking rejected")
		}
		return nil, err
	}

	if timedOut {
		metrics.HoldsExpired.Inc()
		log.Info("hold expired at confirmation")
		s.publishHoldExpired(ctx, initial, expiredAt)
		return nil, apperr.HoldExpired("hold %s has expired", holdID)
	}

	metrics.BookingsConfirmed.Inc()
	log.WithFields(logrus.Fields{"booking_id": booking.ID, "seats": booking.Seats}).Info("booking confirmed")
	if perr := s.cfg.publisher.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
		BookingID:     booking.ID,
		HoldID:        booking.HoldID,
		UserID:        booking.UserID,
		EventID:       booking.EventID,
		EventName:     event.Name,
		EventDate:     event.EventDate.UTC().Format(time.RFC3339),
		Location:      event.Location,
		Seats:         booking.Seats,
		ConfirmedAt:   booking.CreatedAt.UTC().Format(time.RFC3339),
		CorrelationID: logging.CorrelationID(ctx),
	}); perr != nil {
		log.WithError(perr).Warn("publish booking confirmed failed")
	}
	return booking, nil
}

// CancelBooking moves a CONFIRMED booking to CANCELED, freeing its seats.
// The originating hold keeps its CONFIRMED status.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	log := logging.FromContext(ctx).WithField("booking_id", bookingID)

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("booking %d not found", bookingID)
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if b.Status == model.BookingCanceled {
		return nil, apperr.Conflict("booking %d is already canceled", bookingID)
	}

	now := s.cfg.clock.Now()
	ok, err := s.store.CancelBooking(ctx, bookingID, now)
	if errors.Is(err, repository.ErrConcurrentUpdate) || (err == nil && !ok) {
		return nil, apperr.Conflict("booking %d is already canceled", bookingID)
	}
	if err != nil {
		log.WithError(err).Error("cancel booking failed")
		return nil, fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}
	b.Status = model.BookingCanceled
	b.CanceledAt = &now

	metrics.BookingsCanceled.Inc()
	log.WithField("seats", b.Seats).Info("booking canceled")
	if perr := s.cfg.publisher.PublishBookingCanceled(ctx, queue.BookingCanceledEvent{
		BookingID:     b.ID,
		UserID:        b.UserID,
		EventID:       b.EventID,
		Seats:         b.Seats,
		CanceledAt:    now.UTC().Format(time.RFC3339),
		CorrelationID: logging.CorrelationID(ctx),
	}); perr != nil {
		log.WithError(perr).Warn("publish booking canceled failed")
	}
	return b, nil
}

// ListBookings returns every booking, each with the owner's ACTIVE hold ids
// on the same event, plus every ACTIVE hold.
func (s *BookingService) ListBookings(ctx context.Context) (*model.BookingsSummary, error) {
	bookings, err := s.store.FindAllBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := &model.BookingsSummary{
		Bookings: make([]model.BookingWithHolds, 0, len(bookings)),
	}
	for _, b := range bookings {
		withHolds, err := s.decorate(ctx, b)
		if err != nil {
			return nil, err
		}
		out.Bookings = append(out.Bookings, *withHolds)
	}
	holds, err := s.store.FindActiveHolds(ctx, model.HoldFilter{})
	if err != nil {
		return nil, fmt.Errorf("list active holds: %w", err)
	}
	if holds == nil {
		holds = []model.SeatHold{}
	}
	out.Holds = holds
	return out, nil
}

// ViewBooking returns one booking with the owner's ACTIVE hold ids on the
// same event.
func (s *BookingService) ViewBooking(ctx context.Context, bookingID int64) (*model.BookingWithHolds, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("booking %d not found", bookingID)
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	return s.decorate(ctx, *b)
}

func (s *BookingService) decorate(ctx context.Context, b model.Booking) (*model.BookingWithHolds, error) {
	ids, err := s.store.FindActiveHoldIDs(ctx, b.EventID, b.UserID)
	if err != nil {
		return nil, fmt.Errorf("active hold ids: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return &model.BookingWithHolds{Booking: b, HoldCount: len(ids), HoldIDs: ids}, nil
}

func (s *BookingService) publishHoldExpired(ctx context.Context, h *model.SeatHold, at time.Time) {
	err := s.cfg.publisher.PublishHoldExpired(ctx, queue.HoldExpiredEvent{
		HoldID:    h.ID,
		UserID:    h.UserID,
		EventID:   h.EventID,
		Seats:     h.Seats,
		ExpiredAt: at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("hold_id", h.ID).Warn("publish hold expired failed")
	}
}
