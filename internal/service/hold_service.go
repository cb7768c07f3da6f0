package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
	"github.com/iliyamo/event-ticket-booking/internal/logging"
	"github.com/iliyamo/event-ticket-booking/internal/metrics"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// HoldService places seat holds.  All decisions about seat occupancy are
// made while the event lock is held, so two callers racing for the same
// seat are serialized and the second one sees the first one's hold.
type HoldService struct {
	store  repository.Store
	ledger *Ledger
	cfg    settings
}

// NewHoldService returns a HoldService over store.
func NewHoldService(store repository.Store, opts ...Option) *HoldService {
	return &HoldService{store: store, ledger: NewLedger(store), cfg: applyOptions(opts)}
}

// HoldSeats places an ACTIVE hold on seatNumbers for userID.  It fails
// with a validation error for a blank user, an empty or duplicated seat
// list or a seat outside 1..TotalSeats, with not found for an unknown
// event, and with a conflict naming the first requested seat that is
// already held or booked.  Nothing is written on failure.
func (s *HoldService) HoldSeats(ctx context.Context, eventID int64, userID string, seatNumbers []int) (*model.SeatHold, error) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"event_id": eventID, "user_id": userID})

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	seats, err := normalizeSeats(seatNumbers)
	if err != nil {
		return nil, err
	}

	var hold *model.SeatHold
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.store.GetEventForUpdate(ctx, eventID)
		if err != nil {
			if isNotFound(err) {
				return apperr.NotFound("event %d not found", eventID)
			}
			return fmt.Errorf("lock event %d: %w", eventID, err)
		}
		for _, n := range seats {
			if n < 1 || n > event.TotalSeats {
				return apperr.Validation("seat %d is out of range 1..%d", n, event.TotalSeats)
			}
		}

		now := s.cfg.clock.Now()
		occupied, err := s.ledger.OccupiedSeats(ctx, eventID, now)
		if err != nil {
			return err
		}
		for _, n := range seats {
			if _, taken := occupied[n]; taken {
				metrics.SeatConflicts.Inc()
				return apperr.SeatConflict(n, "seat %d is not available", n)
			}
		}

		h := &model.SeatHold{
			ID:        s.cfg.newID(),
			EventID:   eventID,
			UserID:    userID,
			Status:    model.HoldActive,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.holdTTL),
			Seats:     seats,
		}
		if err := s.store.CreateHold(ctx, h); err != nil {
			return fmt.Errorf("save hold: %w", err)
		}
		hold = h
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			log.WithError(err).Error("hold seats failed")
		} else {
			log.WithError(err).Info("hold seats rejected")
		}
		return nil, err
	}

	metrics.HoldsCreated.Inc()
	log.WithFields(logrus.Fields{
		"hold_id":    hold.ID,
		"seats":      hold.Seats,
		"expires_at": hold.ExpiresAt,
	}).Info("hold created")
	return hold, nil
}

// ListHolds returns ACTIVE holds matching f.
func (s *HoldService) ListHolds(ctx context.Context, f model.HoldFilter) ([]model.SeatHold, error) {
	holds, err := s.store.FindActiveHolds(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	if holds == nil {
		holds = []model.SeatHold{}
	}
	return holds, nil
}

// normalizeSeats rejects empty and duplicated seat lists and returns the
// seats in ascending order.
func normalizeSeats(in []int) ([]int, error) {
	if len(in) == 0 {
		return nil, apperr.Validation("seat_numbers must not be empty")
	}
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, n := range in {
		if _, dup := seen[n]; dup {
			return nil, apperr.Validation("seat %d is requested more than once", n)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}
