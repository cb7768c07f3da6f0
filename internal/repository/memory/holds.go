package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

func (s *Store) CreateHold(ctx context.Context, h *model.SeatHold) error {
	return s.readView(ctx, func(t *tx) error {
		if _, ok := s.eventView(t, h.EventID); !ok {
			return repository.ErrNotFound
		}
		if _, exists := s.holdView(t, h.ID); exists {
			return repository.ErrDuplicate
		}
		c := copyHold(h)
		c.Seats = sortedInts(c.Seats)
		t.holds[h.ID] = c
		t.newHolds[h.ID] = true
		return nil
	})
}

func (s *Store) GetHold(ctx context.Context, id string) (*model.SeatHold, error) {
	var out *model.SeatHold
	err := s.readView(ctx, func(t *tx) error {
		h, ok := s.holdView(t, id)
		if !ok {
			return repository.ErrNotFound
		}
		out = copyHold(h)
		return nil
	})
	return out, err
}

// TransitionHold stages the status change.  The expected status is checked
// now against the transaction's view and again at commit.
func (s *Store) TransitionHold(ctx context.Context, id string, from, to model.HoldStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: hold %s -> %s", repository.ErrInvalidTransition, from, to)
	}
	applied := false
	err := s.readView(ctx, func(t *tx) error {
		h, ok := s.holdView(t, id)
		if !ok {
			return repository.ErrNotFound
		}
		if h.Status != from {
			return nil
		}
		if !t.newHolds[id] {
			if _, staged := t.holdFrom[id]; !staged {
				t.holdFrom[id] = from
			}
		}
		next := copyHold(h)
		next.Status = to
		t.holds[id] = next
		applied = true
		return nil
	})
	return applied, err
}

func (s *Store) FindExpiredActiveHolds(ctx context.Context, before time.Time) ([]model.SeatHold, error) {
	var out []model.SeatHold
	err := s.readView(ctx, func(t *tx) error {
		for _, h := range s.allHoldsView(t) {
			if h.Status == model.HoldActive && !h.ExpiresAt.After(before) {
				out = append(out, *copyHold(h))
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) FindActiveHoldSeatNumbers(ctx context.Context, eventID int64, now time.Time) ([]int, error) {
	var out []int
	err := s.readView(ctx, func(t *tx) error {
		for _, h := range s.allHoldsView(t) {
			if h.EventID == eventID && h.LiveAt(now) {
				out = append(out, h.Seats...)
			}
		}
		return nil
	})
	sort.Ints(out)
	return out, err
}

func (s *Store) FindActiveHolds(ctx context.Context, f model.HoldFilter) ([]model.SeatHold, error) {
	var out []model.SeatHold
	err := s.readView(ctx, func(t *tx) error {
		for _, h := range s.allHoldsView(t) {
			if h.Status != model.HoldActive {
				continue
			}
			if f.EventID != nil && h.EventID != *f.EventID {
				continue
			}
			if f.UserID != "" && h.UserID != f.UserID {
				continue
			}
			out = append(out, *copyHold(h))
		}
		return nil
	})
	return out, err
}

func (s *Store) FindActiveHoldIDs(ctx context.Context, eventID int64, userID string) ([]string, error) {
	var out []string
	err := s.readView(ctx, func(t *tx) error {
		for _, h := range s.allHoldsView(t) {
			if h.Status == model.HoldActive && h.EventID == eventID && h.UserID == userID {
				out = append(out, h.ID)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}
