package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// AvailabilityService reports seat counts per event.  Counts are computed
// on every call and never cached.
type AvailabilityService struct {
	store  repository.Store
	ledger *Ledger
	cfg    settings
}

// NewAvailabilityService returns an AvailabilityService over store.
func NewAvailabilityService(store repository.Store, opts ...Option) *AvailabilityService {
	return &AvailabilityService{store: store, ledger: NewLedger(store), cfg: applyOptions(opts)}
}

// Availability returns the seat summary of one event.
func (s *AvailabilityService) Availability(ctx context.Context, eventID int64) (*model.Availability, error) {
	var out *model.Availability
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.store.GetEvent(ctx, eventID)
		if err != nil {
			if isNotFound(err) {
				return apperr.NotFound("event %d not found", eventID)
			}
			return fmt.Errorf("load event %d: %w", eventID, err)
		}
		a, err := s.summarize(ctx, *event)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// AvailabilityAll returns the seat summary of every event.
func (s *AvailabilityService) AvailabilityAll(ctx context.Context) ([]model.Availability, error) {
	var out []model.Availability
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		events, err := s.store.ListEvents(ctx)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		out = make([]model.Availability, 0, len(events))
		for _, e := range events {
			a, err := s.summarize(ctx, e)
			if err != nil {
				return err
			}
			out = append(out, *a)
		}
		return nil
	})
	return out, err
}

func (s *AvailabilityService) summarize(ctx context.Context, e model.Event) (*model.Availability, error) {
	held, booked, err := s.ledger.Counts(ctx, e.ID, s.cfg.clock.Now())
	if err != nil {
		return nil, err
	}
	available := e.TotalSeats - held - booked
	if available < 0 {
		available = 0
	}
	return &model.Availability{
		EventID:        e.ID,
		Name:           e.Name,
		EventDate:      e.EventDate,
		Location:       e.Location,
		TotalSeats:     e.TotalSeats,
		HeldSeats:      held,
		BookedSeats:    booked,
		AvailableSeats: available,
	}, nil
}
