package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-booking/internal/apperr"
	"github.com/iliyamo/event-ticket-booking/internal/logging"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// EventInput is the writable part of an event.
type EventInput struct {
	Name       string    `json:"name"`
	EventDate  time.Time `json:"event_date"`
	Location   string    `json:"location"`
	TotalSeats int       `json:"total_seats"`
}

func (in EventInput) normalized() EventInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.EventDate = in.EventDate.UTC()
	return in
}

func (in EventInput) key() model.EventKey {
	return model.EventKey{Name: in.Name, EventDate: in.EventDate, Location: in.Location}
}

// EventService manages event records.  Creation is idempotent on the
// business key (name, date, location).
type EventService struct {
	store  repository.Store
	ledger *Ledger
	cfg    settings
}

// NewEventService returns an EventService over store.
func NewEventService(store repository.Store, opts ...Option) *EventService {
	return &EventService{store: store, ledger: NewLedger(store), cfg: applyOptions(opts)}
}

// ValidateEvent checks an input after trimming.  Every violated rule is
// reported in one validation error, sorted by field.
func (s *EventService) ValidateEvent(in EventInput) error {
	in = in.normalized()
	var problems []string
	if in.Name == "" {
		problems = append(problems, "name: must not be blank")
	}
	if in.EventDate.IsZero() {
		problems = append(problems, "event_date: is required")
	} else if !in.EventDate.After(s.cfg.clock.Now()) {
		problems = append(problems, "event_date: must be in the future")
	}
	if in.Location == "" {
		problems = append(problems, "location: must not be blank")
	}
	if in.TotalSeats < 1 {
		problems = append(problems, "total_seats: must be at least 1")
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return apperr.Validation("%s", strings.Join(problems, "; "))
}

// CreateEvent stores a new event or returns the existing one with the same
// business key.
func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (*model.Event, error) {
	if err := s.ValidateEvent(in); err != nil {
		return nil, err
	}
	in = in.normalized()
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"name": in.Name, "event_date": in.EventDate})

	existing, err := s.store.FindEventByKey(ctx, in.key())
	switch {
	case err == nil:
		log.WithField("event_id", existing.ID).Info("event create deduplicated")
		return existing, nil
	case !isNotFound(err):
		return nil, fmt.Errorf("find event: %w", err)
	}

	now := s.cfg.clock.Now()
	e := &model.Event{
		Name:       in.Name,
		EventDate:  in.EventDate,
		Location:   in.Location,
		TotalSeats: in.TotalSeats,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with an identical create; return the winner.
			winner, ferr := s.store.FindEventByKey(ctx, in.key())
			if ferr != nil {
				return nil, fmt.Errorf("reload duplicate event: %w", ferr)
			}
			log.WithField("event_id", winner.ID).Info("event create deduplicated")
			return winner, nil
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	log.WithField("event_id", e.ID).Info("event created")
	return e, nil
}

// CreateEvents validates every input first and then creates them in order.
func (s *EventService) CreateEvents(ctx context.Context, ins []EventInput) ([]model.Event, error) {
	if len(ins) == 0 {
		return nil, apperr.Validation("at least one event is required")
	}
	for i, in := range ins {
		if err := s.ValidateEvent(in); err != nil {
			return nil, apperr.Validation("event[%d]: %s", i, err.Error())
		}
	}
	logging.FromContext(ctx).WithField("count", len(ins)).Info("creating events batch")
	out := make([]model.Event, 0, len(ins))
	for _, in := range ins {
		e, err := s.CreateEvent(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// ListEvents returns every event ordered by id.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// GetEvent returns one event or a not found error.
func (s *EventService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("event %d not found", id)
		}
		return nil, fmt.Errorf("load event %d: %w", id, err)
	}
	return e, nil
}

// UpdateEvent rewrites an event's metadata.  It runs under the event lock
// so a seat count can not shrink below a seat that is currently held or
// booked, and it writes with an optimistic version check.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, in EventInput) (*model.Event, error) {
	if err := s.ValidateEvent(in); err != nil {
		return nil, err
	}
	in = in.normalized()

	var out *model.Event
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.store.GetEventForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return apperr.NotFound("event %d not found", id)
			}
			return fmt.Errorf("lock event %d: %w", id, err)
		}
		other, err := s.store.FindEventByKey(ctx, in.key())
		switch {
		case err == nil && other.ID != id:
			return apperr.Conflict("another event already exists with same name, date, and location")
		case err != nil && !isNotFound(err):
			return fmt.Errorf("find event: %w", err)
		}
		now := s.cfg.clock.Now()
		highest, err := s.ledger.HighestOccupiedSeat(ctx, id, now)
		if err != nil {
			return err
		}
		if in.TotalSeats < highest {
			return apperr.Conflict("total_seats %d is below occupied seat %d", in.TotalSeats, highest)
		}

		e.Name = in.Name
		e.EventDate = in.EventDate
		e.Location = in.Location
		e.TotalSeats = in.TotalSeats
		e.UpdatedAt = now
		if err := s.store.UpdateEvent(ctx, e); err != nil {
			switch {
			case errors.Is(err, repository.ErrConcurrentUpdate):
				return apperr.Conflict("event %d was modified concurrently", id)
			case errors.Is(err, repository.ErrDuplicate):
				return apperr.Conflict("another event already exists with same name, date, and location")
			}
			return fmt.Errorf("update event %d: %w", id, err)
		}
		out = e
		return nil
	})
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		err = apperr.Conflict("event %d was modified concurrently", id)
	}
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithField("event_id", id).Info("event updated")
	return out, nil
}

// DeleteEvent removes an event that has no holds or bookings.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetEventForUpdate(ctx, id); err != nil {
			if isNotFound(err) {
				return apperr.NotFound("event %d not found", id)
			}
			return fmt.Errorf("lock event %d: %w", id, err)
		}
		if err := s.store.DeleteEvent(ctx, id); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperr.Conflict("event %d has holds or bookings", id)
			}
			return fmt.Errorf("delete event %d: %w", id, err)
		}
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		err = apperr.Conflict("event %d has holds or bookings", id)
	}
	if err != nil {
		return err
	}
	logging.FromContext(ctx).WithField("event_id", id).Info("event deleted")
	return nil
}
