package memory

import (
	"context"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// GetEventForUpdate takes the event's mutex for the rest of the transaction
// and then loads the event.  The mutex is taken before the data lock so a
// waiting caller never blocks a committing one.
func (s *Store) GetEventForUpdate(ctx context.Context, id int64) (*model.Event, error) {
	var out *model.Event
	err := s.run(ctx, func(t *tx) error {
		if !t.locked[id] {
			t.unlocks = append(t.unlocks, s.locks.Lock(id))
			t.locked[id] = true
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		e, ok := s.eventView(t, id)
		if !ok {
			return repository.ErrNotFound
		}
		out = copyEvent(e)
		return nil
	})
	return out, err
}

func (s *Store) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	var out *model.Event
	err := s.readView(ctx, func(t *tx) error {
		e, ok := s.eventView(t, id)
		if !ok {
			return repository.ErrNotFound
		}
		out = copyEvent(e)
		return nil
	})
	return out, err
}

func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	err := s.readView(ctx, func(t *tx) error {
		for _, e := range s.allEventsView(t) {
			out = append(out, *e)
		}
		return nil
	})
	return out, err
}

func (s *Store) FindEventByKey(ctx context.Context, key model.EventKey) (*model.Event, error) {
	var out *model.Event
	err := s.readView(ctx, func(t *tx) error {
		for _, e := range s.allEventsView(t) {
			if sameKey(e.Key(), key) {
				out = copyEvent(e)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	return s.readView(ctx, func(t *tx) error {
		for _, other := range s.allEventsView(t) {
			if sameKey(other.Key(), e.Key()) {
				return repository.ErrDuplicate
			}
		}
		// Ids of rolled back inserts are not reused, like an auto-increment column.
		e.ID = s.nextEventID.Add(1)
		e.Version = 0
		t.events[e.ID] = copyEvent(e)
		t.newEvents[e.ID] = true
		return nil
	})
}

func (s *Store) UpdateEvent(ctx context.Context, e *model.Event) error {
	return s.readView(ctx, func(t *tx) error {
		cur, ok := s.eventView(t, e.ID)
		if !ok {
			return repository.ErrNotFound
		}
		if cur.Version != e.Version {
			return repository.ErrConcurrentUpdate
		}
		for _, other := range s.allEventsView(t) {
			if other.ID != e.ID && sameKey(other.Key(), e.Key()) {
				return repository.ErrDuplicate
			}
		}
		if _, staged := t.eventVersion[e.ID]; !staged && !t.newEvents[e.ID] {
			t.eventVersion[e.ID] = cur.Version
		}
		next := copyEvent(e)
		next.CreatedAt = cur.CreatedAt
		next.Version = cur.Version + 1
		t.events[e.ID] = next
		e.Version = next.Version
		return nil
	})
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	return s.readView(ctx, func(t *tx) error {
		if _, ok := s.eventView(t, id); !ok {
			return repository.ErrNotFound
		}
		for _, h := range s.allHoldsView(t) {
			if h.EventID == id {
				return repository.ErrConflict
			}
		}
		for _, b := range s.allBookingsView(t) {
			if b.EventID == id {
				return repository.ErrConflict
			}
		}
		t.deletedEvents[id] = true
		return nil
	})
}
