package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// eventRow mirrors the events table for sqlx scanning.
type eventRow struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	EventDate  time.Time `db:"event_date"`
	Location   string    `db:"location"`
	TotalSeats int       `db:"total_seats"`
	Version    int64     `db:"version"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r eventRow) toModel() model.Event {
	return model.Event{
		ID:         r.ID,
		Name:       r.Name,
		EventDate:  r.EventDate.UTC(),
		Location:   r.Location,
		TotalSeats: r.TotalSeats,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

const eventColumns = `id, name, event_date, location, total_seats, version, created_at, updated_at`

// GetEventForUpdate locks the events row until the surrounding transaction
// ends.  Outside WithTx the lock is released immediately.
func (s *Store) GetEventForUpdate(ctx context.Context, id int64) (*model.Event, error) {
	var row eventRow
	err := sqlx.GetContext(ctx, s.q(ctx), &row,
		`SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(classify(err))
	}
	e := row.toModel()
	return &e, nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	var row eventRow
	err := sqlx.GetContext(ctx, s.q(ctx), &row,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	e := row.toModel()
	return &e, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	var rows []eventRow
	if err := sqlx.SelectContext(ctx, s.q(ctx), &rows,
		`SELECT `+eventColumns+` FROM events ORDER BY id`); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// FindEventByKey relies on the table's case-insensitive collation for name
// and location.
func (s *Store) FindEventByKey(ctx context.Context, key model.EventKey) (*model.Event, error) {
	var row eventRow
	err := sqlx.GetContext(ctx, s.q(ctx), &row,
		`SELECT `+eventColumns+` FROM events WHERE name = ? AND event_date = ? AND location = ? LIMIT 1`,
		key.Name, key.EventDate.UTC(), key.Location)
	if err != nil {
		return nil, notFound(err)
	}
	e := row.toModel()
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	row := eventRow{
		Name:       e.Name,
		EventDate:  e.EventDate.UTC(),
		Location:   e.Location,
		TotalSeats: e.TotalSeats,
		CreatedAt:  e.CreatedAt.UTC(),
		UpdatedAt:  e.UpdatedAt.UTC(),
	}
	res, err := sqlx.NamedExecContext(ctx, s.q(ctx), `
		INSERT INTO events (name, event_date, location, total_seats, version, created_at, updated_at)
		VALUES (:name, :event_date, :location, :total_seats, 0, :created_at, :updated_at)`, row)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	e.Version = 0
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *model.Event) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE events
		SET name = ?, event_date = ?, location = ?, total_seats = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		e.Name, e.EventDate.UTC(), e.Location, e.TotalSeats, e.UpdatedAt.UTC(), e.ID, e.Version)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, gerr := s.GetEvent(ctx, e.ID); gerr != nil {
			return gerr
		}
		return repository.ErrConcurrentUpdate
	}
	e.Version++
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	var refs int
	if err := sqlx.GetContext(ctx, s.q(ctx), &refs, `
		SELECT (SELECT COUNT(*) FROM seat_holds WHERE event_id = ?) +
		       (SELECT COUNT(*) FROM bookings WHERE event_id = ?)`, id, id); err != nil {
		return err
	}
	if refs > 0 {
		return repository.ErrConflict
	}
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
