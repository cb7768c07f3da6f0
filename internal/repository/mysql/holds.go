package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// holdRow mirrors seat_holds; seats live in seat_hold_items.
type holdRow struct {
	ID        string    `db:"id"`
	EventID   int64     `db:"event_id"`
	UserID    string    `db:"user_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

type holdSeatRow struct {
	HoldID     string `db:"hold_id"`
	SeatNumber int    `db:"seat_number"`
}

const holdColumns = `id, event_id, user_id, status, created_at, expires_at`

// CreateHold inserts the hold and one seat_hold_items row per seat within
// the context's transaction.
func (s *Store) CreateHold(ctx context.Context, h *model.SeatHold) error {
	q := s.q(ctx)
	if _, err := q.ExecContext(ctx,
		`INSERT INTO seat_holds (`+holdColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.EventID, h.UserID, string(h.Status), h.CreatedAt.UTC(), h.ExpiresAt.UTC()); err != nil {
		return classify(err)
	}
	if len(h.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_hold_items (hold_id, seat_number) VALUES `
	args := make([]interface{}, 0, len(h.Seats)*2)
	for i, n := range h.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, h.ID, n)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) GetHold(ctx context.Context, id string) (*model.SeatHold, error) {
	var row holdRow
	if err := sqlx.GetContext(ctx, s.q(ctx), &row,
		`SELECT `+holdColumns+` FROM seat_holds WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	holds, err := s.attachSeats(ctx, []holdRow{row})
	if err != nil {
		return nil, err
	}
	return &holds[0], nil
}

// TransitionHold is a compare-and-set on status.
func (s *Store) TransitionHold(ctx context.Context, id string, from, to model.HoldStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: hold %s -> %s", repository.ErrInvalidTransition, from, to)
	}
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE seat_holds SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		var exists bool
		if err := sqlx.GetContext(ctx, s.q(ctx), &exists,
			`SELECT EXISTS (SELECT 1 FROM seat_holds WHERE id = ?)`, id); err != nil {
			return false, err
		}
		if !exists {
			return false, repository.ErrNotFound
		}
	}
	return n == 1, nil
}

func (s *Store) FindExpiredActiveHolds(ctx context.Context, before time.Time) ([]model.SeatHold, error) {
	var rows []holdRow
	if err := sqlx.SelectContext(ctx, s.q(ctx), &rows,
		`SELECT `+holdColumns+` FROM seat_holds WHERE status = ? AND expires_at <= ? ORDER BY expires_at, id`,
		string(model.HoldActive), before.UTC()); err != nil {
		return nil, err
	}
	return s.attachSeats(ctx, rows)
}

func (s *Store) FindActiveHoldSeatNumbers(ctx context.Context, eventID int64, now time.Time) ([]int, error) {
	var seats []int
	err := sqlx.SelectContext(ctx, s.q(ctx), &seats, `
		SELECT i.seat_number
		FROM seat_hold_items i
		JOIN seat_holds h ON h.id = i.hold_id
		WHERE h.event_id = ? AND h.status = ? AND h.expires_at > ?
		ORDER BY i.seat_number`,
		eventID, string(model.HoldActive), now.UTC())
	return seats, err
}

func (s *Store) FindActiveHolds(ctx context.Context, f model.HoldFilter) ([]model.SeatHold, error) {
	where := []string{"status = ?"}
	args := []interface{}{string(model.HoldActive)}
	if f.EventID != nil {
		where = append(where, "event_id = ?")
		args = append(args, *f.EventID)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	var rows []holdRow
	if err := sqlx.SelectContext(ctx, s.q(ctx), &rows,
		`SELECT `+holdColumns+` FROM seat_holds WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, id`,
		args...); err != nil {
		return nil, err
	}
	return s.attachSeats(ctx, rows)
}

func (s *Store) FindActiveHoldIDs(ctx context.Context, eventID int64, userID string) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, s.q(ctx), &ids,
		`SELECT id FROM seat_holds WHERE event_id = ? AND user_id = ? AND status = ? ORDER BY id`,
		eventID, userID, string(model.HoldActive))
	return ids, err
}

// attachSeats loads seat_hold_items for rows in one query.
func (s *Store) attachSeats(ctx context.Context, rows []holdRow) ([]model.SeatHold, error) {
	if len(rows) == 0 {
		return []model.SeatHold{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	query, args, err := sqlx.In(
		`SELECT hold_id, seat_number FROM seat_hold_items WHERE hold_id IN (?) ORDER BY hold_id, seat_number`, ids)
	if err != nil {
		return nil, fmt.Errorf("build seat query: %w", err)
	}
	var seatRows []holdSeatRow
	if err := sqlx.SelectContext(ctx, s.q(ctx), &seatRows, query, args...); err != nil {
		return nil, err
	}
	seats := make(map[string][]int, len(rows))
	for _, sr := range seatRows {
		seats[sr.HoldID] = append(seats[sr.HoldID], sr.SeatNumber)
	}

	out := make([]model.SeatHold, 0, len(rows))
	for _, r := range rows {
		status, err := model.ParseHoldStatus(r.Status)
		if err != nil {
			return nil, fmt.Errorf("hold %s: %w", r.ID, err)
		}
		out = append(out, model.SeatHold{
			ID:        r.ID,
			EventID:   r.EventID,
			UserID:    r.UserID,
			Status:    status,
			CreatedAt: r.CreatedAt.UTC(),
			ExpiresAt: r.ExpiresAt.UTC(),
			Seats:     seats[r.ID],
		})
	}
	return out, nil
}
