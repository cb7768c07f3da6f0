package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

type bookingRow struct {
	ID         int64        `db:"id"`
	EventID    int64        `db:"event_id"`
	UserID     string       `db:"user_id"`
	Status     string       `db:"status"`
	CreatedAt  time.Time    `db:"created_at"`
	CanceledAt sql.NullTime `db:"canceled_at"`
	HoldID     string       `db:"hold_id"`
}

type bookingSeatRow struct {
	BookingID  int64 `db:"booking_id"`
	SeatNumber int   `db:"seat_number"`
}

const bookingColumns = `id, event_id, user_id, status, created_at, canceled_at, hold_id`

// CreateBooking inserts the booking and its booking_seats rows.  A second
// booking for the same hold violates uq_bookings_hold and reports
// repository.ErrDuplicate.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	q := s.q(ctx)
	res, err := q.ExecContext(ctx, `
		INSERT INTO bookings (event_id, user_id, status, created_at, hold_id)
		VALUES (?, ?, ?, ?, ?)`,
		b.EventID, b.UserID, string(b.Status), b.CreatedAt.UTC(), b.HoldID)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	b.ID = id

	if len(b.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_number) VALUES `
	args := make([]interface{}, 0, len(b.Seats)*2)
	for i, n := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, b.ID, n)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	var row bookingRow
	if err := sqlx.GetContext(ctx, s.q(ctx), &row,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	out, err := s.attachBookingSeats(ctx, []bookingRow{row})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// CancelBooking is a compare-and-set from CONFIRMED.
func (s *Store) CancelBooking(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE bookings SET status = ?, canceled_at = ? WHERE id = ? AND status = ?`,
		string(model.BookingCanceled), at.UTC(), id, string(model.BookingConfirmed))
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) FindAllBookings(ctx context.Context) ([]model.Booking, error) {
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, s.q(ctx), &rows,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY id`); err != nil {
		return nil, err
	}
	return s.attachBookingSeats(ctx, rows)
}

func (s *Store) FindConfirmedBookingSeatNumbers(ctx context.Context, eventID int64) ([]int, error) {
	var seats []int
	err := sqlx.SelectContext(ctx, s.q(ctx), &seats, `
		SELECT bs.seat_number
		FROM booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE b.event_id = ? AND b.status = ?
		ORDER BY bs.seat_number`,
		eventID, string(model.BookingConfirmed))
	return seats, err
}

func (s *Store) ExistsConfirmedBooking(ctx context.Context, holdID, userID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.q(ctx), &exists, `
		SELECT EXISTS (
			SELECT 1 FROM bookings WHERE hold_id = ? AND user_id = ? AND status = ?
		)`, holdID, userID, string(model.BookingConfirmed))
	return exists, err
}

func (s *Store) attachBookingSeats(ctx context.Context, rows []bookingRow) ([]model.Booking, error) {
	if len(rows) == 0 {
		return []model.Booking{}, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	query, args, err := sqlx.In(
		`SELECT booking_id, seat_number FROM booking_seats WHERE booking_id IN (?) ORDER BY booking_id, seat_number`, ids)
	if err != nil {
		return nil, fmt.Errorf("build seat query: %w", err)
	}
	var seatRows []bookingSeatRow
	if err := sqlx.SelectContext(ctx, s.q(ctx), &seatRows, query, args...); err != nil {
		return nil, err
	}
	seats := make(map[int64][]int, len(rows))
	for _, sr := range seatRows {
		seats[sr.BookingID] = append(seats[sr.BookingID], sr.SeatNumber)
	}

	out := make([]model.Booking, 0, len(rows))
	for _, r := range rows {
		status, err := model.ParseBookingStatus(r.Status)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", r.ID, err)
		}
		b := model.Booking{
			ID:        r.ID,
			EventID:   r.EventID,
			UserID:    r.UserID,
			Status:    status,
			CreatedAt: r.CreatedAt.UTC(),
			HoldID:    r.HoldID,
			Seats:     seats[r.ID],
		}
		if r.CanceledAt.Valid {
			at := r.CanceledAt.Time.UTC()
			b.CanceledAt = &at
		}
		out = append(out, b)
	}
	return out, nil
}

var _ repository.BookingStore = (*Store)(nil)
