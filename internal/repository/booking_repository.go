package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/calendar-booking/internal/model"
)

// BookingRepo provides persistence for calendar bookings. The SQL it issues
// is shared by the MySQL and SQLite schemas; dates are stored as
// YYYY-MM-DD strings so lexical order is calendar order.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for readiness checks.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, name, whatsapp, time_range, date, created_at`

// ListByDate returns all bookings recorded under the given start date,
// ordered by time range.
func (r *BookingRepo) ListByDate(ctx context.Context, date string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE date = ? ORDER BY time_range, created_at`, date)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// ListAll returns every booking ordered by date ascending.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY date, time_range, created_at`)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// GetByID loads a single booking. ErrNotFound is returned when no row
// matches.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id).
		Scan(&b.ID, &b.Name, &b.WhatsApp, &b.TimeRange, &b.Date, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// Create inserts b with a freshly generated id and returns the stored
// record. Any id already set on b is ignored.
func (r *BookingRepo) Create(ctx context.Context, b model.Booking) (model.Booking, error) {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (id, name, whatsapp, time_range, date, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.WhatsApp, b.TimeRange, b.Date, b.CreatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// DeleteByID removes a booking. ErrNotFound is returned when nothing was
// deleted.
func (r *BookingRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.WhatsApp, &b.TimeRange, &b.Date, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
