package generated

import (
	"context"
	"time"
)

const bookingColumns = `id, reference, haven_id, guest_name, guest_email, guest_phone, guest_count, check_in, check_out, status, total_cents, notes, created_by, created_at, updated_at`

func bookingScanTargets(i *Booking) []interface{} {
	return []interface{}{
		&i.ID,
		&i.Reference,
		&i.HavenID,
		&i.GuestName,
		&i.GuestEmail,
		&i.GuestPhone,
		&i.GuestCount,
		&i.CheckIn,
		&i.CheckOut,
		&i.Status,
		&i.TotalCents,
		&i.Notes,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

func scanBooking(row interface{ Scan(...interface{}) error }) (Booking, error) {
	var i Booking
	err := row.Scan(bookingScanTargets(&i)...)
	return i, err
}

const createBooking = `-- name: CreateBooking :one
INSERT INTO bookings (
    reference, haven_id, guest_name, guest_email, guest_phone, guest_count,
    check_in, check_out, status, total_cents, notes, created_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + bookingColumns

type CreateBookingParams struct {
	Reference  string
	HavenID    int64
	GuestName  string
	GuestEmail string
	GuestPhone string
	GuestCount int64
	CheckIn    string
	CheckOut   string
	Status     string
	TotalCents int64
	Notes      string
	CreatedBy  *int64
	CreatedAt  time.Time
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, createBooking,
		arg.Reference,
		arg.HavenID,
		arg.GuestName,
		arg.GuestEmail,
		arg.GuestPhone,
		arg.GuestCount,
		arg.CheckIn,
		arg.CheckOut,
		arg.Status,
		arg.TotalCents,
		arg.Notes,
		arg.CreatedBy,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanBooking(row)
}

const getBooking = `-- name: GetBooking :one
SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

func (q *Queries) GetBooking(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx, getBooking, id)
	return scanBooking(row)
}

type ListBookingsRow struct {
	Booking
	HavenName string `json:"haven_name"`
	PaidCents int64  `json:"paid_cents"`
}

const listBookings = `-- name: ListBookings :many
SELECT b.id, b.reference, b.haven_id, b.guest_name, b.guest_email, b.guest_phone, b.guest_count,
       b.check_in, b.check_out, b.status, b.total_cents, b.notes, b.created_by, b.created_at, b.updated_at,
       h.name,
       COALESCE((SELECT SUM(p.amount_cents) FROM payments p WHERE p.booking_id = b.id AND p.status = 'paid'), 0)
FROM bookings b
JOIN havens h ON h.id = b.haven_id
WHERE (? = '' OR b.check_out > ?)
  AND (? = '' OR b.check_in < ?)
ORDER BY b.check_in DESC, b.id DESC`

type ListBookingsParams struct {
	// From and To bound the stay dates; empty strings disable each bound.
	From string
	To   string
}

func (q *Queries) ListBookings(ctx context.Context, arg ListBookingsParams) ([]ListBookingsRow, error) {
	rows, err := q.db.QueryContext(ctx, listBookings, arg.From, arg.From, arg.To, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListBookingsRow
	for rows.Next() {
		var i ListBookingsRow
		targets := append(bookingScanTargets(&i.Booking), &i.HavenName, &i.PaidCents)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateBooking = `-- name: UpdateBooking :one
UPDATE bookings
SET guest_name = ?, guest_email = ?, guest_phone = ?, guest_count = ?,
    check_in = ?, check_out = ?, status = ?, total_cents = ?, notes = ?, updated_at = ?
WHERE id = ?
RETURNING ` + bookingColumns

type UpdateBookingParams struct {
	GuestName  string
	GuestEmail string
	GuestPhone string
	GuestCount int64
	CheckIn    string
	CheckOut   string
	Status     string
	TotalCents int64
	Notes      string
	UpdatedAt  time.Time
	ID         int64
}

func (q *Queries) UpdateBooking(ctx context.Context, arg UpdateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, updateBooking,
		arg.GuestName,
		arg.GuestEmail,
		arg.GuestPhone,
		arg.GuestCount,
		arg.CheckIn,
		arg.CheckOut,
		arg.Status,
		arg.TotalCents,
		arg.Notes,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanBooking(row)
}

const expirePendingBooking = `-- name: ExpirePendingBooking :execrows
UPDATE bookings SET status = 'cancelled', updated_at = ?
WHERE id = ?
  AND status = 'pending'
  AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = bookings.id AND p.status = 'paid')`

// ExpirePendingBooking cancels the booking only while it is still pending and
// unpaid. It returns the number of rows changed.
func (q *Queries) ExpirePendingBooking(ctx context.Context, updatedAt time.Time, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, expirePendingBooking, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countOverlappingBookings = `-- name: CountOverlappingBookings :one
SELECT COUNT(*) FROM bookings
WHERE haven_id = ?
  AND status != 'cancelled'
  AND id != ?
  AND check_in < ?
  AND check_out > ?`

type CountOverlappingBookingsParams struct {
	HavenID   int64
	ExcludeID int64
	CheckIn   string
	CheckOut  string
}

// CountOverlappingBookings counts live bookings whose [check_in, check_out) intersects the given stay.
func (q *Queries) CountOverlappingBookings(ctx context.Context, arg CountOverlappingBookingsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countOverlappingBookings, arg.HavenID, arg.ExcludeID, arg.CheckOut, arg.CheckIn)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countBookingsInBlockedRange = `-- name: CountBookingsInBlockedRange :one
SELECT COUNT(*) FROM bookings
WHERE haven_id = ?
  AND status != 'cancelled'
  AND check_in <= ?
  AND check_out > ?`

// CountBookingsInBlockedRange counts live bookings occupying any night of the inclusive range.
func (q *Queries) CountBookingsInBlockedRange(ctx context.Context, havenID int64, startDate, endDate string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countBookingsInBlockedRange, havenID, endDate, startDate)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listStalePendingBookings = `-- name: ListStalePendingBookings :many
SELECT ` + bookingColumns + ` FROM bookings b
WHERE b.status = 'pending'
  AND b.created_at < ?
  AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = b.id AND p.status = 'paid')
ORDER BY b.id`

// ListStalePendingBookings returns pending bookings created before the cutoff with no paid payment.
func (q *Queries) ListStalePendingBookings(ctx context.Context, createdBefore time.Time) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listStalePendingBookings, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Booking
	for rows.Next() {
		i, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
