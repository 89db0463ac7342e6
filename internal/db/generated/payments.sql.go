package generated

import (
	"context"
	"time"
)

const paymentColumns = `id, booking_id, amount_cents, method, status, reference, paid_at, recorded_by, created_at, updated_at`

func paymentScanTargets(i *Payment) []interface{} {
	return []interface{}{
		&i.ID,
		&i.BookingID,
		&i.AmountCents,
		&i.Method,
		&i.Status,
		&i.Reference,
		&i.PaidAt,
		&i.RecordedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

func scanPayment(row interface{ Scan(...interface{}) error }) (Payment, error) {
	var i Payment
	err := row.Scan(paymentScanTargets(&i)...)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (booking_id, amount_cents, method, status, reference, paid_at, recorded_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	BookingID   int64
	AmountCents int64
	Method      string
	Status      string
	Reference   string
	PaidAt      *time.Time
	RecordedBy  *int64
	CreatedAt   time.Time
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, createPayment,
		arg.BookingID,
		arg.AmountCents,
		arg.Method,
		arg.Status,
		arg.Reference,
		arg.PaidAt,
		arg.RecordedBy,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanPayment(row)
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`

func (q *Queries) GetPayment(ctx context.Context, id int64) (Payment, error) {
	row := q.db.QueryRowContext(ctx, getPayment, id)
	return scanPayment(row)
}

type ListPaymentsRow struct {
	Payment
	BookingReference string `json:"booking_reference"`
	GuestName        string `json:"guest_name"`
}

const listPayments = `-- name: ListPayments :many
SELECT p.id, p.booking_id, p.amount_cents, p.method, p.status, p.reference, p.paid_at, p.recorded_by, p.created_at, p.updated_at,
       b.reference, b.guest_name
FROM payments p
JOIN bookings b ON b.id = p.booking_id
WHERE (? = 0 OR p.booking_id = ?)
ORDER BY p.created_at DESC, p.id DESC`

// ListPayments lists payments, optionally for a single booking when bookingID is non-zero.
func (q *Queries) ListPayments(ctx context.Context, bookingID int64) ([]ListPaymentsRow, error) {
	rows, err := q.db.QueryContext(ctx, listPayments, bookingID, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListPaymentsRow
	for rows.Next() {
		var i ListPaymentsRow
		targets := append(paymentScanTargets(&i.Payment), &i.BookingReference, &i.GuestName)
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

const updatePaymentStatus = `-- name: UpdatePaymentStatus :one
UPDATE payments SET status = ?, paid_at = ?, updated_at = ? WHERE id = ?
RETURNING ` + paymentColumns

type UpdatePaymentStatusParams struct {
	Status    string
	PaidAt    *time.Time
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, updatePaymentStatus, arg.Status, arg.PaidAt, arg.UpdatedAt, arg.ID)
	return scanPayment(row)
}

const sumPaidForBooking = `-- name: SumPaidForBooking :one
SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE booking_id = ? AND status = 'paid'`

func (q *Queries) SumPaidForBooking(ctx context.Context, bookingID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumPaidForBooking, bookingID)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const sumPaidBetween = `-- name: SumPaidBetween :one
SELECT COALESCE(SUM(amount_cents), 0) FROM payments
WHERE status = 'paid' AND paid_at >= ? AND paid_at < ?`

func (q *Queries) SumPaidBetween(ctx context.Context, start, end time.Time) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumPaidBetween, start, end)
	var total int64
	err := row.Scan(&total)
	return total, err
}
