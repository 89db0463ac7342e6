package generated

import (
	"context"
	"strings"
	"time"
)

const deliverableColumns = `id, booking_id, inventory_item_id, name, quantity, unit_price_cents, status, notes, created_at, updated_at`

func deliverableScanTargets(i *Deliverable) []interface{} {
	return []interface{}{
		&i.ID,
		&i.BookingID,
		&i.InventoryItemID,
		&i.Name,
		&i.Quantity,
		&i.UnitPriceCents,
		&i.Status,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

func scanDeliverable(row interface{ Scan(...interface{}) error }) (Deliverable, error) {
	var i Deliverable
	err := row.Scan(deliverableScanTargets(&i)...)
	return i, err
}

func (q *Queries) queryDeliverables(ctx context.Context, query string, args ...interface{}) ([]Deliverable, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Deliverable
	for rows.Next() {
		i, err := scanDeliverable(rows)
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

const createDeliverable = `-- name: CreateDeliverable :one
INSERT INTO deliverables (booking_id, inventory_item_id, name, quantity, unit_price_cents, status, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + deliverableColumns

type CreateDeliverableParams struct {
	BookingID       int64
	InventoryItemID *int64
	Name            string
	Quantity        int64
	UnitPriceCents  int64
	Status          string
	Notes           string
	CreatedAt       time.Time
}

func (q *Queries) CreateDeliverable(ctx context.Context, arg CreateDeliverableParams) (Deliverable, error) {
	row := q.db.QueryRowContext(ctx, createDeliverable,
		arg.BookingID,
		arg.InventoryItemID,
		arg.Name,
		arg.Quantity,
		arg.UnitPriceCents,
		arg.Status,
		arg.Notes,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanDeliverable(row)
}

const getDeliverable = `-- name: GetDeliverable :one
SELECT ` + deliverableColumns + ` FROM deliverables WHERE id = ?`

func (q *Queries) GetDeliverable(ctx context.Context, id int64) (Deliverable, error) {
	row := q.db.QueryRowContext(ctx, getDeliverable, id)
	return scanDeliverable(row)
}

const listDeliverablesByIDs = `-- name: ListDeliverablesByIDs :many
SELECT ` + deliverableColumns + ` FROM deliverables WHERE id IN (/*SLICE:ids*/?) ORDER BY id`

func (q *Queries) ListDeliverablesByIDs(ctx context.Context, ids []int64) ([]Deliverable, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := strings.Replace(listDeliverablesByIDs, "/*SLICE:ids*/?", placeholders, 1)
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return q.queryDeliverables(ctx, query, args...)
}

const listDeliverablesForBooking = `-- name: ListDeliverablesForBooking :many
SELECT ` + deliverableColumns + ` FROM deliverables WHERE booking_id = ? ORDER BY id`

func (q *Queries) ListDeliverablesForBooking(ctx context.Context, bookingID int64) ([]Deliverable, error) {
	return q.queryDeliverables(ctx, listDeliverablesForBooking, bookingID)
}

type ListDeliverablesRow struct {
	Deliverable
	BookingReference string `json:"booking_reference"`
	GuestName        string `json:"guest_name"`
	HavenName        string `json:"haven_name"`
	CheckIn          string `json:"check_in"`
}

const listDeliverables = `-- name: ListDeliverables :many
SELECT d.id, d.booking_id, d.inventory_item_id, d.name, d.quantity, d.unit_price_cents, d.status, d.notes, d.created_at, d.updated_at,
       b.reference, b.guest_name, h.name, b.check_in
FROM deliverables d
JOIN bookings b ON b.id = d.booking_id
JOIN havens h ON h.id = b.haven_id
WHERE (? = 0 OR d.booking_id = ?)
ORDER BY b.check_in DESC, d.booking_id, d.id`

// ListDeliverables lists add-on items with their booking context, optionally for one booking.
func (q *Queries) ListDeliverables(ctx context.Context, bookingID int64) ([]ListDeliverablesRow, error) {
	rows, err := q.db.QueryContext(ctx, listDeliverables, bookingID, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDeliverablesRow
	for rows.Next() {
		var i ListDeliverablesRow
		targets := append(deliverableScanTargets(&i.Deliverable), &i.BookingReference, &i.GuestName, &i.HavenName, &i.CheckIn)
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

const updateDeliverableStatus = `-- name: UpdateDeliverableStatus :exec
UPDATE deliverables SET status = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateDeliverableStatus(ctx context.Context, status string, updatedAt time.Time, id int64) error {
	_, err := q.db.ExecContext(ctx, updateDeliverableStatus, status, updatedAt, id)
	return err
}

const updateDeliverableDetails = `-- name: UpdateDeliverableDetails :one
UPDATE deliverables SET quantity = ?, notes = ?, updated_at = ? WHERE id = ?
RETURNING ` + deliverableColumns

func (q *Queries) UpdateDeliverableDetails(ctx context.Context, quantity int64, notes string, updatedAt time.Time, id int64) (Deliverable, error) {
	row := q.db.QueryRowContext(ctx, updateDeliverableDetails, quantity, notes, updatedAt, id)
	return scanDeliverable(row)
}
