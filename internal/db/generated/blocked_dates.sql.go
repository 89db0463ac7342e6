package generated

import (
	"context"
	"time"
)

const blockedDateColumns = `id, haven_id, start_date, end_date, reason, created_by, created_at`

func blockedDateScanTargets(i *BlockedDate) []interface{} {
	return []interface{}{
		&i.ID,
		&i.HavenID,
		&i.StartDate,
		&i.EndDate,
		&i.Reason,
		&i.CreatedBy,
		&i.CreatedAt,
	}
}

const createBlockedDate = `-- name: CreateBlockedDate :one
INSERT INTO blocked_dates (haven_id, start_date, end_date, reason, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + blockedDateColumns

type CreateBlockedDateParams struct {
	HavenID   int64
	StartDate string
	EndDate   string
	Reason    string
	CreatedBy *int64
	CreatedAt time.Time
}

func (q *Queries) CreateBlockedDate(ctx context.Context, arg CreateBlockedDateParams) (BlockedDate, error) {
	row := q.db.QueryRowContext(ctx, createBlockedDate,
		arg.HavenID,
		arg.StartDate,
		arg.EndDate,
		arg.Reason,
		arg.CreatedBy,
		arg.CreatedAt,
	)
	var i BlockedDate
	err := row.Scan(blockedDateScanTargets(&i)...)
	return i, err
}

const getBlockedDate = `-- name: GetBlockedDate :one
SELECT ` + blockedDateColumns + ` FROM blocked_dates WHERE id = ?`

func (q *Queries) GetBlockedDate(ctx context.Context, id int64) (BlockedDate, error) {
	row := q.db.QueryRowContext(ctx, getBlockedDate, id)
	var i BlockedDate
	err := row.Scan(blockedDateScanTargets(&i)...)
	return i, err
}

type ListBlockedDatesRow struct {
	BlockedDate
	HavenName string `json:"haven_name"`
}

const listBlockedDates = `-- name: ListBlockedDates :many
SELECT bd.id, bd.haven_id, bd.start_date, bd.end_date, bd.reason, bd.created_by, bd.created_at, h.name
FROM blocked_dates bd
JOIN havens h ON h.id = bd.haven_id
WHERE (? = 0 OR bd.haven_id = ?)
ORDER BY bd.start_date, bd.id`

func (q *Queries) ListBlockedDates(ctx context.Context, havenID int64) ([]ListBlockedDatesRow, error) {
	rows, err := q.db.QueryContext(ctx, listBlockedDates, havenID, havenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListBlockedDatesRow
	for rows.Next() {
		var i ListBlockedDatesRow
		targets := append(blockedDateScanTargets(&i.BlockedDate), &i.HavenName)
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

const deleteBlockedDate = `-- name: DeleteBlockedDate :execrows
DELETE FROM blocked_dates WHERE id = ?`

func (q *Queries) DeleteBlockedDate(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBlockedDate, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countBlockedOverlaps = `-- name: CountBlockedOverlaps :one
SELECT COUNT(*) FROM blocked_dates
WHERE haven_id = ? AND start_date < ? AND end_date >= ?`

// CountBlockedOverlaps counts blocked ranges touching any night of the stay [checkIn, checkOut).
func (q *Queries) CountBlockedOverlaps(ctx context.Context, havenID int64, checkIn, checkOut string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countBlockedOverlaps, havenID, checkOut, checkIn)
	var count int64
	err := row.Scan(&count)
	return count, err
}
