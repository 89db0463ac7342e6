package generated

import (
	"context"
	"time"
)

const havenColumns = `id, name, slug, timezone, latitude, longitude, capacity, nightly_rate_cents, status, created_at, updated_at`

func scanHaven(row interface{ Scan(...interface{}) error }) (Haven, error) {
	var i Haven
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Timezone,
		&i.Latitude,
		&i.Longitude,
		&i.Capacity,
		&i.NightlyRateCents,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createHaven = `-- name: CreateHaven :one
INSERT INTO havens (name, slug, timezone, latitude, longitude, capacity, nightly_rate_cents, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + havenColumns

type CreateHavenParams struct {
	Name             string
	Slug             string
	Timezone         string
	Latitude         float64
	Longitude        float64
	Capacity         int64
	NightlyRateCents int64
	Status           string
	CreatedAt        time.Time
}

func (q *Queries) CreateHaven(ctx context.Context, arg CreateHavenParams) (Haven, error) {
	row := q.db.QueryRowContext(ctx, createHaven,
		arg.Name,
		arg.Slug,
		arg.Timezone,
		arg.Latitude,
		arg.Longitude,
		arg.Capacity,
		arg.NightlyRateCents,
		arg.Status,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanHaven(row)
}

const getHaven = `-- name: GetHaven :one
SELECT ` + havenColumns + ` FROM havens WHERE id = ?`

func (q *Queries) GetHaven(ctx context.Context, id int64) (Haven, error) {
	row := q.db.QueryRowContext(ctx, getHaven, id)
	return scanHaven(row)
}

const countHavensWithSlug = `-- name: CountHavensWithSlug :one
SELECT COUNT(*) FROM havens WHERE slug = ? OR slug LIKE ? || '-%'`

// CountHavensWithSlug counts havens using the slug or a numbered variant of it.
func (q *Queries) CountHavensWithSlug(ctx context.Context, slug string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countHavensWithSlug, slug, slug)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listHavens = `-- name: ListHavens :many
SELECT ` + havenColumns + ` FROM havens ORDER BY name`

func (q *Queries) ListHavens(ctx context.Context) ([]Haven, error) {
	rows, err := q.db.QueryContext(ctx, listHavens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Haven
	for rows.Next() {
		i, err := scanHaven(rows)
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

const countActiveHavens = `-- name: CountActiveHavens :one
SELECT COUNT(*) FROM havens WHERE status = 'active'`

func (q *Queries) CountActiveHavens(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActiveHavens)
	var count int64
	err := row.Scan(&count)
	return count, err
}
