package generated

import (
	"context"
	"time"
)

const notificationColumns = `id, kind, message, entity_type, entity_id, read_at, created_at`

func scanNotification(row interface{ Scan(...interface{}) error }) (Notification, error) {
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.Message,
		&i.EntityType,
		&i.EntityID,
		&i.ReadAt,
		&i.CreatedAt,
	)
	return i, err
}

const createNotification = `-- name: CreateNotification :one
INSERT INTO notifications (kind, message, entity_type, entity_id, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + notificationColumns

type CreateNotificationParams struct {
	Kind       string
	Message    string
	EntityType string
	EntityID   int64
	CreatedAt  time.Time
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRowContext(ctx, createNotification,
		arg.Kind,
		arg.Message,
		arg.EntityType,
		arg.EntityID,
		arg.CreatedAt,
	)
	return scanNotification(row)
}

const listNotifications = `-- name: ListNotifications :many
SELECT ` + notificationColumns + ` FROM notifications
WHERE (? = 0 OR read_at IS NULL)
  AND created_at > ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

type ListNotificationsParams struct {
	UnreadOnly bool
	Since      time.Time
	Limit      int64
}

func (q *Queries) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]Notification, error) {
	unread := 0
	if arg.UnreadOnly {
		unread = 1
	}
	rows, err := q.db.QueryContext(ctx, listNotifications, unread, arg.Since, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		i, err := scanNotification(rows)
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

const countUnreadNotifications = `-- name: CountUnreadNotifications :one
SELECT COUNT(*) FROM notifications WHERE read_at IS NULL`

func (q *Queries) CountUnreadNotifications(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnreadNotifications)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const hasUnreadNotification = `-- name: HasUnreadNotification :one
SELECT COUNT(*) FROM notifications
WHERE kind = ? AND entity_type = ? AND entity_id = ? AND read_at IS NULL`

func (q *Queries) HasUnreadNotification(ctx context.Context, kind, entityType string, entityID int64) (bool, error) {
	row := q.db.QueryRowContext(ctx, hasUnreadNotification, kind, entityType, entityID)
	var count int64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

const markNotificationRead = `-- name: MarkNotificationRead :execrows
UPDATE notifications SET read_at = ? WHERE id = ? AND read_at IS NULL`

func (q *Queries) MarkNotificationRead(ctx context.Context, readAt time.Time, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, markNotificationRead, readAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markAllNotificationsRead = `-- name: MarkAllNotificationsRead :execrows
UPDATE notifications SET read_at = ? WHERE read_at IS NULL`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, readAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, markAllNotificationsRead, readAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
