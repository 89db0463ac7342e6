package generated

import (
	"context"
	"time"
)

const createActivityLog = `-- name: CreateActivityLog :one
INSERT INTO activity_logs (employee_id, action, entity_type, entity_id, description, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, employee_id, action, entity_type, entity_id, description, created_at`

type CreateActivityLogParams struct {
	EmployeeID  *int64
	Action      string
	EntityType  string
	EntityID    int64
	Description string
	CreatedAt   time.Time
}

func (q *Queries) CreateActivityLog(ctx context.Context, arg CreateActivityLogParams) (ActivityLog, error) {
	row := q.db.QueryRowContext(ctx, createActivityLog,
		arg.EmployeeID,
		arg.Action,
		arg.EntityType,
		arg.EntityID,
		arg.Description,
		arg.CreatedAt,
	)
	var i ActivityLog
	err := row.Scan(
		&i.ID,
		&i.EmployeeID,
		&i.Action,
		&i.EntityType,
		&i.EntityID,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

type ListActivityLogsRow struct {
	ActivityLog
	EmployeeName string `json:"employee_name"`
}

const listActivityLogs = `-- name: ListActivityLogs :many
SELECT a.id, a.employee_id, a.action, a.entity_type, a.entity_id, a.description, a.created_at,
       COALESCE(e.first_name || ' ' || e.last_name, 'System')
FROM activity_logs a
LEFT JOIN employees e ON e.id = a.employee_id
WHERE a.created_at >= ? AND a.created_at < ?
ORDER BY a.created_at DESC, a.id DESC`

func (q *Queries) ListActivityLogs(ctx context.Context, start, end time.Time) ([]ListActivityLogsRow, error) {
	rows, err := q.db.QueryContext(ctx, listActivityLogs, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListActivityLogsRow
	for rows.Next() {
		var i ListActivityLogsRow
		if err := rows.Scan(
			&i.ID,
			&i.EmployeeID,
			&i.Action,
			&i.EntityType,
			&i.EntityID,
			&i.Description,
			&i.CreatedAt,
			&i.EmployeeName,
		); err != nil {
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

type EmployeeActivityRow struct {
	EmployeeID    int64      `json:"employee_id"`
	EmployeeName  string     `json:"employee_name"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	LastActiveAt  *time.Time `json:"last_active_at"`
	Total         int64      `json:"total"`
	Creates       int64      `json:"creates"`
	Updates       int64      `json:"updates"`
	Deletes       int64      `json:"deletes"`
	StatusChanges int64      `json:"status_changes"`
}

const employeeActivitySummary = `-- name: EmployeeActivitySummary :many
SELECT e.id, e.first_name || ' ' || e.last_name, e.role, e.status, e.last_active_at,
       COUNT(a.id),
       COALESCE(SUM(CASE WHEN a.action = 'create' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN a.action = 'update' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN a.action = 'delete' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN a.action = 'status_change' THEN 1 ELSE 0 END), 0)
FROM employees e
LEFT JOIN activity_logs a ON a.employee_id = e.id AND a.created_at >= ? AND a.created_at < ?
GROUP BY e.id
ORDER BY COUNT(a.id) DESC, e.last_name, e.first_name`

// EmployeeActivitySummary counts each employee's logged actions in [start, end).
func (q *Queries) EmployeeActivitySummary(ctx context.Context, start, end time.Time) ([]EmployeeActivityRow, error) {
	rows, err := q.db.QueryContext(ctx, employeeActivitySummary, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EmployeeActivityRow
	for rows.Next() {
		var i EmployeeActivityRow
		if err := rows.Scan(
			&i.EmployeeID,
			&i.EmployeeName,
			&i.Role,
			&i.Status,
			&i.LastActiveAt,
			&i.Total,
			&i.Creates,
			&i.Updates,
			&i.Deletes,
			&i.StatusChanges,
		); err != nil {
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
