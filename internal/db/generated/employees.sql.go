package generated

import (
	"context"
	"time"
)

const employeeColumns = `id, first_name, last_name, email, phone, role, status, last_active_at, created_at, updated_at`

func scanEmployee(row interface{ Scan(...interface{}) error }) (Employee, error) {
	var i Employee
	err := row.Scan(
		&i.ID,
		&i.FirstName,
		&i.LastName,
		&i.Email,
		&i.Phone,
		&i.Role,
		&i.Status,
		&i.LastActiveAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanEmployees(rows interface {
	Next() bool
	Scan(...interface{}) error
	Close() error
	Err() error
}) ([]Employee, error) {
	defer rows.Close()
	var items []Employee
	for rows.Next() {
		i, err := scanEmployee(rows)
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

const createEmployee = `-- name: CreateEmployee :one
INSERT INTO employees (first_name, last_name, email, phone, role, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + employeeColumns

type CreateEmployeeParams struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Role      string
	Status    string
	CreatedAt time.Time
}

func (q *Queries) CreateEmployee(ctx context.Context, arg CreateEmployeeParams) (Employee, error) {
	row := q.db.QueryRowContext(ctx, createEmployee,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Phone,
		arg.Role,
		arg.Status,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanEmployee(row)
}

const getEmployee = `-- name: GetEmployee :one
SELECT ` + employeeColumns + ` FROM employees WHERE id = ?`

func (q *Queries) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	row := q.db.QueryRowContext(ctx, getEmployee, id)
	return scanEmployee(row)
}

const listEmployees = `-- name: ListEmployees :many
SELECT ` + employeeColumns + ` FROM employees ORDER BY last_name, first_name`

func (q *Queries) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := q.db.QueryContext(ctx, listEmployees)
	if err != nil {
		return nil, err
	}
	return scanEmployees(rows)
}

const listActiveAdmins = `-- name: ListActiveAdmins :many
SELECT ` + employeeColumns + ` FROM employees WHERE role = 'admin' AND status = 'active' ORDER BY id`

func (q *Queries) ListActiveAdmins(ctx context.Context) ([]Employee, error) {
	rows, err := q.db.QueryContext(ctx, listActiveAdmins)
	if err != nil {
		return nil, err
	}
	return scanEmployees(rows)
}

const updateEmployee = `-- name: UpdateEmployee :one
UPDATE employees
SET first_name = ?, last_name = ?, phone = ?, role = ?, status = ?, updated_at = ?
WHERE id = ?
RETURNING ` + employeeColumns

type UpdateEmployeeParams struct {
	FirstName string
	LastName  string
	Phone     *string
	Role      string
	Status    string
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdateEmployee(ctx context.Context, arg UpdateEmployeeParams) (Employee, error) {
	row := q.db.QueryRowContext(ctx, updateEmployee,
		arg.FirstName,
		arg.LastName,
		arg.Phone,
		arg.Role,
		arg.Status,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanEmployee(row)
}

const touchEmployeeActivity = `-- name: TouchEmployeeActivity :exec
UPDATE employees SET last_active_at = ? WHERE id = ?`

func (q *Queries) TouchEmployeeActivity(ctx context.Context, lastActiveAt time.Time, id int64) error {
	_, err := q.db.ExecContext(ctx, touchEmployeeActivity, lastActiveAt, id)
	return err
}
