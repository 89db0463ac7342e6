package generated

import (
	"context"
	"time"
)

const inventoryColumns = `id, name, sku, category, unit, quantity, reorder_level, unit_cost_cents, created_at, updated_at`

func scanInventoryItem(row interface{ Scan(...interface{}) error }) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Sku,
		&i.Category,
		&i.Unit,
		&i.Quantity,
		&i.ReorderLevel,
		&i.UnitCostCents,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createInventoryItem = `-- name: CreateInventoryItem :one
INSERT INTO inventory_items (name, sku, category, unit, quantity, reorder_level, unit_cost_cents, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + inventoryColumns

type CreateInventoryItemParams struct {
	Name          string
	Sku           string
	Category      string
	Unit          string
	Quantity      int64
	ReorderLevel  int64
	UnitCostCents int64
	CreatedAt     time.Time
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRowContext(ctx, createInventoryItem,
		arg.Name,
		arg.Sku,
		arg.Category,
		arg.Unit,
		arg.Quantity,
		arg.ReorderLevel,
		arg.UnitCostCents,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanInventoryItem(row)
}

const getInventoryItem = `-- name: GetInventoryItem :one
SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = ?`

func (q *Queries) GetInventoryItem(ctx context.Context, id int64) (InventoryItem, error) {
	row := q.db.QueryRowContext(ctx, getInventoryItem, id)
	return scanInventoryItem(row)
}

const listInventoryItems = `-- name: ListInventoryItems :many
SELECT ` + inventoryColumns + ` FROM inventory_items
WHERE (? = 0 OR quantity <= reorder_level)
ORDER BY name`

// ListInventoryItems lists inventory, restricted to low-stock items when lowStockOnly is set.
func (q *Queries) ListInventoryItems(ctx context.Context, lowStockOnly bool) ([]InventoryItem, error) {
	flag := 0
	if lowStockOnly {
		flag = 1
	}
	rows, err := q.db.QueryContext(ctx, listInventoryItems, flag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		i, err := scanInventoryItem(rows)
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

const updateInventoryItem = `-- name: UpdateInventoryItem :one
UPDATE inventory_items
SET name = ?, sku = ?, category = ?, unit = ?, quantity = ?, reorder_level = ?, unit_cost_cents = ?, updated_at = ?
WHERE id = ?
RETURNING ` + inventoryColumns

type UpdateInventoryItemParams struct {
	Name          string
	Sku           string
	Category      string
	Unit          string
	Quantity      int64
	ReorderLevel  int64
	UnitCostCents int64
	UpdatedAt     time.Time
	ID            int64
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRowContext(ctx, updateInventoryItem,
		arg.Name,
		arg.Sku,
		arg.Category,
		arg.Unit,
		arg.Quantity,
		arg.ReorderLevel,
		arg.UnitCostCents,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanInventoryItem(row)
}

const adjustInventoryQuantity = `-- name: AdjustInventoryQuantity :execrows
UPDATE inventory_items
SET quantity = quantity + ?, updated_at = ?
WHERE id = ? AND quantity + ? >= 0`

// AdjustInventoryQuantity applies delta to the stock level. It affects no rows
// when the item is missing or the result would go negative.
func (q *Queries) AdjustInventoryQuantity(ctx context.Context, id, delta int64, updatedAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, adjustInventoryQuantity, delta, updatedAt, id, delta)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteInventoryItem = `-- name: DeleteInventoryItem :execrows
DELETE FROM inventory_items WHERE id = ?`

func (q *Queries) DeleteInventoryItem(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteInventoryItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countDeliverablesForItem = `-- name: CountDeliverablesForItem :one
SELECT COUNT(*) FROM deliverables WHERE inventory_item_id = ?`

func (q *Queries) CountDeliverablesForItem(ctx context.Context, inventoryItemID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countDeliverablesForItem, inventoryItemID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
