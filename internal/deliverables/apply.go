package deliverables

import (
	"context"
	"fmt"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

// StockError reports a move into Preparing that the linked stock cannot cover.
type StockError struct {
	DeliverableID int64
	ItemName      string
	Needed        int64
	OnHand        int64
}

func (e StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: need %d, have %d", e.ItemName, e.Needed, e.OnHand)
}

// FromRow converts a stored deliverable into the domain view. Unknown
// statuses are kept verbatim so they fail transition checks.
func FromRow(row dbgen.Deliverable) Item {
	status, err := ParseStatus(row.Status)
	if err != nil {
		status = Status(row.Status)
	}
	return Item{
		ID:             row.ID,
		BookingID:      row.BookingID,
		Name:           row.Name,
		Quantity:       row.Quantity,
		UnitPriceCents: row.UnitPriceCents,
		Status:         status,
	}
}

func FromRows(rows []dbgen.Deliverable) []Item {
	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = FromRow(row)
	}
	return items
}

// Apply writes planned changes with their stock adjustments. It must run in
// the caller's transaction so a failed change leaves nothing behind.
func Apply(ctx context.Context, q *dbgen.Queries, rows []dbgen.Deliverable, changes []Change, now time.Time) error {
	byID := make(map[int64]dbgen.Deliverable, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	for _, change := range changes {
		row, ok := byID[change.ID]
		if !ok {
			return fmt.Errorf("deliverable %d not loaded", change.ID)
		}
		if change.Delta != 0 && row.InventoryItemID != nil {
			affected, err := q.AdjustInventoryQuantity(ctx, *row.InventoryItemID, change.Delta, now)
			if err != nil {
				return fmt.Errorf("adjust stock for deliverable %d: %w", change.ID, err)
			}
			if affected == 0 {
				item, err := q.GetInventoryItem(ctx, *row.InventoryItemID)
				if err != nil {
					return fmt.Errorf("load inventory item %d: %w", *row.InventoryItemID, err)
				}
				return StockError{DeliverableID: row.ID, ItemName: item.Name, Needed: -change.Delta, OnHand: item.Quantity}
			}
		}
		if err := q.UpdateDeliverableStatus(ctx, string(change.To), now, change.ID); err != nil {
			return fmt.Errorf("update deliverable %d: %w", change.ID, err)
		}
	}
	return nil
}
