package bookings

import (
	"context"
	"fmt"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
)

// CancelAddOns cancels the booking's Pending and Preparing add-ons, returning
// held stock. Delivered items are left for a refund decision. It returns how
// many items were cancelled and must run inside the cancelling transaction.
func CancelAddOns(ctx context.Context, q *dbgen.Queries, bookingID int64, now time.Time) (int, error) {
	rows, err := q.ListDeliverablesForBooking(ctx, bookingID)
	if err != nil {
		return 0, fmt.Errorf("list add-ons for booking %d: %w", bookingID, err)
	}

	open := make([]deliverables.Item, 0, len(rows))
	for _, item := range deliverables.FromRows(rows) {
		if item.Status == deliverables.StatusPending || item.Status == deliverables.StatusPreparing {
			open = append(open, item)
		}
	}
	changes, err := deliverables.PlanBatch(open, deliverables.StatusCancelled)
	if err != nil {
		return 0, err
	}
	if err := deliverables.Apply(ctx, q, rows, changes, now); err != nil {
		return 0, err
	}
	return len(changes), nil
}
