package deliverables

import (
	"context"
	"errors"
	"testing"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/testutil"
)

func TestApplyMovesStockWithStatus(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	haven := testutil.SeedHaven(t, database, "Stock Haven")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-05-01", "2026-05-03", "confirmed")
	towels := testutil.SeedInventoryItem(t, database, "Bath Towel", 10, 2)
	row := testutil.SeedDeliverable(t, database, booking.ID, &towels.ID, "Towels", 3, string(StatusPending))

	changes, err := PlanBatch([]Item{FromRow(row)}, StatusPreparing)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := Apply(ctx, database.Queries, []dbgen.Deliverable{row}, changes, time.Now().UTC()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	item, err := database.Queries.GetInventoryItem(ctx, towels.ID)
	if err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.Quantity != 7 {
		t.Fatalf("expected 7 on hand, got %d", item.Quantity)
	}
	updated, err := database.Queries.GetDeliverable(ctx, row.ID)
	if err != nil {
		t.Fatalf("load deliverable: %v", err)
	}
	if updated.Status != string(StatusPreparing) {
		t.Fatalf("status: %s", updated.Status)
	}
}

func TestApplyReportsInsufficientStock(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	haven := testutil.SeedHaven(t, database, "Short Haven")
	booking := testutil.SeedBooking(t, database, haven.ID, "2026-05-01", "2026-05-03", "confirmed")
	soap := testutil.SeedInventoryItem(t, database, "Soap", 1, 0)
	row := testutil.SeedDeliverable(t, database, booking.ID, &soap.ID, "Soap", 4, string(StatusPending))

	changes := []Change{{ID: row.ID, From: StatusPending, To: StatusPreparing, Delta: -4}}
	err := Apply(ctx, database.Queries, []dbgen.Deliverable{row}, changes, time.Now().UTC())

	var stockErr StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if stockErr.ItemName != "Soap" || stockErr.Needed != 4 || stockErr.OnHand != 1 {
		t.Fatalf("stock error: %+v", stockErr)
	}
}

func TestFromRowKeepsUnknownStatus(t *testing.T) {
	item := FromRow(dbgen.Deliverable{ID: 9, Status: "preparing"})
	if item.Status != StatusPreparing {
		t.Fatalf("expected canonical status, got %s", item.Status)
	}
	odd := FromRow(dbgen.Deliverable{ID: 10, Status: "Lost"})
	if CanTransition(odd.Status, StatusDelivered) {
		t.Fatal("unknown status should not transition")
	}
}
