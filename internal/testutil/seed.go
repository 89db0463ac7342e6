package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gosimple/slug"

	"github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

// SeedHaven inserts an active haven with a nightly rate of 2500.00 and capacity 4.
func SeedHaven(t *testing.T, database *db.DB, name string) dbgen.Haven {
	t.Helper()

	haven, err := database.Queries.CreateHaven(context.Background(), dbgen.CreateHavenParams{
		Name:             name,
		Slug:             slug.Make(name),
		Timezone:         "Asia/Manila",
		Latitude:         14.5995,
		Longitude:        120.9842,
		Capacity:         4,
		NightlyRateCents: 250000,
		Status:           "active",
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert haven: %v", err)
	}
	return haven
}

// SeedEmployee inserts an active employee with the given role.
func SeedEmployee(t *testing.T, database *db.DB, firstName, role string) dbgen.Employee {
	t.Helper()

	employee, err := database.Queries.CreateEmployee(context.Background(), dbgen.CreateEmployeeParams{
		FirstName: firstName,
		LastName:  "Tester",
		Email:     slug.Make(firstName) + "@haven.test",
		Role:      role,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert employee: %v", err)
	}
	return employee
}

// SeedBooking inserts a booking for the haven with the given stay and status.
func SeedBooking(t *testing.T, database *db.DB, havenID int64, checkIn, checkOut, status string) dbgen.Booking {
	t.Helper()

	reference := strings.ToUpper(slug.Make(fmt.Sprintf("%d-%s-%s-%s", havenID, checkIn, checkOut, status)))
	booking, err := database.Queries.CreateBooking(context.Background(), dbgen.CreateBookingParams{
		Reference:  reference,
		HavenID:    havenID,
		GuestName:  "Juan Dela Cruz",
		GuestEmail: "juan@example.com",
		GuestPhone: "+639171234567",
		GuestCount: 2,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Status:     status,
		TotalCents: 500000,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	return booking
}

// SeedInventoryItem inserts a stock item.
func SeedInventoryItem(t *testing.T, database *db.DB, name string, quantity, reorderLevel int64) dbgen.InventoryItem {
	t.Helper()

	item, err := database.Queries.CreateInventoryItem(context.Background(), dbgen.CreateInventoryItemParams{
		Name:          name,
		Category:      "Amenities",
		Unit:          "pc",
		Quantity:      quantity,
		ReorderLevel:  reorderLevel,
		UnitCostCents: 1500,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert inventory item: %v", err)
	}
	return item
}

// SeedDeliverable inserts an add-on for a booking, optionally linked to stock.
func SeedDeliverable(t *testing.T, database *db.DB, bookingID int64, inventoryItemID *int64, name string, quantity int64, status string) dbgen.Deliverable {
	t.Helper()

	deliverable, err := database.Queries.CreateDeliverable(context.Background(), dbgen.CreateDeliverableParams{
		BookingID:       bookingID,
		InventoryItemID: inventoryItemID,
		Name:            name,
		Quantity:        quantity,
		UnitPriceCents:  5000,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert deliverable: %v", err)
	}
	return deliverable
}

// SeedPayment inserts a payment; paid payments get paid_at set to now.
func SeedPayment(t *testing.T, database *db.DB, bookingID, amountCents int64, status string) dbgen.Payment {
	t.Helper()

	now := time.Now().UTC()
	var paidAt *time.Time
	if status == "paid" {
		paidAt = &now
	}
	payment, err := database.Queries.CreatePayment(context.Background(), dbgen.CreatePaymentParams{
		BookingID:   bookingID,
		AmountCents: amountCents,
		Method:      "cash",
		Status:      status,
		PaidAt:      paidAt,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	return payment
}
