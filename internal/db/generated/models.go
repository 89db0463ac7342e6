package generated

import (
	"time"
)

type ActivityLog struct {
	ID          int64     `json:"id"`
	EmployeeID  *int64    `json:"employee_id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    int64     `json:"entity_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type BlockedDate struct {
	ID        int64     `json:"id"`
	HavenID   int64     `json:"haven_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason"`
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Booking struct {
	ID         int64     `json:"id"`
	Reference  string    `json:"reference"`
	HavenID    int64     `json:"haven_id"`
	GuestName  string    `json:"guest_name"`
	GuestEmail string    `json:"guest_email"`
	GuestPhone string    `json:"guest_phone"`
	GuestCount int64     `json:"guest_count"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	Notes      string    `json:"notes"`
	CreatedBy  *int64    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Deliverable struct {
	ID              int64     `json:"id"`
	BookingID       int64     `json:"booking_id"`
	InventoryItemID *int64    `json:"inventory_item_id"`
	Name            string    `json:"name"`
	Quantity        int64     `json:"quantity"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Employee struct {
	ID           int64      `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	LastActiveAt *time.Time `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Haven struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Timezone         string    `json:"timezone"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Capacity         int64     `json:"capacity"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type InventoryItem struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Sku           string    `json:"sku"`
	Category      string    `json:"category"`
	Unit          string    `json:"unit"`
	Quantity      int64     `json:"quantity"`
	ReorderLevel  int64     `json:"reorder_level"`
	UnitCostCents int64     `json:"unit_cost_cents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Notification struct {
	ID         int64      `json:"id"`
	Kind       string     `json:"kind"`
	Message    string     `json:"message"`
	EntityType string     `json:"entity_type"`
	EntityID   int64      `json:"entity_id"`
	ReadAt     *time.Time `json:"read_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Payment struct {
	ID          int64      `json:"id"`
	BookingID   int64      `json:"booking_id"`
	AmountCents int64      `json:"amount_cents"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	Reference   string     `json:"reference"`
	PaidAt      *time.Time `json:"paid_at"`
	RecordedBy  *int64     `json:"recorded_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
