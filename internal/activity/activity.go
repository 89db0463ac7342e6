// Package activity writes audit log entries and dashboard notifications.
// Callers pass the transaction-bound queries so the entry commits or rolls
// back with the mutation it describes.
package activity

import (
	"context"
	"fmt"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionStatusChange = "status_change"
)

const (
	EntityHaven       = "haven"
	EntityEmployee    = "employee"
	EntityBooking     = "booking"
	EntityPayment     = "payment"
	EntityDeliverable = "deliverable"
	EntityInventory   = "inventory_item"
	EntityBlockedDate = "blocked_date"
)

const (
	KindLowStock          = "low_stock"
	KindBookingCreated    = "booking_created"
	KindBookingExpired    = "booking_expired"
	KindDeliverableStatus = "deliverable_status"
)

// Entry describes one audited change. A nil EmployeeID records a system action.
type Entry struct {
	EmployeeID  *int64
	Action      string
	EntityType  string
	EntityID    int64
	Description string
}

type logWriter interface {
	CreateActivityLog(ctx context.Context, arg dbgen.CreateActivityLogParams) (dbgen.ActivityLog, error)
}

type notificationWriter interface {
	CreateNotification(ctx context.Context, arg dbgen.CreateNotificationParams) (dbgen.Notification, error)
}

func Record(ctx context.Context, q logWriter, entry Entry, now time.Time) error {
	_, err := q.CreateActivityLog(ctx, dbgen.CreateActivityLogParams{
		EmployeeID:  entry.EmployeeID,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Description: entry.Description,
		CreatedAt:   now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("record %s %s %d: %w", entry.Action, entry.EntityType, entry.EntityID, err)
	}
	return nil
}

func Notify(ctx context.Context, q notificationWriter, kind, entityType string, entityID int64, message string, now time.Time) (dbgen.Notification, error) {
	notification, err := q.CreateNotification(ctx, dbgen.CreateNotificationParams{
		Kind:       kind,
		Message:    message,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  now.UTC(),
	})
	if err != nil {
		return dbgen.Notification{}, fmt.Errorf("notify %s for %s %d: %w", kind, entityType, entityID, err)
	}
	return notification, nil
}
