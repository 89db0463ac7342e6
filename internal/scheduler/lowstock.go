package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/activity"
	"github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/email"
	"github.com/codr1/StaycationHaven/internal/metrics"
)

type LowStockResult struct {
	LowStock int
	Alerted  []dbgen.InventoryItem
	// Mailed closes when the admin email has been handed to every recipient.
	Mailed <-chan struct{}
}

// AlertLowStock raises one unread low_stock notification per item at or below
// its reorder level. Items that already have an unread alert are left alone,
// so the job can run repeatedly without piling up duplicates. Newly alerted
// items are emailed to active admins.
func AlertLowStock(ctx context.Context, database *db.DB, mailer email.EmailSender, now time.Time) (LowStockResult, error) {
	logger := log.Ctx(ctx)
	result := LowStockResult{Mailed: closed()}

	low, err := database.Queries.ListInventoryItems(ctx, true)
	if err != nil {
		return result, fmt.Errorf("list low stock items: %w", err)
	}
	result.LowStock = len(low)
	metrics.LowStockItems.Set(float64(len(low)))
	if len(low) == 0 {
		return result, nil
	}

	err = database.RunInTx(ctx, func(txdb *db.DB) error {
		for _, item := range low {
			exists, err := txdb.Queries.HasUnreadNotification(ctx, activity.KindLowStock, activity.EntityInventory, item.ID)
			if err != nil {
				return fmt.Errorf("check alert for item %d: %w", item.ID, err)
			}
			if exists {
				continue
			}
			message := fmt.Sprintf("%s is low: %d left (reorder at %d)", item.Name, item.Quantity, item.ReorderLevel)
			if _, err := activity.Notify(ctx, txdb.Queries, activity.KindLowStock, activity.EntityInventory, item.ID, message, now); err != nil {
				return err
			}
			result.Alerted = append(result.Alerted, item)
		}
		return nil
	})
	if err != nil {
		result.Alerted = nil
		return result, err
	}
	if len(result.Alerted) == 0 {
		return result, nil
	}
	logger.Info().Int("alerted", len(result.Alerted)).Int("low_stock", len(low)).Msg("Low stock alerts raised")

	if mailer == nil {
		return result, nil
	}
	admins, err := database.Queries.ListActiveAdmins(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load admins for low stock email")
		return result, nil
	}
	recipients := make([]string, 0, len(admins))
	for _, admin := range admins {
		recipients = append(recipients, admin.Email)
	}
	lines := make([]email.LowStockLine, 0, len(result.Alerted))
	for _, item := range result.Alerted {
		lines = append(lines, email.LowStockLine{
			Name:         item.Name,
			Quantity:     item.Quantity,
			ReorderLevel: item.ReorderLevel,
			Unit:         item.Unit,
		})
	}
	result.Mailed = email.SendAsync(ctx, mailer, recipients, email.BuildLowStockAlert(lines), logger)
	return result, nil
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
