package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/config"
	"github.com/codr1/StaycationHaven/internal/db"
	"github.com/codr1/StaycationHaven/internal/email"
	"github.com/codr1/StaycationHaven/internal/metrics"
)

const jobTimeout = 2 * time.Minute

// Job names as registered with the scheduler.
const (
	JobLowStockAlerts = "low_stock_alerts"
	JobPendingExpiry  = "pending_booking_expiry"
)

// RegisterJobs adds the low-stock alert and pending booking expiry jobs to
// the process-wide scheduler. mailer may be nil when SES is not configured.
func RegisterJobs(database *db.DB, mailer email.EmailSender, cfg *config.Config) error {
	svc, err := instance()
	if err != nil {
		return err
	}
	return svc.RegisterJobs(database, mailer, cfg)
}

func (s *Service) RegisterJobs(database *db.DB, mailer email.EmailSender, cfg *config.Config) error {
	if database == nil {
		return fmt.Errorf("scheduler jobs require database")
	}
	if cfg == nil {
		return fmt.Errorf("scheduler jobs require config")
	}

	expiryAge := time.Duration(cfg.Jobs.PendingExpiryHours) * time.Hour

	jobs := []struct {
		name string
		cron string
		run  func(ctx context.Context, now time.Time) error
	}{
		{
			name: JobLowStockAlerts,
			cron: cfg.Jobs.LowStockCron,
			run: func(ctx context.Context, now time.Time) error {
				_, err := AlertLowStock(ctx, database, mailer, now)
				return err
			},
		},
		{
			name: JobPendingExpiry,
			cron: cfg.Jobs.PendingExpiryCron,
			run: func(ctx context.Context, now time.Time) error {
				_, err := ExpirePendingBookings(ctx, database, mailer, expiryAge, now)
				return err
			},
		},
	}

	for _, job := range jobs {
		jobLogger := log.With().
			Str("component", job.name+"_job").
			Str("job", job.name).
			Logger()

		_, err := s.AddJob(job.name, job.cron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			ctx = jobLogger.WithContext(ctx)

			if err := job.run(ctx, time.Now().UTC()); err != nil {
				metrics.JobRuns.WithLabelValues(job.name, "error").Inc()
				jobLogger.Error().Err(err).Msg("Job failed")
				return
			}
			metrics.JobRuns.WithLabelValues(job.name, "ok").Inc()
		}, gocron.WithSingletonMode(gocron.LimitModeReschedule))
		if err != nil {
			return fmt.Errorf("add %s job: %w", job.name, err)
		}
	}
	return nil
}
