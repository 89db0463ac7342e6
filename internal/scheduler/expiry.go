package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/activity"
	bookingsapi "github.com/codr1/StaycationHaven/internal/api/bookings"
	"github.com/codr1/StaycationHaven/internal/bookings"
	"github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/email"
)

const expiryReason = "No payment was received in time."

var errNoLongerPending = errors.New("booking is no longer pending and unpaid")

// ExpirePendingBookings cancels pending bookings created more than maxAge
// before now that have no paid payment. Each booking is cancelled in its own
// transaction along with its open add-ons. A failure on one booking is
// logged and does not stop the rest. It returns the cancelled bookings.
func ExpirePendingBookings(ctx context.Context, database *db.DB, mailer email.EmailSender, maxAge time.Duration, now time.Time) ([]dbgen.Booking, error) {
	if maxAge <= 0 {
		return nil, nil
	}
	logger := log.Ctx(ctx)

	stale, err := database.Queries.ListStalePendingBookings(ctx, now.Add(-maxAge))
	if err != nil {
		return nil, fmt.Errorf("list stale pending bookings: %w", err)
	}

	var expired []dbgen.Booking
	for _, booking := range stale {
		bookingLogger := logger.With().Int64("booking_id", booking.ID).Str("reference", booking.Reference).Logger()

		addOns, err := expireBooking(ctx, database, booking, now)
		if errors.Is(err, errNoLongerPending) {
			bookingLogger.Info().Msg("Booking confirmed or paid since listing, not expiring")
			continue
		}
		if err != nil {
			bookingLogger.Error().Err(err).Msg("Failed to expire pending booking")
			continue
		}

		bookingLogger.Info().Int("add_ons_cancelled", addOns).Msg("Pending booking expired")
		booking.Status = bookings.StatusCancelled
		booking.UpdatedAt = now
		expired = append(expired, booking)

		if mailer != nil && booking.GuestEmail != "" {
			haven, err := database.Queries.GetHaven(ctx, booking.HavenID)
			if err != nil {
				bookingLogger.Warn().Err(err).Msg("Failed to load haven for cancellation email")
				continue
			}
			email.SendAsync(ctx, mailer, []string{booking.GuestEmail}, email.BuildBookingCancelled(bookingsapi.EmailDetails(booking, haven), expiryReason), &bookingLogger)
		}
	}
	return expired, nil
}

// expireBooking cancels one booking and its open add-ons in a transaction.
// The cancel is conditional on the booking still being pending with no paid
// payment; otherwise nothing changes and errNoLongerPending is returned.
func expireBooking(ctx context.Context, database *db.DB, booking dbgen.Booking, now time.Time) (int, error) {
	var addOns int
	err := database.RunInTx(ctx, func(txdb *db.DB) error {
		changed, err := txdb.Queries.ExpirePendingBooking(ctx, now, booking.ID)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if changed == 0 {
			return errNoLongerPending
		}
		n, err := bookings.CancelAddOns(ctx, txdb.Queries, booking.ID, now)
		if err != nil {
			return err
		}
		addOns = n

		description := fmt.Sprintf("Expired unpaid booking %s", booking.Reference)
		if n > 0 {
			description = fmt.Sprintf("%s and cancelled %d add-ons", description, n)
		}
		if err := activity.Record(ctx, txdb.Queries, activity.Entry{
			Action:      activity.ActionStatusChange,
			EntityType:  activity.EntityBooking,
			EntityID:    booking.ID,
			Description: description,
		}, now); err != nil {
			return err
		}
		message := fmt.Sprintf("Booking %s for %s expired without payment", booking.Reference, booking.GuestName)
		_, err = activity.Notify(ctx, txdb.Queries, activity.KindBookingExpired, activity.EntityBooking, booking.ID, message, now)
		return err
	})
	return addOns, err
}
