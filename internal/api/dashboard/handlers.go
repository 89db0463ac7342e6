// internal/api/dashboard/handlers.go
package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/api/htmx"
	"github.com/codr1/StaycationHaven/internal/bookings"
	appdb "github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
	dashboardtempl "github.com/codr1/StaycationHaven/internal/templates/components/dashboard"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
	"github.com/codr1/StaycationHaven/internal/weather"
)

const (
	dashboardQueryTimeout = 5 * time.Second
	weatherTimeout        = 4 * time.Second
	defaultRangeDays      = 30
)

// WeatherProvider returns current conditions at a coordinate.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (weather.Conditions, error)
}

var (
	queries     *dbgen.Queries
	forecaster  WeatherProvider
	clock       = time.Now
	queriesOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
// wx may be nil, in which case the page omits weather.
func InitHandlers(database *appdb.DB, wx WeatherProvider) {
	if database == nil {
		log.Warn().Msg("InitHandlers called with nil database; dashboard handlers will be unavailable")
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		forecaster = wx
	})
}

func loadQueries() *dbgen.Queries {
	return queries
}

// buildSummary runs the independent dashboard queries concurrently.
func buildSummary(ctx context.Context, q *dbgen.Queries, now time.Time, rangeStart, rangeEnd time.Time) (dashboardtempl.Summary, []dbgen.Haven, error) {
	var (
		havens   []dbgen.Haven
		stays    []dbgen.ListBookingsRow
		items    []dbgen.ListDeliverablesRow
		lowStock []dbgen.InventoryItem
		revenue  int64
		unread   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		havens, err = q.ListHavens(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stays, err = q.ListBookings(gctx, dbgen.ListBookingsParams{})
		return err
	})
	g.Go(func() error {
		var err error
		items, err = q.ListDeliverables(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		lowStock, err = q.ListInventoryItems(gctx, true)
		return err
	})
	g.Go(func() error {
		var err error
		revenue, err = q.SumPaidBetween(gctx, rangeStart, rangeEnd)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = q.CountUnreadNotifications(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return dashboardtempl.Summary{}, nil, err
	}

	summary := dashboardtempl.Summary{
		Date:                now.UTC().Format(apiutil.DateLayout),
		RangeStart:          rangeStart.Format(apiutil.DateLayout),
		RangeEnd:            rangeEnd.AddDate(0, 0, -1).Format(apiutil.DateLayout),
		RevenueCents:        revenue,
		LowStockItems:       int64(len(lowStock)),
		UnreadNotifications: unread,
		DeliverableGroups:   map[string]int64{},
	}

	// Each haven has its own idea of "today".
	today := make(map[int64]string, len(havens))
	active := make(map[int64]bool, len(havens))
	for _, h := range havens {
		today[h.ID] = bookings.LocalToday(now, h.Timezone)
		if h.Status == "active" {
			summary.ActiveHavens++
			active[h.ID] = true
		}
	}

	occupied := map[int64]bool{}
	live := map[int64]bool{}
	for _, b := range stays {
		if b.Status == bookings.StatusCancelled {
			continue
		}
		live[b.ID] = true
		if b.Status != bookings.StatusCheckedOut {
			summary.OutstandingCents += max(b.TotalCents-b.PaidCents, 0)
		}
		day, ok := today[b.HavenID]
		if !ok {
			continue
		}
		if b.CheckIn == day && (b.Status == bookings.StatusPending || b.Status == bookings.StatusConfirmed) {
			summary.Arrivals++
		}
		if b.CheckOut == day && b.Status == bookings.StatusCheckedIn {
			summary.Departures++
		}
		if b.CheckIn <= day && day < b.CheckOut && (b.Status == bookings.StatusConfirmed || b.Status == bookings.StatusCheckedIn) {
			summary.InHouse++
			// Occupancy is measured against active havens only.
			if active[b.HavenID] {
				occupied[b.HavenID] = true
			}
		}
	}
	if summary.ActiveHavens > 0 {
		summary.OccupancyRate = float64(len(occupied)) / float64(summary.ActiveHavens)
	}

	rows := make([]dbgen.Deliverable, 0, len(items))
	for _, item := range items {
		if live[item.BookingID] {
			rows = append(rows, item.Deliverable)
		}
	}
	for _, group := range deliverables.GroupItems(deliverables.FromRows(rows)) {
		summary.DeliverableGroups[string(group.Status)]++
	}

	return summary, havens, nil
}

func summaryFromRequest(ctx context.Context, q *dbgen.Queries, r *http.Request) (dashboardtempl.Summary, []dbgen.Haven, error) {
	now := clock()
	start, end, err := apiutil.DateRangeFromQuery(r, now, defaultRangeDays)
	if err != nil {
		return dashboardtempl.Summary{}, nil, err
	}
	return buildSummary(ctx, q, now, start, end)
}

// loadWeather fetches conditions for every active haven. Failures are kept
// per haven so one bad lookup does not hide the rest.
func loadWeather(ctx context.Context, havens []dbgen.Haven) []dashboardtempl.HavenWeather {
	if forecaster == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, weatherTimeout)
	defer cancel()

	var rows []dashboardtempl.HavenWeather
	for _, h := range havens {
		if h.Status == "active" {
			rows = append(rows, dashboardtempl.HavenWeather{HavenID: h.ID, HavenName: h.Name})
		}
	}

	var g errgroup.Group
	for i := range rows {
		haven := havenByID(havens, rows[i].HavenID)
		g.Go(func() error {
			conditions, err := forecaster.Current(ctx, haven.Latitude, haven.Longitude)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Int64("haven_id", haven.ID).Msg("Weather lookup failed")
				rows[i].Err = err
				return nil
			}
			rows[i].TemperatureC = conditions.TemperatureC
			rows[i].FeelsLikeC = conditions.FeelsLikeC
			rows[i].Description = conditions.Description
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

func havenByID(havens []dbgen.Haven, id int64) dbgen.Haven {
	for _, h := range havens {
		if h.ID == id {
			return h
		}
	}
	return dbgen.Haven{}
}

// HandleDashboardSummary returns the dashboard numbers for GET /api/admin/dashboard/summary.
func HandleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardQueryTimeout)
	defer cancel()

	summary, _, err := summaryFromRequest(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load dashboard")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, summary); err != nil {
		logger.Error().Err(err).Msg("Failed to write dashboard summary")
	}
}

// HandleDashboardCards renders the polling summary cards for GET /admin/dashboard/cards.
func HandleDashboardCards(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardQueryTimeout)
	defer cancel()

	summary, _, err := summaryFromRequest(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load dashboard")
		return
	}
	apiutil.RenderHTMLComponent(r.Context(), w, dashboardtempl.Cards(summary), nil, "Failed to render dashboard cards", "Failed to render dashboard")
}

// HandleDashboardPage renders the dashboard page for GET /admin.
func HandleDashboardPage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardQueryTimeout)
	defer cancel()

	summary, havens, err := summaryFromRequest(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load dashboard")
		return
	}

	component := dashboardtempl.Layout(dashboardtempl.PageData{
		Summary: summary,
		Weather: loadWeather(r.Context(), havens),
	})
	if !htmx.IsRequest(r) {
		component = layouts.Base("Dashboard", "dashboard", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render dashboard page", "Failed to render page")
}
