// cmd/server/server.go
package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/api"
	"github.com/codr1/StaycationHaven/internal/api/activitylogs"
	"github.com/codr1/StaycationHaven/internal/api/blockeddates"
	"github.com/codr1/StaycationHaven/internal/api/bookings"
	"github.com/codr1/StaycationHaven/internal/api/dashboard"
	"github.com/codr1/StaycationHaven/internal/api/deliverables"
	"github.com/codr1/StaycationHaven/internal/api/docs"
	"github.com/codr1/StaycationHaven/internal/api/employees"
	"github.com/codr1/StaycationHaven/internal/api/havens"
	"github.com/codr1/StaycationHaven/internal/api/inventory"
	"github.com/codr1/StaycationHaven/internal/api/notifications"
	"github.com/codr1/StaycationHaven/internal/api/payments"
	"github.com/codr1/StaycationHaven/internal/config"
	"github.com/codr1/StaycationHaven/internal/db"
	"github.com/codr1/StaycationHaven/internal/email"
	"github.com/codr1/StaycationHaven/internal/metrics"
	"github.com/codr1/StaycationHaven/internal/ratelimit"
	"github.com/codr1/StaycationHaven/internal/weather"
)

type deps struct {
	database *db.DB
	mailer   email.EmailSender
	weather  *weather.Client
}

type route struct {
	pattern string
	handler http.HandlerFunc
}

// pageRoutes serve HTML; htmx requests get the partial.
var pageRoutes = []route{
	{"GET /admin", dashboard.HandleDashboardPage},
	{"GET /admin/dashboard/cards", dashboard.HandleDashboardCards},
	{"GET /admin/notifications", notifications.HandleNotificationsPanel},
	{"GET /admin/notifications/badge", notifications.HandleNotificationBadge},
	{"GET /admin/bookings", bookings.HandleBookingsPage},
	{"GET /admin/payments", payments.HandlePaymentsPage},
	{"GET /admin/deliverables", deliverables.HandleDeliverablesBoard},
	{"GET /admin/inventory", inventory.HandleInventoryPage},
	{"GET /admin/blocked-dates", blockeddates.HandleBlockedDatesPage},
	{"GET /admin/activity-logs", activitylogs.HandleActivityLogsPage},
	{"GET /admin/employees", employees.HandleEmployeesPage},
	{"GET /docs", docs.HandleDocsIndex},
	{"GET /docs/{slug}", docs.HandleDocPage},
}

var apiRoutes = []route{
	{"GET /api/admin/havens", havens.HandleHavensList},
	{"POST /api/admin/havens", havens.HandleHavenCreate},
	{"GET /api/admin/havens/{id}/weather", havens.HandleHavenWeather},

	{"GET /api/admin/bookings", bookings.HandleBookingsList},
	{"POST /api/admin/bookings", bookings.HandleBookingCreate},
	{"GET /api/admin/bookings/export", bookings.HandleBookingsExport},
	{"GET /api/admin/bookings/{id}", bookings.HandleBookingDetail},
	{"PATCH /api/admin/bookings/{id}", bookings.HandleBookingUpdate},

	{"GET /api/admin/payments", payments.HandlePaymentsList},
	{"POST /api/admin/payments", payments.HandlePaymentCreate},
	{"PATCH /api/admin/payments/{id}", payments.HandlePaymentUpdate},

	{"GET /api/admin/deliverables", deliverables.HandleDeliverablesList},
	{"POST /api/admin/deliverables", deliverables.HandleDeliverablesCreate},
	{"PATCH /api/admin/deliverables", deliverables.HandleDeliverablesBatchUpdate},
	{"PATCH /api/admin/deliverables/{id}", deliverables.HandleDeliverableUpdate},

	{"GET /api/inventory", inventory.HandleInventoryList},
	{"POST /api/inventory", inventory.HandleInventoryCreate},
	{"PATCH /api/inventory/{id}", inventory.HandleInventoryUpdate},
	{"DELETE /api/inventory/{id}", inventory.HandleInventoryDelete},

	{"GET /api/admin/blocked-dates", blockeddates.HandleBlockedDatesList},
	{"POST /api/admin/blocked-dates", blockeddates.HandleBlockedDateCreate},
	{"DELETE /api/admin/blocked-dates/{id}", blockeddates.HandleBlockedDateDelete},

	{"GET /api/admin/activity-logs", activitylogs.HandleActivityLogsList},
	{"GET /api/admin/employee-activity", activitylogs.HandleEmployeeActivity},

	{"GET /api/admin/employees", employees.HandleEmployeesList},
	{"POST /api/admin/employees", employees.HandleEmployeeCreate},
	{"GET /api/admin/employees/{id}", employees.HandleEmployeeDetail},
	{"PATCH /api/admin/employees/{id}", employees.HandleEmployeeUpdate},

	{"GET /api/admin/notifications", notifications.HandleNotificationsList},
	{"POST /api/admin/notifications/read", notifications.HandleNotificationsRead},

	{"GET /api/admin/dashboard/summary", dashboard.HandleDashboardSummary},
}

func initHandlers(cfg *config.Config, d deps) {
	havens.InitHandlers(d.database, d.weather)
	bookings.InitHandlers(d.database, bookings.Options{
		PhoneRegion: cfg.Bookings.DefaultPhoneRegion,
		Mailer:      d.mailer,
	})
	payments.InitHandlers(d.database)
	deliverables.InitHandlers(d.database)
	inventory.InitHandlers(d.database)
	blockeddates.InitHandlers(d.database)
	activitylogs.InitHandlers(d.database.Queries)
	employees.InitHandlers(d.database, cfg.Bookings.DefaultPhoneRegion)
	notifications.InitHandlers(d.database)
	dashboard.InitHandlers(d.database, d.weather)
}

// newServer builds the HTTP server. The returned func releases the rate
// limiter's background cleanup.
func limiterConfig(cfg *config.Config) *ratelimit.Config {
	return &ratelimit.Config{
		RequestsPerWindow:  cfg.RateLimit.RequestsPerMinute,
		MutationsPerWindow: cfg.RateLimit.MutationsPerMinute,
		Window:             time.Minute,
		TrustProxy:         cfg.RateLimit.TrustProxy,
	}
}

func newServer(cfg *config.Config, d deps) (*http.Server, func()) {
	initHandlers(cfg, d)

	limiter := ratelimit.New(limiterConfig(cfg))

	router := http.NewServeMux()
	registerRoutes(router, cfg, d, limiter.Middleware(api.EmployeeKey))

	// metrics.Middleware sits directly on the mux so it sees the matched pattern.
	handler := api.ChainMiddleware(
		metrics.Middleware(router),
		api.WithEmployee(d.database.Queries),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, limiter.Close
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, d deps, limit func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.database.PingContext(ctx); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
			http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Features.EnableMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	for _, rt := range pageRoutes {
		mux.HandleFunc(rt.pattern, rt.handler)
	}
	for _, rt := range apiRoutes {
		mux.Handle(rt.pattern, limit(rt.handler))
	}

	staticDir := cfg.App.StaticDir
	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Ctx(r.Context()).Debug().
			Str("path", r.URL.Path).
			Str("static_dir", staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
