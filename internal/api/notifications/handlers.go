// internal/api/notifications/handlers.go
package notifications

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/api/htmx"
	appdb "github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	notificationtempl "github.com/codr1/StaycationHaven/internal/templates/components/notifications"
)

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	queriesOnce sync.Once
)

const (
	notificationsQueryTimeout = 5 * time.Second
	notificationsListLimit    = 25
	notificationsMaxLimit     = 200
)

// ListResponse is the polling payload: the newest notifications plus the
// unread total, which may exceed len(Rows).
type ListResponse struct {
	Rows        []dbgen.Notification `json:"rows"`
	UnreadCount int64                `json:"unread_count"`
	ServerTime  time.Time            `json:"server_time"`
}

type readRequest struct {
	IDs []int64 `json:"ids" validate:"omitempty,max=200,dive,gt=0"`
	All bool    `json:"all"`
}

func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		store = database
	})
}

func loadQueries() *dbgen.Queries {
	return queries
}

func loadDB() *appdb.DB {
	return store
}

func listParams(r *http.Request) (dbgen.ListNotificationsParams, error) {
	query := r.URL.Query()
	params := dbgen.ListNotificationsParams{
		UnreadOnly: apiutil.ParseBoolField(query.Get("unread")),
		Limit:      notificationsListLimit,
	}
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, apiutil.FieldError{Field: "since", Reason: "must be an RFC 3339 timestamp"}
		}
		params.Since = since.UTC()
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := apiutil.ParsePositiveInt64Field(raw, "limit")
		if err != nil {
			return params, err
		}
		params.Limit = min(limit, notificationsMaxLimit)
	}
	return params, nil
}

// /api/admin/notifications
func HandleNotificationsList(w http.ResponseWriter, r *http.Request) {
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

	params, err := listParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	rows, err := q.ListNotifications(ctx, params)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list notifications")
		http.Error(w, "Failed to load notifications", http.StatusInternalServerError)
		return
	}
	unread, err := q.CountUnreadNotifications(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to count notifications")
		http.Error(w, "Failed to load notifications", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []dbgen.Notification{}
	}

	resp := ListResponse{Rows: rows, UnreadCount: unread, ServerTime: now}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write notifications response")
	}
}

// /admin/notifications
func HandleNotificationsPanel(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	rows, err := q.ListNotifications(ctx, dbgen.ListNotificationsParams{Limit: notificationsListLimit})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list notifications")
		http.Error(w, "Failed to load notifications", http.StatusInternalServerError)
		return
	}

	component := notificationtempl.Panel(notificationtempl.NewNotifications(rows))
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render notifications list", "Failed to render notifications")
}

// /admin/notifications/badge
func HandleNotificationBadge(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	count, err := q.CountUnreadNotifications(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to count notifications")
		http.Error(w, "Failed to load notifications", http.StatusInternalServerError)
		return
	}

	apiutil.RenderHTMLComponent(r.Context(), w, notificationtempl.CountBadge(count), nil, "Failed to render notifications count", "Failed to render notifications count")
}

// /api/admin/notifications/read
func HandleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	database := loadDB()
	if database == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r) {
		return
	}

	var req readRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.All && len(req.IDs) == 0 {
		http.Error(w, "provide ids or all", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var marked int64
	err := database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries
		if req.All {
			n, err := qtx.MarkAllNotificationsRead(ctx, now)
			if err != nil {
				return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update notifications", Err: err}
			}
			marked = n
			return nil
		}
		for _, id := range req.IDs {
			n, err := qtx.MarkNotificationRead(ctx, now, id)
			if err != nil {
				return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update notification " + strconv.FormatInt(id, 10), Err: err}
			}
			marked += n
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update notifications")
		return
	}

	htmx.Trigger(w, "refreshNotificationCount")
	if htmx.IsRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]int64{"marked": marked}); err != nil {
		logger.Error().Err(err).Msg("Failed to write notifications response")
	}
}
