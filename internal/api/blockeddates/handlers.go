package blockeddates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/activity"
	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/api/authz"
	"github.com/codr1/StaycationHaven/internal/api/htmx"
	appdb "github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/listing"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
)

const blockedDateQueryTimeout = 5 * time.Second

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	queriesOnce sync.Once
)

type createRequest struct {
	HavenID   int64  `json:"haven_id" validate:"gt=0"`
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
	Reason    string `json:"reason" validate:"required,max=200"`
}

var columns = []listing.Column[dbgen.ListBlockedDatesRow]{
	{Key: "id", Value: func(b dbgen.ListBlockedDatesRow) string { return strconv.FormatInt(b.ID, 10) }, Less: listing.Int64Less(func(b dbgen.ListBlockedDatesRow) int64 { return b.ID })},
	{Key: "haven", Value: func(b dbgen.ListBlockedDatesRow) string { return b.HavenName }, Searchable: true, Filterable: true},
	{Key: "start_date", Value: func(b dbgen.ListBlockedDatesRow) string { return b.StartDate }},
	{Key: "end_date", Value: func(b dbgen.ListBlockedDatesRow) string { return b.EndDate }},
	{Key: "reason", Value: func(b dbgen.ListBlockedDatesRow) string { return b.Reason }, Searchable: true},
}

var tableColumns = []shared.Column{
	{Key: "haven", Label: "Haven", Sortable: true},
	{Key: "start_date", Label: "From", Sortable: true},
	{Key: "end_date", Label: "Until", Sortable: true},
	{Key: "reason", Label: "Reason", Sortable: true},
}

// InitHandlers must be called during server startup before handling requests.
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

func listRanges(ctx context.Context, q *dbgen.Queries, r *http.Request) (listing.Params, listing.Page[dbgen.ListBlockedDatesRow], error) {
	params := listing.ParseParams(r.URL.Query())
	delete(params.Filters, "haven_id")

	havenID, err := apiutil.OptionalPositiveInt64Query(r, "haven_id")
	if err != nil {
		return params, listing.Page[dbgen.ListBlockedDatesRow]{}, err
	}
	rows, err := q.ListBlockedDates(ctx, havenID)
	if err != nil {
		return params, listing.Page[dbgen.ListBlockedDatesRow]{}, fmt.Errorf("list blocked dates: %w", err)
	}
	if havenID > 0 {
		params.Filters["haven_id"] = strconv.FormatInt(havenID, 10)
	}
	return params, listing.Apply(rows, params, columns), nil
}

// GET /api/admin/blocked-dates
func HandleBlockedDatesList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), blockedDateQueryTimeout)
	defer cancel()

	_, page, err := listRanges(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list blocked dates")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write blocked dates response")
	}
}

// GET /admin/blocked-dates
func HandleBlockedDatesPage(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), blockedDateQueryTimeout)
	defer cancel()

	params, page, err := listRanges(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load blocked dates")
		return
	}

	table := shared.NewTable("blocked-dates-table", "/admin/blocked-dates", tableColumns, params, page, func(b dbgen.ListBlockedDatesRow) []shared.Cell {
		return []shared.Cell{
			{Text: b.HavenName},
			{Text: b.StartDate},
			{Text: b.EndDate},
			{Text: b.Reason},
		}
	})
	table.RefreshOn = "refreshBlockedDates"
	table.Empty = "No blocked dates"

	component := shared.TableView(table)
	if !htmx.IsRequest(r) {
		component = layouts.Base("Blocked Dates", "blocked-dates", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render blocked dates page", "Failed to render page")
}

// POST /api/admin/blocked-dates
func HandleBlockedDateCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	database := loadDB()
	if database == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleCSR) {
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := apiutil.ParseDate(req.StartDate, "start_date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := apiutil.ParseDate(req.EndDate, "end_date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		http.Error(w, apiutil.FieldError{Field: "end_date", Reason: "must not be before start_date"}.Error(), http.StatusBadRequest)
		return
	}
	startDate := start.Format(apiutil.DateLayout)
	endDate := end.Format(apiutil.DateLayout)

	ctx, cancel := context.WithTimeout(r.Context(), blockedDateQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var created dbgen.BlockedDate
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		haven, err := qtx.GetHaven(ctx, req.HavenID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Haven not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load haven", Err: err}
		}

		booked, err := qtx.CountBookingsInBlockedRange(ctx, haven.ID, startDate, endDate)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to check bookings", Err: err}
		}
		if booked > 0 {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("%s has %d booking(s) in that range", haven.Name, booked)}
		}

		created, err = qtx.CreateBlockedDate(ctx, dbgen.CreateBlockedDateParams{
			HavenID:   haven.ID,
			StartDate: startDate,
			EndDate:   endDate,
			Reason:    req.Reason,
			CreatedBy: authz.ActorID(r.Context()),
			CreatedAt: now,
		})
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create blocked date", Err: err}
		}

		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionCreate,
			EntityType:  activity.EntityBlockedDate,
			EntityID:    created.ID,
			Description: fmt.Sprintf("Blocked %s from %s to %s: %s", haven.Name, startDate, endDate, req.Reason),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create blocked date")
		return
	}

	htmx.Trigger(w, "refreshBlockedDates")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("blocked_date_id", created.ID).Msg("Failed to write blocked date response")
	}
}

// DELETE /api/admin/blocked-dates/{id}
func HandleBlockedDateDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	database := loadDB()
	if database == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleCSR) {
		return
	}

	rangeID, err := apiutil.PathID(r, "blocked date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), blockedDateQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		existing, err := qtx.GetBlockedDate(ctx, rangeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Blocked date not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load blocked date", Err: err}
		}
		if _, err := qtx.DeleteBlockedDate(ctx, rangeID); err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to delete blocked date", Err: err}
		}
		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionDelete,
			EntityType:  activity.EntityBlockedDate,
			EntityID:    existing.ID,
			Description: fmt.Sprintf("Unblocked %s to %s", existing.StartDate, existing.EndDate),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete blocked date")
		return
	}

	htmx.Trigger(w, "refreshBlockedDates")
	w.WriteHeader(http.StatusNoContent)
}
