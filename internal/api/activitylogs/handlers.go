package activitylogs

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/api/htmx"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/listing"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
)

const (
	activityQueryTimeout = 5 * time.Second
	defaultRangeDays     = 7
)

var (
	queries     *dbgen.Queries
	queriesOnce sync.Once
)

func employeeKey(l dbgen.ListActivityLogsRow) string {
	if l.EmployeeID == nil {
		return ""
	}
	return strconv.FormatInt(*l.EmployeeID, 10)
}

var columns = []listing.Column[dbgen.ListActivityLogsRow]{
	{Key: "id", Value: func(l dbgen.ListActivityLogsRow) string { return strconv.FormatInt(l.ID, 10) }, Less: listing.Int64Less(func(l dbgen.ListActivityLogsRow) int64 { return l.ID })},
	{Key: "created_at", Value: func(l dbgen.ListActivityLogsRow) string { return l.CreatedAt.Format(time.RFC3339) }},
	{Key: "employee", Value: func(l dbgen.ListActivityLogsRow) string { return l.EmployeeName }, Searchable: true},
	{Key: "employee_id", Value: employeeKey, Filterable: true},
	{Key: "action", Value: func(l dbgen.ListActivityLogsRow) string { return l.Action }, Filterable: true},
	{Key: "entity_type", Value: func(l dbgen.ListActivityLogsRow) string { return l.EntityType }, Filterable: true},
	{Key: "entity_id", Value: func(l dbgen.ListActivityLogsRow) string { return strconv.FormatInt(l.EntityID, 10) }, Filterable: true},
	{Key: "description", Value: func(l dbgen.ListActivityLogsRow) string { return l.Description }, Searchable: true},
}

var summaryColumns = []listing.Column[dbgen.EmployeeActivityRow]{
	{Key: "employee", Value: func(e dbgen.EmployeeActivityRow) string { return e.EmployeeName }, Searchable: true},
	{Key: "role", Value: func(e dbgen.EmployeeActivityRow) string { return e.Role }, Filterable: true},
	{Key: "status", Value: func(e dbgen.EmployeeActivityRow) string { return e.Status }, Filterable: true},
	{Key: "total", Value: func(e dbgen.EmployeeActivityRow) string { return strconv.FormatInt(e.Total, 10) }, Less: listing.Int64Less(func(e dbgen.EmployeeActivityRow) int64 { return e.Total })},
}

var tableColumns = []shared.Column{
	{Key: "created_at", Label: "When", Sortable: true},
	{Key: "employee", Label: "Employee", Sortable: true},
	{Key: "action", Label: "Action", Sortable: true},
	{Key: "entity_type", Label: "Entity", Sortable: true},
	{Key: "description", Label: "Description"},
}

func InitHandlers(q *dbgen.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

func loadQueries() *dbgen.Queries {
	return queries
}

func listLogs(ctx context.Context, q *dbgen.Queries, r *http.Request) (listing.Params, listing.Page[dbgen.ListActivityLogsRow], error) {
	params := listing.ParseParams(r.URL.Query())
	start, end, err := apiutil.DateRangeFromQuery(r, time.Now().UTC(), defaultRangeDays)
	if err != nil {
		return params, listing.Page[dbgen.ListActivityLogsRow]{}, err
	}
	rows, err := q.ListActivityLogs(ctx, start, end)
	if err != nil {
		return params, listing.Page[dbgen.ListActivityLogsRow]{}, fmt.Errorf("list activity logs: %w", err)
	}
	return params, listing.Apply(rows, params, columns), nil
}

// GET /api/admin/activity-logs
func HandleActivityLogsList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), activityQueryTimeout)
	defer cancel()

	_, page, err := listLogs(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list activity logs")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write activity logs response")
	}
}

// GET /admin/activity-logs
func HandleActivityLogsPage(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), activityQueryTimeout)
	defer cancel()

	params, page, err := listLogs(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load activity logs")
		return
	}
	// start and end are reserved listing keys, so the pager needs them back.
	for _, key := range []string{"start", "end"} {
		if v := r.URL.Query().Get(key); v != "" {
			params.Filters[key] = v
		}
	}

	table := shared.NewTable("activity-logs-table", "/admin/activity-logs", tableColumns, params, page, func(l dbgen.ListActivityLogsRow) []shared.Cell {
		return []shared.Cell{
			{Text: l.CreatedAt.Local().Format("2006-01-02 15:04")},
			{Text: l.EmployeeName},
			{Text: l.Action, Badge: true},
			{Text: fmt.Sprintf("%s #%d", l.EntityType, l.EntityID)},
			{Text: l.Description},
		}
	})
	table.Empty = "No activity in this range"

	component := shared.TableView(table)
	if !htmx.IsRequest(r) {
		component = layouts.Base("Activity Logs", "activity-logs", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render activity logs page", "Failed to render page")
}

// GET /api/admin/employee-activity
func HandleEmployeeActivity(w http.ResponseWriter, r *http.Request) {
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

	start, end, err := apiutil.DateRangeFromQuery(r, time.Now().UTC(), defaultRangeDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), activityQueryTimeout)
	defer cancel()

	rows, err := q.EmployeeActivitySummary(ctx, start, end)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to summarize employee activity")
		http.Error(w, "Failed to load employee activity", http.StatusInternalServerError)
		return
	}

	page := listing.Apply(rows, listing.ParseParams(r.URL.Query()), summaryColumns)
	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write employee activity response")
	}
}
