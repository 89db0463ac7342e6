package employees

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
	"github.com/codr1/StaycationHaven/internal/bookings"
	appdb "github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/listing"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
)

const employeeQueryTimeout = 5 * time.Second

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	phoneRegion = "PH"
	queriesOnce sync.Once
)

type createRequest struct {
	FirstName string `json:"first_name" validate:"required,max=60"`
	LastName  string `json:"last_name" validate:"required,max=60"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"max=32"`
	Role      string `json:"role" validate:"required,oneof=admin csr housekeeping"`
}

type updateRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=60"`
	LastName  *string `json:"last_name" validate:"omitempty,max=60"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin csr housekeeping"`
	Status    *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func fullName(e dbgen.Employee) string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

var columns = []listing.Column[dbgen.Employee]{
	{Key: "id", Value: func(e dbgen.Employee) string { return strconv.FormatInt(e.ID, 10) }, Less: listing.Int64Less(func(e dbgen.Employee) int64 { return e.ID })},
	{Key: "name", Value: fullName, Searchable: true},
	{Key: "email", Value: func(e dbgen.Employee) string { return e.Email }, Searchable: true},
	{Key: "role", Value: func(e dbgen.Employee) string { return e.Role }, Filterable: true},
	{Key: "status", Value: func(e dbgen.Employee) string { return e.Status }, Filterable: true},
	{Key: "last_active_at", Value: func(e dbgen.Employee) string {
		if e.LastActiveAt == nil {
			return ""
		}
		return e.LastActiveAt.Format(time.RFC3339)
	}},
}

var tableColumns = []shared.Column{
	{Key: "name", Label: "Name", Sortable: true},
	{Key: "email", Label: "Email", Sortable: true},
	{Key: "role", Label: "Role", Sortable: true},
	{Key: "last_active_at", Label: "Last active", Sortable: true},
	{Key: "status", Label: "Status", Sortable: true},
}

// InitHandlers must be called during server startup before handling requests.
// region is the default region for parsing phone numbers without a country code.
func InitHandlers(database *appdb.DB, region string) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		store = database
		if strings.TrimSpace(region) != "" {
			phoneRegion = region
		}
	})
}

func loadQueries() *dbgen.Queries {
	return queries
}

func loadDB() *appdb.DB {
	return store
}

func normalizeOptionalPhone(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	phone, err := bookings.NormalizePhone(raw, phoneRegion)
	if err != nil {
		return nil, apiutil.FieldError{Field: "phone", Reason: "must be a valid phone number"}
	}
	return &phone, nil
}

func listEmployees(ctx context.Context, q *dbgen.Queries, r *http.Request) (listing.Params, listing.Page[dbgen.Employee], error) {
	params := listing.ParseParams(r.URL.Query())
	rows, err := q.ListEmployees(ctx)
	if err != nil {
		return params, listing.Page[dbgen.Employee]{}, fmt.Errorf("list employees: %w", err)
	}
	return params, listing.Apply(rows, params, columns), nil
}

// GET /api/admin/employees
func HandleEmployeesList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), employeeQueryTimeout)
	defer cancel()

	_, page, err := listEmployees(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list employees")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write employees response")
	}
}

// GET /admin/employees
func HandleEmployeesPage(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), employeeQueryTimeout)
	defer cancel()

	params, page, err := listEmployees(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load employees")
		return
	}

	table := shared.NewTable("employees-table", "/admin/employees", tableColumns, params, page, func(e dbgen.Employee) []shared.Cell {
		lastActive := "never"
		if e.LastActiveAt != nil {
			lastActive = e.LastActiveAt.Local().Format("2006-01-02 15:04")
		}
		return []shared.Cell{
			{Text: fullName(e), Href: fmt.Sprintf("/api/admin/employees/%d", e.ID)},
			{Text: e.Email},
			{Text: e.Role},
			{Text: lastActive},
			{Text: e.Status, Badge: true},
		}
	})
	table.RefreshOn = "refreshEmployees"
	table.Empty = "No employees"

	component := shared.TableView(table)
	if !htmx.IsRequest(r) {
		component = layouts.Base("Employees", "employees", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render employees page", "Failed to render page")
}

// GET /api/admin/employees/{id}
func HandleEmployeeDetail(w http.ResponseWriter, r *http.Request) {
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

	employeeID, err := apiutil.PathID(r, "employee")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), employeeQueryTimeout)
	defer cancel()

	employee, err := q.GetEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Employee not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("employee_id", employeeID).Msg("Failed to load employee")
		http.Error(w, "Failed to load employee", http.StatusInternalServerError)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, employee); err != nil {
		logger.Error().Err(err).Int64("employee_id", employeeID).Msg("Failed to write employee response")
	}
}

// POST /api/admin/employees
func HandleEmployeeCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	database := loadDB()
	if database == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleAdmin) {
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	phone, err := normalizeOptionalPhone(req.Phone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), employeeQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var created dbgen.Employee
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		var err error
		created, err = qtx.CreateEmployee(ctx, dbgen.CreateEmployeeParams{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     phone,
			Role:      req.Role,
			Status:    "active",
			CreatedAt: now,
		})
		if err != nil {
			if appdb.IsUniqueViolation(err) {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "An employee with that email already exists", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create employee", Err: err}
		}

		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionCreate,
			EntityType:  activity.EntityEmployee,
			EntityID:    created.ID,
			Description: fmt.Sprintf("Added %s as %s", fullName(created), created.Role),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create employee")
		return
	}

	htmx.Trigger(w, "refreshEmployees")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("employee_id", created.ID).Msg("Failed to write employee response")
	}
}

// PATCH /api/admin/employees/{id}
func HandleEmployeeUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	database := loadDB()
	if database == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleAdmin) {
		return
	}

	employeeID, err := apiutil.PathID(r, "employee")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), employeeQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	actor := authz.ActorID(r.Context())
	var updated dbgen.Employee
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		current, err := qtx.GetEmployee(ctx, employeeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Employee not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load employee", Err: err}
		}

		params := dbgen.UpdateEmployeeParams{
			FirstName: current.FirstName,
			LastName:  current.LastName,
			Phone:     current.Phone,
			Role:      current.Role,
			Status:    current.Status,
			UpdatedAt: now,
			ID:        current.ID,
		}
		changes := []string{}
		if req.FirstName != nil {
			name := strings.TrimSpace(*req.FirstName)
			if name == "" {
				return apiutil.FieldError{Field: "first_name", Reason: "must not be empty"}
			}
			if name != current.FirstName {
				params.FirstName = name
				changes = append(changes, "first name")
			}
		}
		if req.LastName != nil {
			name := strings.TrimSpace(*req.LastName)
			if name == "" {
				return apiutil.FieldError{Field: "last_name", Reason: "must not be empty"}
			}
			if name != current.LastName {
				params.LastName = name
				changes = append(changes, "last name")
			}
		}
		if req.Phone != nil {
			phone, err := normalizeOptionalPhone(*req.Phone)
			if err != nil {
				return err
			}
			params.Phone = phone
			changes = append(changes, "phone")
		}
		if req.Role != nil && *req.Role != current.Role {
			if actor != nil && *actor == current.ID {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "You cannot change your own role"}
			}
			params.Role = *req.Role
			changes = append(changes, fmt.Sprintf("role %s -> %s", current.Role, *req.Role))
		}
		if req.Status != nil && *req.Status != current.Status {
			if actor != nil && *actor == current.ID {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "You cannot deactivate yourself"}
			}
			params.Status = *req.Status
			changes = append(changes, fmt.Sprintf("status %s -> %s", current.Status, *req.Status))
		}

		if len(changes) == 0 {
			updated = current
			return nil
		}

		updated, err = qtx.UpdateEmployee(ctx, params)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update employee", Err: err}
		}

		action := activity.ActionUpdate
		if params.Status != current.Status {
			action = activity.ActionStatusChange
		}
		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  actor,
			Action:      action,
			EntityType:  activity.EntityEmployee,
			EntityID:    updated.ID,
			Description: fmt.Sprintf("Updated %s: %s", fullName(updated), strings.Join(changes, ", ")),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update employee")
		return
	}

	htmx.Trigger(w, "refreshEmployees")
	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("employee_id", updated.ID).Msg("Failed to write employee response")
	}
}
