package payments

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

const paymentQueryTimeout = 5 * time.Second

const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

var transitions = map[string][]string{
	StatusPending: {StatusPaid, StatusFailed},
	StatusPaid:    {StatusRefunded},
}

// CanTransition reports whether a payment may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	queriesOnce sync.Once
)

type createRequest struct {
	BookingID   int64  `json:"booking_id" validate:"gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Method      string `json:"method" validate:"required,oneof=cash card gcash bank_transfer"`
	Status      string `json:"status" validate:"omitempty,oneof=pending paid"`
	Reference   string `json:"reference" validate:"max=120"`
}

type updateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid failed refunded"`
}

var columns = []listing.Column[dbgen.ListPaymentsRow]{
	{Key: "id", Value: func(p dbgen.ListPaymentsRow) string { return strconv.FormatInt(p.ID, 10) }, Less: listing.Int64Less(func(p dbgen.ListPaymentsRow) int64 { return p.ID })},
	{Key: "booking", Value: func(p dbgen.ListPaymentsRow) string { return p.BookingReference }, Searchable: true, Filterable: true},
	{Key: "guest_name", Value: func(p dbgen.ListPaymentsRow) string { return p.GuestName }, Searchable: true},
	{Key: "reference", Value: func(p dbgen.ListPaymentsRow) string { return p.Reference }, Searchable: true},
	{Key: "method", Value: func(p dbgen.ListPaymentsRow) string { return p.Method }, Filterable: true},
	{Key: "status", Value: func(p dbgen.ListPaymentsRow) string { return p.Status }, Filterable: true},
	{Key: "amount_cents", Value: func(p dbgen.ListPaymentsRow) string { return strconv.FormatInt(p.AmountCents, 10) }, Less: listing.Int64Less(func(p dbgen.ListPaymentsRow) int64 { return p.AmountCents })},
	{Key: "created_at", Value: func(p dbgen.ListPaymentsRow) string { return p.CreatedAt.UTC().Format(time.RFC3339) }},
}

var tableColumns = []shared.Column{
	{Key: "booking", Label: "Booking", Sortable: true},
	{Key: "guest_name", Label: "Guest", Sortable: true},
	{Key: "amount_cents", Label: "Amount", Sortable: true},
	{Key: "method", Label: "Method", Sortable: true},
	{Key: "reference", Label: "Reference"},
	{Key: "created_at", Label: "Recorded", Sortable: true},
	{Key: "status", Label: "Status", Sortable: true},
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

func listPage(ctx context.Context, q *dbgen.Queries, r *http.Request) (listing.Params, listing.Page[dbgen.ListPaymentsRow], error) {
	params := listing.ParseParams(r.URL.Query())
	bookingID, err := apiutil.OptionalPositiveInt64Query(r, "booking_id")
	if err != nil {
		return params, listing.Page[dbgen.ListPaymentsRow]{}, err
	}
	rows, err := q.ListPayments(ctx, bookingID)
	if err != nil {
		return params, listing.Page[dbgen.ListPaymentsRow]{}, fmt.Errorf("list payments: %w", err)
	}
	return params, listing.Apply(rows, params, columns), nil
}

// GET /api/admin/payments
func HandlePaymentsList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), paymentQueryTimeout)
	defer cancel()

	_, page, err := listPage(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list payments")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write payment list response")
	}
}

// GET /admin/payments
func HandlePaymentsPage(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), paymentQueryTimeout)
	defer cancel()

	params, page, err := listPage(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load payments")
		return
	}

	table := shared.NewTable("payments-table", "/admin/payments", tableColumns, params, page, func(p dbgen.ListPaymentsRow) []shared.Cell {
		return []shared.Cell{
			{Text: p.BookingReference, Href: fmt.Sprintf("/api/admin/bookings/%d", p.BookingID)},
			{Text: p.GuestName},
			{Text: apiutil.FormatPriceCents(p.AmountCents)},
			{Text: p.Method},
			{Text: p.Reference},
			{Text: p.CreatedAt.UTC().Format("2006-01-02 15:04")},
			{Text: p.Status, Badge: true},
		}
	})
	table.RefreshOn = "refreshPayments"
	table.Empty = "No payments recorded"

	component := shared.TableView(table)
	if !htmx.IsRequest(r) {
		component = layouts.Base("Payments", "payments", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render payments page", "Failed to render page")
}

// POST /api/admin/payments
func HandlePaymentCreate(w http.ResponseWriter, r *http.Request) {
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
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = StatusPending
	}
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var created dbgen.Payment
	err := database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		booking, err := qtx.GetBooking(ctx, req.BookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Booking not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load booking", Err: err}
		}
		if booking.Status == "cancelled" {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("Booking %s is cancelled", booking.Reference)}
		}

		var paidAt *time.Time
		if req.Status == StatusPaid {
			paidAt = &now
		}
		created, err = qtx.CreatePayment(ctx, dbgen.CreatePaymentParams{
			BookingID:   booking.ID,
			AmountCents: req.AmountCents,
			Method:      req.Method,
			Status:      req.Status,
			Reference:   strings.TrimSpace(req.Reference),
			PaidAt:      paidAt,
			RecordedBy:  authz.ActorID(r.Context()),
			CreatedAt:   now,
		})
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to record payment", Err: err}
		}
		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionCreate,
			EntityType:  activity.EntityPayment,
			EntityID:    created.ID,
			Description: fmt.Sprintf("Recorded %s %s payment (%s) for booking %s", apiutil.FormatPriceCents(created.AmountCents), created.Method, created.Status, booking.Reference),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record payment")
		return
	}

	htmx.Trigger(w, "refreshPayments")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("payment_id", created.ID).Msg("Failed to write payment response")
	}
}

// PATCH /api/admin/payments/{id}
func HandlePaymentUpdate(w http.ResponseWriter, r *http.Request) {
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

	paymentID, err := apiutil.PathID(r, "payment")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var updated dbgen.Payment
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		current, err := qtx.GetPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Payment not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load payment", Err: err}
		}
		if current.Status == req.Status {
			updated = current
			return nil
		}
		if !CanTransition(current.Status, req.Status) {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("Cannot move payment from %s to %s", current.Status, req.Status)}
		}

		paidAt := current.PaidAt
		if req.Status == StatusPaid {
			paidAt = &now
		}
		updated, err = qtx.UpdatePaymentStatus(ctx, dbgen.UpdatePaymentStatusParams{
			Status:    req.Status,
			PaidAt:    paidAt,
			UpdatedAt: now,
			ID:        current.ID,
		})
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update payment", Err: err}
		}
		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionStatusChange,
			EntityType:  activity.EntityPayment,
			EntityID:    updated.ID,
			Description: fmt.Sprintf("Payment %d %s -> %s (%s)", updated.ID, current.Status, updated.Status, apiutil.FormatPriceCents(updated.AmountCents)),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update payment")
		return
	}

	htmx.Trigger(w, "refreshPayments")
	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("payment_id", updated.ID).Msg("Failed to write payment response")
	}
}
