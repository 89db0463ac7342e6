package bookings

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
	rules "github.com/codr1/StaycationHaven/internal/bookings"
	appdb "github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
	"github.com/codr1/StaycationHaven/internal/email"
	"github.com/codr1/StaycationHaven/internal/listing"
	"github.com/codr1/StaycationHaven/internal/metrics"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
)

const (
	bookingQueryTimeout = 5 * time.Second
	maxReferenceTries   = 3
)

// Options carries the settings booking handlers need beyond the database.
type Options struct {
	PhoneRegion string
	Mailer      email.EmailSender
}

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	options     Options
	queriesOnce sync.Once
)

// Row is a booking list entry with its outstanding balance.
type Row struct {
	dbgen.ListBookingsRow
	BalanceCents int64 `json:"balance_cents"`
}

// Detail is a booking with everything attached to it.
type Detail struct {
	dbgen.Booking
	HavenName    string                  `json:"haven_name"`
	Nights       int64                   `json:"nights"`
	PaidCents    int64                   `json:"paid_cents"`
	BalanceCents int64                   `json:"balance_cents"`
	Payments     []dbgen.ListPaymentsRow `json:"payments"`
	Deliverables []dbgen.Deliverable     `json:"deliverables"`
	Groups       []deliverables.Group    `json:"groups"`
}

type createRequest struct {
	HavenID    int64  `json:"haven_id" validate:"gt=0"`
	GuestName  string `json:"guest_name" validate:"required,max=120"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email,max=254"`
	GuestPhone string `json:"guest_phone" validate:"required,max=32"`
	GuestCount int64  `json:"guest_count" validate:"gte=1"`
	CheckIn    string `json:"check_in" validate:"required,date"`
	CheckOut   string `json:"check_out" validate:"required,date"`
	Status     string `json:"status" validate:"omitempty,oneof=pending confirmed"`
	TotalCents *int64 `json:"total_cents" validate:"omitempty,gte=0"`
	Notes      string `json:"notes" validate:"max=2000"`
}

type updateRequest struct {
	GuestName  *string `json:"guest_name" validate:"omitempty,max=120"`
	GuestEmail *string `json:"guest_email" validate:"omitempty,max=254"`
	GuestPhone *string `json:"guest_phone" validate:"omitempty,max=32"`
	GuestCount *int64  `json:"guest_count" validate:"omitempty,gte=1"`
	CheckIn    *string `json:"check_in" validate:"omitempty,date"`
	CheckOut   *string `json:"check_out" validate:"omitempty,date"`
	Status     *string `json:"status"`
	TotalCents *int64  `json:"total_cents" validate:"omitempty,gte=0"`
	Notes      *string `json:"notes" validate:"omitempty,max=2000"`
}

var columns = []listing.Column[Row]{
	{Key: "id", Value: func(r Row) string { return strconv.FormatInt(r.ID, 10) }, Less: listing.Int64Less(func(r Row) int64 { return r.ID })},
	{Key: "reference", Value: func(r Row) string { return r.Reference }, Searchable: true, Filterable: true},
	{Key: "guest_name", Value: func(r Row) string { return r.GuestName }, Searchable: true},
	{Key: "guest_email", Value: func(r Row) string { return r.GuestEmail }, Searchable: true},
	{Key: "guest_phone", Value: func(r Row) string { return r.GuestPhone }, Searchable: true},
	{Key: "haven", Value: func(r Row) string { return r.HavenName }, Searchable: true, Filterable: true},
	{Key: "status", Value: func(r Row) string { return r.Status }, Filterable: true},
	{Key: "check_in", Value: func(r Row) string { return r.CheckIn }},
	{Key: "check_out", Value: func(r Row) string { return r.CheckOut }},
	{Key: "guest_count", Value: func(r Row) string { return strconv.FormatInt(r.GuestCount, 10) }, Less: listing.Int64Less(func(r Row) int64 { return r.GuestCount })},
	{Key: "total_cents", Value: func(r Row) string { return strconv.FormatInt(r.TotalCents, 10) }, Less: listing.Int64Less(func(r Row) int64 { return r.TotalCents })},
	{Key: "balance_cents", Value: func(r Row) string { return strconv.FormatInt(r.BalanceCents, 10) }, Less: listing.Int64Less(func(r Row) int64 { return r.BalanceCents })},
}

var tableColumns = []shared.Column{
	{Key: "reference", Label: "Reference", Sortable: true},
	{Key: "guest_name", Label: "Guest", Sortable: true},
	{Key: "haven", Label: "Haven", Sortable: true},
	{Key: "check_in", Label: "Check-in", Sortable: true},
	{Key: "check_out", Label: "Check-out", Sortable: true},
	{Key: "guest_count", Label: "Guests", Sortable: true},
	{Key: "total_cents", Label: "Total", Sortable: true},
	{Key: "balance_cents", Label: "Balance", Sortable: true},
	{Key: "status", Label: "Status", Sortable: true},
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, opts Options) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		store = database
		options = opts
		if options.PhoneRegion == "" {
			options.PhoneRegion = "PH"
		}
	})
}

func loadQueries() *dbgen.Queries {
	return queries
}

func loadDB() *appdb.DB {
	return store
}

func stayBoundsFromQuery(r *http.Request) (string, string, error) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from != "" {
		if _, err := apiutil.ParseDate(from, "from"); err != nil {
			return "", "", err
		}
	}
	if to != "" {
		if _, err := apiutil.ParseDate(to, "to"); err != nil {
			return "", "", err
		}
	}
	return from, to, nil
}

func listRows(ctx context.Context, q *dbgen.Queries, from, to string) ([]Row, error) {
	found, err := q.ListBookings(ctx, dbgen.ListBookingsParams{From: from, To: to})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(found))
	for _, b := range found {
		rows = append(rows, Row{ListBookingsRow: b, BalanceCents: b.TotalCents - b.PaidCents})
	}
	return rows, nil
}

// GET /api/admin/bookings
func HandleBookingsList(w http.ResponseWriter, r *http.Request) {
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

	from, to, err := stayBoundsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	rows, err := listRows(ctx, q, from, to)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list bookings")
		http.Error(w, "Failed to list bookings", http.StatusInternalServerError)
		return
	}

	page := listing.Apply(rows, listing.ParseParams(r.URL.Query()), columns)
	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write booking list response")
	}
}

// GET /admin/bookings
func HandleBookingsPage(w http.ResponseWriter, r *http.Request) {
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

	from, to, err := stayBoundsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	rows, err := listRows(ctx, q, from, to)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list bookings")
		http.Error(w, "Failed to load bookings", http.StatusInternalServerError)
		return
	}

	params := listing.ParseParams(r.URL.Query())
	page := listing.Apply(rows, params, columns)
	table := shared.NewTable("bookings-table", "/admin/bookings", tableColumns, params, page, func(b Row) []shared.Cell {
		return []shared.Cell{
			{Text: b.Reference, Href: fmt.Sprintf("/api/admin/bookings/%d", b.ID)},
			{Text: b.GuestName},
			{Text: b.HavenName},
			{Text: b.CheckIn},
			{Text: b.CheckOut},
			{Text: strconv.FormatInt(b.GuestCount, 10)},
			{Text: apiutil.FormatPriceCents(b.TotalCents)},
			{Text: apiutil.FormatPriceCents(b.BalanceCents)},
			{Text: b.Status, Badge: true},
		}
	})
	table.RefreshOn = "refreshBookings"
	table.Empty = "No bookings"

	component := shared.TableView(table)
	if !htmx.IsRequest(r) {
		component = layouts.Base("Bookings", "bookings", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render bookings page", "Failed to render page")
}

// GET /api/admin/bookings/{id}
func HandleBookingDetail(w http.ResponseWriter, r *http.Request) {
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

	bookingID, err := apiutil.PathID(r, "booking")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	detail, err := loadDetail(ctx, q, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to load booking")
		http.Error(w, "Failed to load booking", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, detail); err != nil {
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to write booking response")
	}
}

func loadDetail(ctx context.Context, q *dbgen.Queries, bookingID int64) (Detail, error) {
	booking, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		return Detail{}, err
	}
	haven, err := q.GetHaven(ctx, booking.HavenID)
	if err != nil {
		return Detail{}, fmt.Errorf("load haven %d: %w", booking.HavenID, err)
	}
	payments, err := q.ListPayments(ctx, bookingID)
	if err != nil {
		return Detail{}, fmt.Errorf("list payments: %w", err)
	}
	items, err := q.ListDeliverablesForBooking(ctx, bookingID)
	if err != nil {
		return Detail{}, fmt.Errorf("list deliverables: %w", err)
	}

	var paid int64
	for _, p := range payments {
		if p.Status == "paid" {
			paid += p.AmountCents
		}
	}
	if payments == nil {
		payments = []dbgen.ListPaymentsRow{}
	}
	if items == nil {
		items = []dbgen.Deliverable{}
	}

	detail := Detail{
		Booking:      booking,
		HavenName:    haven.Name,
		PaidCents:    paid,
		BalanceCents: booking.TotalCents - paid,
		Payments:     payments,
		Deliverables: items,
		Groups:       deliverables.GroupItems(deliverables.FromRows(items)),
	}
	if stay, err := rules.ParseStay(booking.CheckIn, booking.CheckOut); err == nil {
		detail.Nights = stay.Nights()
	}
	return detail, nil
}

// checkAvailability rejects a stay that collides with another live booking
// or a blocked range of the haven. excludeID skips the booking being edited.
func checkAvailability(ctx context.Context, q *dbgen.Queries, havenID, excludeID int64, stay rules.Stay) error {
	overlapping, err := q.CountOverlappingBookings(ctx, dbgen.CountOverlappingBookingsParams{
		HavenID:   havenID,
		ExcludeID: excludeID,
		CheckIn:   stay.CheckInDate(),
		CheckOut:  stay.CheckOutDate(),
	})
	if err != nil {
		return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to check availability", Err: err}
	}
	if overlapping > 0 {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Haven is already booked for those dates"}
	}

	blocked, err := q.CountBlockedOverlaps(ctx, havenID, stay.CheckInDate(), stay.CheckOutDate())
	if err != nil {
		return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to check blocked dates", Err: err}
	}
	if blocked > 0 {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Haven is blocked for those dates"}
	}
	return nil
}

// POST /api/admin/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
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
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestEmail = strings.TrimSpace(req.GuestEmail)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = rules.StatusPending
	}
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stay, err := rules.ParseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	phone, err := rules.NormalizePhone(req.GuestPhone, options.PhoneRegion)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var (
		created dbgen.Booking
		haven   dbgen.Haven
	)
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		var err error
		haven, err = qtx.GetHaven(ctx, req.HavenID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Haven not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load haven", Err: err}
		}
		if haven.Status != "active" {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("%s is not accepting bookings", haven.Name)}
		}
		if req.GuestCount > haven.Capacity {
			return apiutil.FieldError{Field: "guest_count", Reason: fmt.Sprintf("must be at most %d", haven.Capacity)}
		}
		if err := checkAvailability(ctx, qtx, haven.ID, 0, stay); err != nil {
			return err
		}

		total := stay.Nights() * haven.NightlyRateCents
		if req.TotalCents != nil {
			total = *req.TotalCents
		}

		params := dbgen.CreateBookingParams{
			HavenID:    haven.ID,
			GuestName:  req.GuestName,
			GuestEmail: req.GuestEmail,
			GuestPhone: phone,
			GuestCount: req.GuestCount,
			CheckIn:    stay.CheckInDate(),
			CheckOut:   stay.CheckOutDate(),
			Status:     req.Status,
			TotalCents: total,
			Notes:      strings.TrimSpace(req.Notes),
			CreatedBy:  authz.ActorID(r.Context()),
			CreatedAt:  now,
		}
		for attempt := 1; ; attempt++ {
			params.Reference = rules.NewReference()
			created, err = qtx.CreateBooking(ctx, params)
			if err == nil {
				break
			}
			if appdb.IsUniqueViolation(err) && attempt < maxReferenceTries {
				continue
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create booking", Err: err}
		}

		if err := activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionCreate,
			EntityType:  activity.EntityBooking,
			EntityID:    created.ID,
			Description: fmt.Sprintf("Booked %s for %s, %s to %s", haven.Name, created.GuestName, created.CheckIn, created.CheckOut),
		}, now); err != nil {
			return err
		}
		_, err = activity.Notify(ctx, qtx, activity.KindBookingCreated, activity.EntityBooking, created.ID,
			fmt.Sprintf("New booking %s at %s (%s)", created.Reference, haven.Name, created.CheckIn), now)
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create booking")
		return
	}

	metrics.BookingsCreated.Inc()
	if created.Status == rules.StatusConfirmed {
		sendConfirmation(r.Context(), created, haven)
	}

	htmx.Trigger(w, "refreshBookings")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("booking_id", created.ID).Msg("Failed to write booking response")
	}
}

// PATCH /api/admin/bookings/{id}
func HandleBookingUpdate(w http.ResponseWriter, r *http.Request) {
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

	bookingID, err := apiutil.PathID(r, "booking")
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
	if req.GuestName != nil && strings.TrimSpace(*req.GuestName) == "" {
		http.Error(w, "guest_name is required", http.StatusBadRequest)
		return
	}
	if req.GuestEmail != nil && strings.TrimSpace(*req.GuestEmail) != "" {
		if err := apiutil.Validate(struct {
			GuestEmail string `json:"guest_email" validate:"email"`
		}{strings.TrimSpace(*req.GuestEmail)}); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	var phone string
	if req.GuestPhone != nil {
		phone, err = rules.NormalizePhone(*req.GuestPhone, options.PhoneRegion)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	var status string
	if req.Status != nil {
		status = strings.ToLower(strings.TrimSpace(*req.Status))
		if !rules.IsValidStatus(status) {
			http.Error(w, "status must be one of: "+strings.Join(rules.AllStatuses, ", "), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var (
		current   dbgen.Booking
		updated   dbgen.Booking
		haven     dbgen.Haven
		cancelled int
	)
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		var err error
		current, err = qtx.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Booking not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load booking", Err: err}
		}
		haven, err = qtx.GetHaven(ctx, current.HavenID)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load haven", Err: err}
		}

		params := dbgen.UpdateBookingParams{
			GuestName:  current.GuestName,
			GuestEmail: current.GuestEmail,
			GuestPhone: current.GuestPhone,
			GuestCount: current.GuestCount,
			CheckIn:    current.CheckIn,
			CheckOut:   current.CheckOut,
			Status:     current.Status,
			TotalCents: current.TotalCents,
			Notes:      current.Notes,
			UpdatedAt:  now,
			ID:         current.ID,
		}
		changes := []string{}

		if status != "" && status != current.Status {
			if !rules.CanTransition(current.Status, status) {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("Cannot move booking from %s to %s", current.Status, status)}
			}
			params.Status = status
		}

		checkIn, checkOut := current.CheckIn, current.CheckOut
		if req.CheckIn != nil {
			checkIn = strings.TrimSpace(*req.CheckIn)
		}
		if req.CheckOut != nil {
			checkOut = strings.TrimSpace(*req.CheckOut)
		}
		datesChanged := checkIn != current.CheckIn || checkOut != current.CheckOut
		if datesChanged {
			if current.Status != rules.StatusPending && current.Status != rules.StatusConfirmed {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("Dates cannot change once a booking is %s", current.Status)}
			}
			stay, err := rules.ParseStay(checkIn, checkOut)
			if err != nil {
				return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
			}
			if params.Status != rules.StatusCancelled {
				if err := checkAvailability(ctx, qtx, current.HavenID, current.ID, stay); err != nil {
					return err
				}
			}
			params.CheckIn = stay.CheckInDate()
			params.CheckOut = stay.CheckOutDate()
			if req.TotalCents == nil {
				params.TotalCents = stay.Nights() * haven.NightlyRateCents
			}
			changes = append(changes, fmt.Sprintf("dates %s to %s", params.CheckIn, params.CheckOut))
		}

		if req.GuestName != nil && strings.TrimSpace(*req.GuestName) != current.GuestName {
			params.GuestName = strings.TrimSpace(*req.GuestName)
			changes = append(changes, "guest name")
		}
		if req.GuestEmail != nil && strings.TrimSpace(*req.GuestEmail) != current.GuestEmail {
			params.GuestEmail = strings.TrimSpace(*req.GuestEmail)
			changes = append(changes, "guest email")
		}
		if req.GuestPhone != nil && phone != current.GuestPhone {
			params.GuestPhone = phone
			changes = append(changes, "guest phone")
		}
		if req.GuestCount != nil && *req.GuestCount != current.GuestCount {
			if *req.GuestCount > haven.Capacity {
				return apiutil.FieldError{Field: "guest_count", Reason: fmt.Sprintf("must be at most %d", haven.Capacity)}
			}
			params.GuestCount = *req.GuestCount
			changes = append(changes, "guest count")
		}
		if req.TotalCents != nil && *req.TotalCents != current.TotalCents {
			params.TotalCents = *req.TotalCents
			changes = append(changes, "total")
		}
		if req.Notes != nil && strings.TrimSpace(*req.Notes) != current.Notes {
			params.Notes = strings.TrimSpace(*req.Notes)
			changes = append(changes, "notes")
		}

		updated, err = qtx.UpdateBooking(ctx, params)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update booking", Err: err}
		}

		if updated.Status == rules.StatusCancelled && current.Status != rules.StatusCancelled {
			cancelled, err = rules.CancelAddOns(ctx, qtx, updated.ID, now)
			if err != nil {
				return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to cancel add-ons", Err: err}
			}
		}

		entry := activity.Entry{
			EmployeeID: authz.ActorID(r.Context()),
			Action:     activity.ActionUpdate,
			EntityType: activity.EntityBooking,
			EntityID:   updated.ID,
		}
		switch {
		case updated.Status != current.Status:
			entry.Action = activity.ActionStatusChange
			entry.Description = fmt.Sprintf("Booking %s %s -> %s", updated.Reference, current.Status, updated.Status)
			if len(changes) > 0 {
				entry.Description += "; updated " + strings.Join(changes, ", ")
			}
			if cancelled > 0 {
				entry.Description += fmt.Sprintf("; cancelled %d add-ons", cancelled)
			}
		case len(changes) > 0:
			entry.Description = fmt.Sprintf("Updated booking %s: %s", updated.Reference, strings.Join(changes, ", "))
		default:
			entry.Description = fmt.Sprintf("Saved booking %s without changes", updated.Reference)
		}
		return activity.Record(ctx, qtx, entry, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update booking")
		return
	}

	if updated.Status != current.Status {
		switch updated.Status {
		case rules.StatusConfirmed:
			sendConfirmation(r.Context(), updated, haven)
		case rules.StatusCancelled:
			sendCancellation(r.Context(), updated, haven, "")
		}
	}

	htmx.Trigger(w, "refreshBookings")
	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("booking_id", updated.ID).Msg("Failed to write booking response")
	}
}

// EmailDetails renders a booking for guest emails.
func EmailDetails(booking dbgen.Booking, haven dbgen.Haven) email.BookingDetails {
	details := email.BookingDetails{
		Reference:  booking.Reference,
		HavenName:  haven.Name,
		GuestName:  booking.GuestName,
		GuestCount: booking.GuestCount,
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		Total:      apiutil.FormatPriceCents(booking.TotalCents),
		Notes:      booking.Notes,
	}
	if stay, err := rules.ParseStay(booking.CheckIn, booking.CheckOut); err == nil {
		details.Nights = int(stay.Nights())
	}
	return details
}

func sendConfirmation(ctx context.Context, booking dbgen.Booking, haven dbgen.Haven) {
	if options.Mailer == nil || booking.GuestEmail == "" {
		return
	}
	email.SendAsync(ctx, options.Mailer, []string{booking.GuestEmail}, email.BuildBookingConfirmation(EmailDetails(booking, haven)), log.Ctx(ctx))
}

func sendCancellation(ctx context.Context, booking dbgen.Booking, haven dbgen.Haven, reason string) {
	if options.Mailer == nil || booking.GuestEmail == "" {
		return
	}
	email.SendAsync(ctx, options.Mailer, []string{booking.GuestEmail}, email.BuildBookingCancelled(EmailDetails(booking, haven), reason), log.Ctx(ctx))
}
