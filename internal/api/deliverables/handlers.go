package deliverables

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/activity"
	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/api/authz"
	"github.com/codr1/StaycationHaven/internal/api/htmx"
	appdb "github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
	"github.com/codr1/StaycationHaven/internal/listing"
	"github.com/codr1/StaycationHaven/internal/metrics"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
)

const (
	deliverableQueryTimeout = 5 * time.Second
	maxBatchItems           = 50
	boardPollInterval       = "5s"
)

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	queriesOnce sync.Once
)

// GroupRow is a deliverable group with the booking it belongs to.
type GroupRow struct {
	deliverables.Group
	BookingReference string `json:"booking_reference"`
	GuestName        string `json:"guest_name"`
	HavenName        string `json:"haven_name"`
	CheckIn          string `json:"check_in"`
}

type newItem struct {
	Name            string `json:"name" validate:"required,max=120"`
	Quantity        int64  `json:"quantity" validate:"gte=1,lte=1000"`
	UnitPriceCents  int64  `json:"unit_price_cents" validate:"gte=0"`
	InventoryItemID *int64 `json:"inventory_item_id" validate:"omitempty,gt=0"`
	Notes           string `json:"notes" validate:"max=500"`
}

type createRequest struct {
	BookingID int64     `json:"booking_id" validate:"gt=0"`
	Items     []newItem `json:"items" validate:"required,min=1,max=50,dive"`
}

// batchRequest selects items either by ids or by a booking's group name.
type batchRequest struct {
	IDs       []int64 `json:"ids" validate:"omitempty,max=50,dive,gt=0"`
	BookingID int64   `json:"booking_id" validate:"omitempty,gt=0"`
	Name      string  `json:"name" validate:"max=120"`
	Status    string  `json:"status" validate:"required"`
}

type updateRequest struct {
	Status   *string `json:"status"`
	Quantity *int64  `json:"quantity" validate:"omitempty,gte=1,lte=1000"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
}

// BatchResult reports what a status change touched.
type BatchResult struct {
	Status  deliverables.Status  `json:"status"`
	Changed []int64              `json:"changed"`
	Skipped []int64              `json:"skipped"`
	Groups  []deliverables.Group `json:"groups"`
}

var itemColumns = []listing.Column[dbgen.ListDeliverablesRow]{
	{Key: "id", Value: func(d dbgen.ListDeliverablesRow) string { return strconv.FormatInt(d.ID, 10) }, Less: listing.Int64Less(func(d dbgen.ListDeliverablesRow) int64 { return d.ID })},
	{Key: "name", Value: func(d dbgen.ListDeliverablesRow) string { return d.Name }, Searchable: true, Filterable: true},
	{Key: "booking", Value: func(d dbgen.ListDeliverablesRow) string { return d.BookingReference }, Searchable: true, Filterable: true},
	{Key: "guest_name", Value: func(d dbgen.ListDeliverablesRow) string { return d.GuestName }, Searchable: true},
	{Key: "haven", Value: func(d dbgen.ListDeliverablesRow) string { return d.HavenName }, Searchable: true, Filterable: true},
	{Key: "status", Value: func(d dbgen.ListDeliverablesRow) string { return d.Status }, Filterable: true},
	{Key: "check_in", Value: func(d dbgen.ListDeliverablesRow) string { return d.CheckIn }},
	{Key: "quantity", Value: func(d dbgen.ListDeliverablesRow) string { return strconv.FormatInt(d.Quantity, 10) }, Less: listing.Int64Less(func(d dbgen.ListDeliverablesRow) int64 { return d.Quantity })},
	{Key: "unit_price_cents", Value: func(d dbgen.ListDeliverablesRow) string { return strconv.FormatInt(d.UnitPriceCents, 10) }, Less: listing.Int64Less(func(d dbgen.ListDeliverablesRow) int64 { return d.UnitPriceCents })},
}

var groupColumns = []listing.Column[GroupRow]{
	{Key: "name", Value: func(g GroupRow) string { return g.Name }, Searchable: true, Filterable: true},
	{Key: "booking", Value: func(g GroupRow) string { return g.BookingReference }, Searchable: true, Filterable: true},
	{Key: "guest_name", Value: func(g GroupRow) string { return g.GuestName }, Searchable: true},
	{Key: "haven", Value: func(g GroupRow) string { return g.HavenName }, Searchable: true, Filterable: true},
	{Key: "status", Value: func(g GroupRow) string { return string(g.Status) }, Filterable: true},
	{Key: "check_in", Value: func(g GroupRow) string { return g.CheckIn }},
	{Key: "quantity", Value: func(g GroupRow) string { return strconv.FormatInt(g.Quantity, 10) }, Less: listing.Int64Less(func(g GroupRow) int64 { return g.Quantity })},
	{Key: "amount_cents", Value: func(g GroupRow) string { return strconv.FormatInt(g.AmountCents, 10) }, Less: listing.Int64Less(func(g GroupRow) int64 { return g.AmountCents })},
}

var boardColumns = []shared.Column{
	{Key: "booking", Label: "Booking", Sortable: true},
	{Key: "guest_name", Label: "Guest", Sortable: true},
	{Key: "haven", Label: "Haven", Sortable: true},
	{Key: "check_in", Label: "Check-in", Sortable: true},
	{Key: "name", Label: "Item", Sortable: true},
	{Key: "quantity", Label: "Qty", Sortable: true},
	{Key: "amount_cents", Label: "Amount", Sortable: true},
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

func listItems(ctx context.Context, q *dbgen.Queries, r *http.Request) ([]dbgen.ListDeliverablesRow, error) {
	bookingID, err := apiutil.OptionalPositiveInt64Query(r, "booking_id")
	if err != nil {
		return nil, err
	}
	rows, err := q.ListDeliverables(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	return rows, nil
}

// groupRows aggregates items into groups and attaches booking context.
func groupRows(rows []dbgen.ListDeliverablesRow) []GroupRow {
	type bookingInfo struct {
		reference, guest, haven, checkIn string
	}
	info := make(map[int64]bookingInfo)
	items := make([]deliverables.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, deliverables.FromRow(row.Deliverable))
		if _, ok := info[row.BookingID]; !ok {
			info[row.BookingID] = bookingInfo{reference: row.BookingReference, guest: row.GuestName, haven: row.HavenName, checkIn: row.CheckIn}
		}
	}

	groups := deliverables.GroupItems(items)
	out := make([]GroupRow, 0, len(groups))
	for _, g := range groups {
		b := info[g.BookingID]
		out = append(out, GroupRow{Group: g, BookingReference: b.reference, GuestName: b.guest, HavenName: b.haven, CheckIn: b.checkIn})
	}
	// Newest arrivals first, matching the item listing.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckIn > out[j].CheckIn })
	return out
}

// GET /api/admin/deliverables
func HandleDeliverablesList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), deliverableQueryTimeout)
	defer cancel()

	rows, err := listItems(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list deliverables")
		return
	}

	params := listing.ParseParams(r.URL.Query())
	delete(params.Filters, "view")

	var payload any
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("view")), "groups") {
		payload = listing.Apply(groupRows(rows), params, groupColumns)
	} else {
		payload = listing.Apply(rows, params, itemColumns)
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		logger.Error().Err(err).Msg("Failed to write deliverable list response")
	}
}

// GET /admin/deliverables
func HandleDeliverablesBoard(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), deliverableQueryTimeout)
	defer cancel()

	rows, err := listItems(ctx, q, r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load deliverables")
		return
	}

	params := listing.ParseParams(r.URL.Query())
	page := listing.Apply(groupRows(rows), params, groupColumns)
	table := shared.NewTable("deliverables-board", "/admin/deliverables", boardColumns, params, page, func(g GroupRow) []shared.Cell {
		return []shared.Cell{
			{Text: g.BookingReference, Href: fmt.Sprintf("/api/admin/bookings/%d", g.BookingID)},
			{Text: g.GuestName},
			{Text: g.HavenName},
			{Text: g.CheckIn},
			{Text: g.Name},
			{Text: strconv.FormatInt(g.Quantity, 10)},
			{Text: apiutil.FormatPriceCents(g.AmountCents)},
			{Text: string(g.Status), Badge: true},
		}
	})
	table.RefreshOn = "refreshDeliverables"
	table.Actions = make([]templ.Component, len(page.Rows))
	for i, g := range page.Rows {
		next := deliverables.NextStatuses(g.Status)
		labels := make([]string, len(next))
		for j, s := range next {
			labels[j] = string(s)
		}
		table.Actions[i] = shared.StatusButtons("/api/admin/deliverables", map[string]any{"booking_id": g.BookingID, "name": g.Name}, labels, "refreshDeliverables")
	}
	table.PollEvery = boardPollInterval
	table.Empty = "No add-ons requested"

	component := shared.TableView(table)
	if !htmx.IsRequest(r) {
		component = layouts.Base("Deliverables", "deliverables", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render deliverables board", "Failed to render page")
}

// POST /api/admin/deliverables
func HandleDeliverablesCreate(w http.ResponseWriter, r *http.Request) {
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
	for i := range req.Items {
		req.Items[i].Name = strings.TrimSpace(req.Items[i].Name)
		req.Items[i].Notes = strings.TrimSpace(req.Items[i].Notes)
	}
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), deliverableQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	created := make([]dbgen.Deliverable, 0, len(req.Items))
	err := database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		booking, err := qtx.GetBooking(ctx, req.BookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Booking not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load booking", Err: err}
		}
		if booking.Status == "cancelled" || booking.Status == "checked_out" {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("Booking %s is %s", booking.Reference, booking.Status)}
		}

		names := make([]string, 0, len(req.Items))
		for i, item := range req.Items {
			if item.InventoryItemID != nil {
				if _, err := qtx.GetInventoryItem(ctx, *item.InventoryItemID); err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return apiutil.FieldError{Field: fmt.Sprintf("items[%d].inventory_item_id", i), Reason: "does not exist"}
					}
					return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load inventory item", Err: err}
				}
			}
			row, err := qtx.CreateDeliverable(ctx, dbgen.CreateDeliverableParams{
				BookingID:       booking.ID,
				InventoryItemID: item.InventoryItemID,
				Name:            item.Name,
				Quantity:        item.Quantity,
				UnitPriceCents:  item.UnitPriceCents,
				Status:          string(deliverables.StatusPending),
				Notes:           item.Notes,
				CreatedAt:       now,
			})
			if err != nil {
				return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create deliverable", Err: err}
			}
			created = append(created, row)
			names = append(names, fmt.Sprintf("%dx %s", row.Quantity, row.Name))
		}

		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionCreate,
			EntityType:  activity.EntityDeliverable,
			EntityID:    created[0].ID,
			Description: fmt.Sprintf("Added %s to booking %s", strings.Join(names, ", "), booking.Reference),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create deliverables")
		return
	}

	htmx.Trigger(w, "refreshDeliverables", "refreshInventory")
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("booking_id", req.BookingID).Msg("Failed to write deliverables response")
	}
}

// PATCH /api/admin/deliverables
func HandleDeliverablesBatchUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	database := loadDB()
	if database == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleCSR, authz.RoleHousekeeping) {
		return
	}

	var req batchRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target, err := deliverables.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, "status must be one of: Pending, Preparing, Delivered, Cancelled, Refunded", http.StatusBadRequest)
		return
	}
	byIDs := len(req.IDs) > 0
	byGroup := req.BookingID > 0 && strings.TrimSpace(req.Name) != ""
	if byIDs == byGroup {
		http.Error(w, "provide either ids or booking_id and name", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), deliverableQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	result := BatchResult{Status: target, Changed: []int64{}, Skipped: []int64{}}
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		var rows []dbgen.Deliverable
		var err error
		if byIDs {
			rows, err = qtx.ListDeliverablesByIDs(ctx, uniqueIDs(req.IDs))
		} else {
			rows, err = groupMembers(ctx, qtx, req.BookingID, req.Name)
		}
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load deliverables", Err: err}
		}
		if len(rows) == 0 || (byIDs && len(rows) != len(uniqueIDs(req.IDs))) {
			return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Deliverables not found"}
		}

		changes, err := deliverables.PlanBatch(deliverables.FromRows(rows), target)
		if err != nil {
			return conflictFor(err)
		}
		if len(changes) == 0 {
			for _, row := range rows {
				result.Skipped = append(result.Skipped, row.ID)
			}
			return nil
		}
		before, err := refreshedGroups(ctx, qtx, rows)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to summarize deliverables", Err: err}
		}
		if err := deliverables.Apply(ctx, qtx, rows, changes, now); err != nil {
			return conflictFor(err)
		}

		changed := make(map[int64]bool, len(changes))
		for _, c := range changes {
			changed[c.ID] = true
			result.Changed = append(result.Changed, c.ID)
		}
		for _, row := range rows {
			if !changed[row.ID] {
				result.Skipped = append(result.Skipped, row.ID)
			}
		}

		groups, err := refreshedGroups(ctx, qtx, rows)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to summarize deliverables", Err: err}
		}
		result.Groups = groups

		if err := activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionStatusChange,
			EntityType:  activity.EntityDeliverable,
			EntityID:    changes[0].ID,
			Description: fmt.Sprintf("Moved %d %s to %s", len(changes), describeRows(rows, changed), target),
		}, now); err != nil {
			return err
		}
		return notifyGroupChanges(ctx, qtx, before, groups, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update deliverables")
		return
	}

	metrics.DeliverableTransitions.WithLabelValues(string(target)).Add(float64(len(result.Changed)))
	htmx.Trigger(w, "refreshDeliverables", "refreshInventory")
	if err := apiutil.WriteJSON(w, http.StatusOK, result); err != nil {
		logger.Error().Err(err).Msg("Failed to write deliverables response")
	}
}

// PATCH /api/admin/deliverables/{id}
func HandleDeliverableUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	database := loadDB()
	if database == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleCSR, authz.RoleHousekeeping) {
		return
	}

	deliverableID, err := apiutil.PathID(r, "deliverable")
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
	var target deliverables.Status
	if req.Status != nil {
		target, err = deliverables.ParseStatus(*req.Status)
		if err != nil {
			http.Error(w, "status must be one of: Pending, Preparing, Delivered, Cancelled, Refunded", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), deliverableQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var (
		updated dbgen.Deliverable
		moved   bool
	)
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		current, err := qtx.GetDeliverable(ctx, deliverableID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Deliverable not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load deliverable", Err: err}
		}
		item := deliverables.FromRow(current)
		changes := []string{}

		if req.Quantity != nil && *req.Quantity != current.Quantity {
			if item.Status != deliverables.StatusPending {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("Quantity can only change while %s", deliverables.StatusPending)}
			}
			changes = append(changes, fmt.Sprintf("quantity %d -> %d", current.Quantity, *req.Quantity))
			current.Quantity = *req.Quantity
		}
		if req.Notes != nil && strings.TrimSpace(*req.Notes) != current.Notes {
			current.Notes = strings.TrimSpace(*req.Notes)
			changes = append(changes, "notes")
		}
		if len(changes) > 0 {
			current, err = qtx.UpdateDeliverableDetails(ctx, current.Quantity, current.Notes, now, current.ID)
			if err != nil {
				return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update deliverable", Err: err}
			}
			item = deliverables.FromRow(current)
		}

		before, err := refreshedGroups(ctx, qtx, []dbgen.Deliverable{current})
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to summarize deliverables", Err: err}
		}
		if target != "" && target != item.Status {
			if !deliverables.CanTransition(item.Status, target) {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: deliverables.TransitionError{ID: item.ID, From: item.Status, To: target}.Error()}
			}
			change := deliverables.Change{ID: item.ID, From: item.Status, To: target, Delta: deliverables.StockDelta(item.Status, target, item.Quantity)}
			if err := deliverables.Apply(ctx, qtx, []dbgen.Deliverable{current}, []deliverables.Change{change}, now); err != nil {
				return conflictFor(err)
			}
			moved = true
		}

		updated, err = qtx.GetDeliverable(ctx, deliverableID)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to reload deliverable", Err: err}
		}

		entry := activity.Entry{
			EmployeeID: authz.ActorID(r.Context()),
			Action:     activity.ActionUpdate,
			EntityType: activity.EntityDeliverable,
			EntityID:   updated.ID,
		}
		if moved {
			entry.Action = activity.ActionStatusChange
			entry.Description = fmt.Sprintf("%s %s -> %s", updated.Name, item.Status, updated.Status)
			if len(changes) > 0 {
				entry.Description += "; " + strings.Join(changes, ", ")
			}
		} else if len(changes) > 0 {
			entry.Description = fmt.Sprintf("Updated %s: %s", updated.Name, strings.Join(changes, ", "))
		} else {
			return nil
		}
		if err := activity.Record(ctx, qtx, entry, now); err != nil {
			return err
		}
		if !moved {
			return nil
		}
		groups, err := refreshedGroups(ctx, qtx, []dbgen.Deliverable{updated})
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to summarize deliverables", Err: err}
		}
		return notifyGroupChanges(ctx, qtx, before, groups, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update deliverable")
		return
	}

	if moved {
		metrics.DeliverableTransitions.WithLabelValues(updated.Status).Inc()
	}
	htmx.Trigger(w, "refreshDeliverables", "refreshInventory")
	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Int64("deliverable_id", updated.ID).Msg("Failed to write deliverable response")
	}
}

func conflictFor(err error) error {
	var terr deliverables.TransitionError
	if errors.As(err, &terr) {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: terr.Error(), Err: err}
	}
	var serr deliverables.StockError
	if errors.As(err, &serr) {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: serr.Error(), Err: err}
	}
	return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update deliverables", Err: err}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type groupKey struct {
	bookingID int64
	name      string
}

// groupMembers returns the booking's items whose names share a GroupKey with
// name. SQLite's LOWER folds ASCII only, so names are compared in Go.
func groupMembers(ctx context.Context, q *dbgen.Queries, bookingID int64, name string) ([]dbgen.Deliverable, error) {
	rows, err := q.ListDeliverablesForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	key := deliverables.GroupKey(name)
	members := rows[:0]
	for _, row := range rows {
		if deliverables.GroupKey(row.Name) == key {
			members = append(members, row)
		}
	}
	return members, nil
}

// refreshedGroups reloads the complete groups for the touched rows.
func refreshedGroups(ctx context.Context, q *dbgen.Queries, rows []dbgen.Deliverable) ([]deliverables.Group, error) {
	seen := make(map[groupKey]bool)
	var all []dbgen.Deliverable
	for _, row := range rows {
		key := groupKey{bookingID: row.BookingID, name: deliverables.GroupKey(row.Name)}
		if seen[key] {
			continue
		}
		seen[key] = true
		members, err := groupMembers(ctx, q, row.BookingID, row.Name)
		if err != nil {
			return nil, err
		}
		all = append(all, members...)
	}
	return deliverables.GroupItems(deliverables.FromRows(all)), nil
}

// notifyGroupChanges raises a notification for each group whose aggregate
// status moved.
func notifyGroupChanges(ctx context.Context, q *dbgen.Queries, before, after []deliverables.Group, now time.Time) error {
	previous := make(map[groupKey]deliverables.Status, len(before))
	for _, g := range before {
		previous[groupKey{bookingID: g.BookingID, name: deliverables.GroupKey(g.Name)}] = g.Status
	}
	for _, g := range after {
		key := groupKey{bookingID: g.BookingID, name: deliverables.GroupKey(g.Name)}
		if prev, ok := previous[key]; ok && prev == g.Status {
			continue
		}
		if len(g.ItemIDs) == 0 {
			continue
		}
		booking, err := q.GetBooking(ctx, g.BookingID)
		if err != nil {
			return fmt.Errorf("load booking %d: %w", g.BookingID, err)
		}
		message := fmt.Sprintf("%s for %s is now %s", g.Name, booking.Reference, g.Status)
		if _, err := activity.Notify(ctx, q, activity.KindDeliverableStatus, activity.EntityDeliverable, g.ItemIDs[0], message, now); err != nil {
			return err
		}
	}
	return nil
}

func describeRows(rows []dbgen.Deliverable, changed map[int64]bool) string {
	names := []string{}
	seen := map[string]bool{}
	for _, row := range rows {
		if !changed[row.ID] {
			continue
		}
		key := deliverables.GroupKey(row.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, strings.TrimSpace(row.Name))
	}
	return strings.Join(names, ", ")
}
