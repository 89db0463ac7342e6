package inventory

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
	"github.com/codr1/StaycationHaven/internal/metrics"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
	"github.com/codr1/StaycationHaven/internal/templates/layouts"
)

const inventoryQueryTimeout = 5 * time.Second

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	queriesOnce sync.Once
)

// Item is an inventory row with its derived low-stock flag.
type Item struct {
	dbgen.InventoryItem
	LowStock bool `json:"low_stock"`
}

type createRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Sku           string `json:"sku" validate:"max=64"`
	Category      string `json:"category" validate:"max=64"`
	Unit          string `json:"unit" validate:"max=32"`
	Quantity      int64  `json:"quantity" validate:"gte=0"`
	ReorderLevel  int64  `json:"reorder_level" validate:"gte=0"`
	UnitCostCents int64  `json:"unit_cost_cents" validate:"gte=0"`
}

// updateRequest changes only the fields present. Delta adjusts stock
// relative to the current quantity and cannot be combined with Quantity.
type updateRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=120"`
	Sku           *string `json:"sku" validate:"omitempty,max=64"`
	Category      *string `json:"category" validate:"omitempty,max=64"`
	Unit          *string `json:"unit" validate:"omitempty,max=32"`
	Quantity      *int64  `json:"quantity" validate:"omitempty,gte=0"`
	Delta         *int64  `json:"delta"`
	ReorderLevel  *int64  `json:"reorder_level" validate:"omitempty,gte=0"`
	UnitCostCents *int64  `json:"unit_cost_cents" validate:"omitempty,gte=0"`
}

var columns = []listing.Column[Item]{
	{Key: "id", Value: func(i Item) string { return strconv.FormatInt(i.ID, 10) }, Less: listing.Int64Less(func(i Item) int64 { return i.ID })},
	{Key: "name", Value: func(i Item) string { return i.Name }, Searchable: true},
	{Key: "sku", Value: func(i Item) string { return i.Sku }, Searchable: true, Filterable: true},
	{Key: "category", Value: func(i Item) string { return i.Category }, Searchable: true, Filterable: true},
	{Key: "unit", Value: func(i Item) string { return i.Unit }, Filterable: true},
	{Key: "quantity", Value: func(i Item) string { return strconv.FormatInt(i.Quantity, 10) }, Less: listing.Int64Less(func(i Item) int64 { return i.Quantity })},
	{Key: "reorder_level", Value: func(i Item) string { return strconv.FormatInt(i.ReorderLevel, 10) }, Less: listing.Int64Less(func(i Item) int64 { return i.ReorderLevel })},
	{Key: "unit_cost_cents", Value: func(i Item) string { return strconv.FormatInt(i.UnitCostCents, 10) }, Less: listing.Int64Less(func(i Item) int64 { return i.UnitCostCents })},
}

var tableColumns = []shared.Column{
	{Key: "name", Label: "Item", Sortable: true},
	{Key: "sku", Label: "SKU", Sortable: true},
	{Key: "category", Label: "Category", Sortable: true},
	{Key: "quantity", Label: "On hand", Sortable: true},
	{Key: "reorder_level", Label: "Reorder at", Sortable: true},
	{Key: "unit_cost_cents", Label: "Unit cost", Sortable: true},
	{Key: "low_stock", Label: "Stock"},
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

func newItem(item dbgen.InventoryItem) Item {
	return Item{InventoryItem: item, LowStock: item.Quantity <= item.ReorderLevel}
}

func listItems(ctx context.Context, q *dbgen.Queries, r *http.Request) (listing.Params, listing.Page[Item], error) {
	params := listing.ParseParams(r.URL.Query())
	lowStockOnly := apiutil.ParseBoolField(r.URL.Query().Get("low_stock"))

	rows, err := q.ListInventoryItems(ctx, lowStockOnly)
	if err != nil {
		return params, listing.Page[Item]{}, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, newItem(row))
	}
	return params, listing.Apply(items, params, columns), nil
}

// GET /api/inventory
func HandleInventoryList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), inventoryQueryTimeout)
	defer cancel()

	_, page, err := listItems(ctx, q, r)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list inventory items")
		http.Error(w, "Failed to list inventory items", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write inventory list response")
	}
}

// GET /admin/inventory
func HandleInventoryPage(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), inventoryQueryTimeout)
	defer cancel()

	params, page, err := listItems(ctx, q, r)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list inventory items")
		http.Error(w, "Failed to load inventory", http.StatusInternalServerError)
		return
	}

	table := shared.NewTable("inventory-table", "/admin/inventory", tableColumns, params, page, func(i Item) []shared.Cell {
		stock := "ok"
		if i.LowStock {
			stock = "low"
		}
		return []shared.Cell{
			{Text: i.Name},
			{Text: i.Sku},
			{Text: i.Category},
			{Text: fmt.Sprintf("%d %s", i.Quantity, i.Unit)},
			{Text: strconv.FormatInt(i.ReorderLevel, 10)},
			{Text: apiutil.FormatPriceCents(i.UnitCostCents)},
			{Text: stock, Badge: true},
		}
	})
	table.RefreshOn = "refreshInventory"
	table.Empty = "No inventory items"

	component := shared.TableView(table)
	if !htmx.IsRequest(r) {
		component = layouts.Base("Inventory", "inventory", component)
	}
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render inventory page", "Failed to render page")
}

// POST /api/inventory
func HandleInventoryCreate(w http.ResponseWriter, r *http.Request) {
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

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), inventoryQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var created dbgen.InventoryItem
	err := database.RunInTx(ctx, func(txdb *appdb.DB) error {
		var err error
		created, err = txdb.Queries.CreateInventoryItem(ctx, dbgen.CreateInventoryItemParams{
			Name:          req.Name,
			Sku:           strings.TrimSpace(req.Sku),
			Category:      strings.TrimSpace(req.Category),
			Unit:          strings.TrimSpace(req.Unit),
			Quantity:      req.Quantity,
			ReorderLevel:  req.ReorderLevel,
			UnitCostCents: req.UnitCostCents,
			CreatedAt:     now,
		})
		if err != nil {
			if appdb.IsUniqueViolation(err) {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "An inventory item with that name already exists", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create inventory item", Err: err}
		}
		return activity.Record(ctx, txdb.Queries, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionCreate,
			EntityType:  activity.EntityInventory,
			EntityID:    created.ID,
			Description: fmt.Sprintf("Added inventory item %s (%d on hand)", created.Name, created.Quantity),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create inventory item")
		return
	}

	refreshLowStockGauge(ctx, database.Queries)
	htmx.Trigger(w, "refreshInventory")
	if err := apiutil.WriteJSON(w, http.StatusCreated, newItem(created)); err != nil {
		logger.Error().Err(err).Int64("inventory_item_id", created.ID).Msg("Failed to write inventory response")
	}
}

// PATCH /api/inventory/{id}
func HandleInventoryUpdate(w http.ResponseWriter, r *http.Request) {
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

	itemID, err := apiutil.PathID(r, "inventory item")
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
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Quantity != nil && req.Delta != nil {
		http.Error(w, "quantity and delta cannot both be set", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), inventoryQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var updated dbgen.InventoryItem
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		current, err := qtx.GetInventoryItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Inventory item not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load inventory item", Err: err}
		}

		if req.Delta != nil && *req.Delta != 0 {
			affected, err := qtx.AdjustInventoryQuantity(ctx, itemID, *req.Delta, now)
			if err != nil {
				return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to adjust stock", Err: err}
			}
			if affected == 0 {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("Insufficient stock for %s", current.Name)}
			}
			current.Quantity += *req.Delta
		}

		params := dbgen.UpdateInventoryItemParams{
			Name:          current.Name,
			Sku:           current.Sku,
			Category:      current.Category,
			Unit:          current.Unit,
			Quantity:      current.Quantity,
			ReorderLevel:  current.ReorderLevel,
			UnitCostCents: current.UnitCostCents,
			UpdatedAt:     now,
			ID:            itemID,
		}
		changes := []string{}
		if req.Name != nil && strings.TrimSpace(*req.Name) != current.Name {
			params.Name = strings.TrimSpace(*req.Name)
			changes = append(changes, "name")
		}
		if req.Sku != nil && *req.Sku != current.Sku {
			params.Sku = strings.TrimSpace(*req.Sku)
			changes = append(changes, "sku")
		}
		if req.Category != nil && *req.Category != current.Category {
			params.Category = strings.TrimSpace(*req.Category)
			changes = append(changes, "category")
		}
		if req.Unit != nil && *req.Unit != current.Unit {
			params.Unit = strings.TrimSpace(*req.Unit)
			changes = append(changes, "unit")
		}
		if req.Quantity != nil && *req.Quantity != current.Quantity {
			params.Quantity = *req.Quantity
			changes = append(changes, "quantity")
		}
		if req.ReorderLevel != nil && *req.ReorderLevel != current.ReorderLevel {
			params.ReorderLevel = *req.ReorderLevel
			changes = append(changes, "reorder level")
		}
		if req.UnitCostCents != nil && *req.UnitCostCents != current.UnitCostCents {
			params.UnitCostCents = *req.UnitCostCents
			changes = append(changes, "unit cost")
		}

		updated, err = qtx.UpdateInventoryItem(ctx, params)
		if err != nil {
			if appdb.IsUniqueViolation(err) {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "An inventory item with that name already exists", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update inventory item", Err: err}
		}

		description := fmt.Sprintf("Updated %s", updated.Name)
		if len(changes) > 0 {
			description += ": " + strings.Join(changes, ", ")
		}
		if req.Delta != nil && *req.Delta != 0 {
			description += fmt.Sprintf(" (stock %+d, now %d)", *req.Delta, updated.Quantity)
		}
		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionUpdate,
			EntityType:  activity.EntityInventory,
			EntityID:    updated.ID,
			Description: description,
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update inventory item")
		return
	}

	refreshLowStockGauge(ctx, database.Queries)
	htmx.Trigger(w, "refreshInventory")
	if err := apiutil.WriteJSON(w, http.StatusOK, newItem(updated)); err != nil {
		logger.Error().Err(err).Int64("inventory_item_id", updated.ID).Msg("Failed to write inventory response")
	}
}

// DELETE /api/inventory/{id}
func HandleInventoryDelete(w http.ResponseWriter, r *http.Request) {
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

	itemID, err := apiutil.PathID(r, "inventory item")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), inventoryQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	err = database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		item, err := qtx.GetInventoryItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Inventory item not found", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to load inventory item", Err: err}
		}

		inUse, err := qtx.CountDeliverablesForItem(ctx, itemID)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to check inventory usage", Err: err}
		}
		if inUse > 0 {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: fmt.Sprintf("%s is used by %d deliverables", item.Name, inUse)}
		}

		if _, err := qtx.DeleteInventoryItem(ctx, itemID); err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to delete inventory item", Err: err}
		}
		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionDelete,
			EntityType:  activity.EntityInventory,
			EntityID:    item.ID,
			Description: fmt.Sprintf("Deleted inventory item %s", item.Name),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete inventory item")
		return
	}

	refreshLowStockGauge(ctx, database.Queries)
	htmx.Trigger(w, "refreshInventory")
	w.WriteHeader(http.StatusNoContent)
}

func refreshLowStockGauge(ctx context.Context, q *dbgen.Queries) {
	low, err := q.ListInventoryItems(ctx, true)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to refresh low stock gauge")
		return
	}
	metrics.LowStockItems.Set(float64(len(low)))
}
