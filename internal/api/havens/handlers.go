package havens

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

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/activity"
	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/api/authz"
	appdb "github.com/codr1/StaycationHaven/internal/db"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/listing"
	"github.com/codr1/StaycationHaven/internal/weather"
)

const (
	havenQueryTimeout   = 5 * time.Second
	weatherFetchTimeout = 10 * time.Second
)

// WeatherProvider returns current conditions at a coordinate.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (weather.Conditions, error)
}

var (
	queries     *dbgen.Queries
	store       *appdb.DB
	forecaster  WeatherProvider
	queriesOnce sync.Once
)

type createRequest struct {
	Name             string  `json:"name" validate:"required,max=120"`
	Timezone         string  `json:"timezone" validate:"omitempty,timezone"`
	Latitude         float64 `json:"latitude" validate:"latitude"`
	Longitude        float64 `json:"longitude" validate:"longitude"`
	Capacity         int64   `json:"capacity" validate:"gte=1,lte=50"`
	NightlyRateCents int64   `json:"nightly_rate_cents" validate:"gte=0"`
}

var columns = []listing.Column[dbgen.Haven]{
	{Key: "id", Value: func(h dbgen.Haven) string { return strconv.FormatInt(h.ID, 10) }, Less: listing.Int64Less(func(h dbgen.Haven) int64 { return h.ID })},
	{Key: "name", Value: func(h dbgen.Haven) string { return h.Name }, Searchable: true},
	{Key: "slug", Value: func(h dbgen.Haven) string { return h.Slug }, Searchable: true, Filterable: true},
	{Key: "status", Value: func(h dbgen.Haven) string { return h.Status }, Filterable: true},
	{Key: "capacity", Value: func(h dbgen.Haven) string { return strconv.FormatInt(h.Capacity, 10) }, Less: listing.Int64Less(func(h dbgen.Haven) int64 { return h.Capacity })},
	{Key: "nightly_rate_cents", Value: func(h dbgen.Haven) string { return strconv.FormatInt(h.NightlyRateCents, 10) }, Less: listing.Int64Less(func(h dbgen.Haven) int64 { return h.NightlyRateCents })},
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, wx WeatherProvider) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		store = database
		forecaster = wx
	})
}

func loadQueries() *dbgen.Queries {
	return queries
}

func loadDB() *appdb.DB {
	return store
}

// GET /api/admin/havens
func HandleHavensList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), havenQueryTimeout)
	defer cancel()

	havens, err := q.ListHavens(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list havens")
		http.Error(w, "Failed to list havens", http.StatusInternalServerError)
		return
	}

	page := listing.Apply(havens, listing.ParseParams(r.URL.Query()), columns)
	if err := apiutil.WriteJSON(w, http.StatusOK, page); err != nil {
		logger.Error().Err(err).Msg("Failed to write haven list response")
	}
}

// POST /api/admin/havens
func HandleHavenCreate(w http.ResponseWriter, r *http.Request) {
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
	req.Name = strings.TrimSpace(req.Name)
	if req.Timezone == "" {
		req.Timezone = "Asia/Manila"
	}
	if err := apiutil.Validate(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), havenQueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	var created dbgen.Haven
	err := database.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		base := slug.Make(req.Name)
		taken, err := qtx.CountHavensWithSlug(ctx, base)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to check haven slug", Err: err}
		}
		havenSlug := base
		if taken > 0 {
			havenSlug = fmt.Sprintf("%s-%d", base, taken+1)
		}

		created, err = qtx.CreateHaven(ctx, dbgen.CreateHavenParams{
			Name:             req.Name,
			Slug:             havenSlug,
			Timezone:         req.Timezone,
			Latitude:         req.Latitude,
			Longitude:        req.Longitude,
			Capacity:         req.Capacity,
			NightlyRateCents: req.NightlyRateCents,
			Status:           "active",
			CreatedAt:        now,
		})
		if err != nil {
			if appdb.IsUniqueViolation(err) {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "A haven with that slug already exists", Err: err}
			}
			return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to create haven", Err: err}
		}
		return activity.Record(ctx, qtx, activity.Entry{
			EmployeeID:  authz.ActorID(r.Context()),
			Action:      activity.ActionCreate,
			EntityType:  activity.EntityHaven,
			EntityID:    created.ID,
			Description: fmt.Sprintf("Created haven %s", created.Name),
		}, now)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create haven")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("haven_id", created.ID).Msg("Failed to write haven response")
	}
}

// GET /api/admin/havens/{id}/weather
func HandleHavenWeather(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil || forecaster == nil {
		logger.Error().Msg("Haven handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r) {
		return
	}

	havenID, err := apiutil.PathID(r, "haven")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), havenQueryTimeout)
	defer cancel()

	haven, err := q.GetHaven(ctx, havenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Haven not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("haven_id", havenID).Msg("Failed to load haven")
		http.Error(w, "Failed to load haven", http.StatusInternalServerError)
		return
	}

	wxCtx, wxCancel := context.WithTimeout(r.Context(), weatherFetchTimeout)
	defer wxCancel()

	conditions, err := forecaster.Current(wxCtx, haven.Latitude, haven.Longitude)
	if err != nil {
		logger.Warn().Err(err).Int64("haven_id", havenID).Msg("Failed to fetch weather")
		http.Error(w, "Weather unavailable", http.StatusBadGateway)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, conditions); err != nil {
		logger.Error().Err(err).Int64("haven_id", havenID).Msg("Failed to write weather response")
	}
}
