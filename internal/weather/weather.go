// Package weather fetches current conditions for a haven's coordinates from an
// Open-Meteo compatible forecast endpoint.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// ErrUpstream wraps every failure caused by the weather provider.
var ErrUpstream = errors.New("weather provider unavailable")

const currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,is_day,weather_code,wind_speed_10m"

type Conditions struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ObservedAt   string  `json:"observed_at"`
	TemperatureC float64 `json:"temperature_c"`
	FeelsLikeC   float64 `json:"feels_like_c"`
	HumidityPct  int64   `json:"humidity_pct"`
	WindKph      float64 `json:"wind_kph"`
	Code         int64   `json:"code"`
	Description  string  `json:"description"`
	IsDay        bool    `json:"is_day"`
	Cached       bool    `json:"cached"`
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	ttl        time.Duration
}

func NewClient(opts Options, cache Cache) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cache == nil {
		cache = NewMemoryCache(nil)
	}
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		ttl:        opts.CacheTTL,
	}
}

// Coordinates are rounded to this many decimals (about 11 m) for both the
// cache key and the request.
const coordPrecision = 4

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', coordPrecision, 64)
}

func cacheKey(lat, lon float64) string {
	return "weather:" + formatCoord(lat) + ":" + formatCoord(lon)
}

// Current returns conditions at the coordinates, served from cache while the
// cached entry is younger than the configured TTL. Cache failures fall
// through to the provider.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	logger := log.Ctx(ctx)
	key := cacheKey(lat, lon)

	if c.ttl > 0 {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Weather cache read failed")
		} else if ok {
			cached.Cached = true
			return cached, nil
		}
	}

	conditions, err := c.fetch(ctx, lat, lon)
	if err != nil {
		return Conditions{}, err
	}

	if c.ttl > 0 {
		if err := c.cache.Set(ctx, key, conditions, c.ttl); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Weather cache write failed")
		}
	}
	return conditions, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (Conditions, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return Conditions{}, fmt.Errorf("parse weather base url: %w", err)
	}
	query := endpoint.Query()
	query.Set("latitude", formatCoord(lat))
	query.Set("longitude", formatCoord(lon))
	query.Set("current", currentFields)
	query.Set("wind_speed_unit", "kmh")
	query.Set("timezone", "UTC")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		reason := gjson.GetBytes(body, "reason").String()
		return Conditions{}, fmt.Errorf("%w: status %d %s", ErrUpstream, resp.StatusCode, reason)
	}
	return parseConditions(body, lat, lon)
}

func parseConditions(body []byte, lat, lon float64) (Conditions, error) {
	if !gjson.ValidBytes(body) {
		return Conditions{}, fmt.Errorf("%w: invalid JSON", ErrUpstream)
	}
	current := gjson.GetBytes(body, "current")
	if !current.Exists() || !current.Get("temperature_2m").Exists() {
		return Conditions{}, fmt.Errorf("%w: missing current conditions", ErrUpstream)
	}

	code := current.Get("weather_code").Int()
	return Conditions{
		Latitude:     lat,
		Longitude:    lon,
		ObservedAt:   current.Get("time").String(),
		TemperatureC: current.Get("temperature_2m").Float(),
		FeelsLikeC:   current.Get("apparent_temperature").Float(),
		HumidityPct:  current.Get("relative_humidity_2m").Int(),
		WindKph:      current.Get("wind_speed_10m").Float(),
		Code:         code,
		Description:  Describe(code),
		IsDay:        current.Get("is_day").Int() == 1,
	}, nil
}

// Describe maps a WMO weather interpretation code to a short label.
func Describe(code int64) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorm"
	}
	return "Unknown"
}
