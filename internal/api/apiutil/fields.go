package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be greater than 0"}
	}
	return value, nil
}

// OptionalPositiveInt64Query returns 0 when the query key is absent.
func OptionalPositiveInt64Query(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	return ParsePositiveInt64Field(raw, key)
}

// PathID parses the {id} path value.
func PathID(r *http.Request, entity string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID", entity)
	}
	return id, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	parsed, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, FieldError{Field: field, Reason: "must be a date in YYYY-MM-DD format"}
	}
	return parsed, nil
}

// DateRangeFromQuery reads start/end dates (inclusive) from the query and
// returns the half-open UTC instant range [start, end+1day). Missing values
// default to the trailing defaultDays ending today.
func DateRangeFromQuery(r *http.Request, now time.Time, defaultDays int) (time.Time, time.Time, error) {
	query := r.URL.Query()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	end := today
	if raw := strings.TrimSpace(query.Get("end")); raw != "" {
		parsed, err := ParseDate(raw, "end")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -(defaultDays - 1))
	if raw := strings.TrimSpace(query.Get("start")); raw != "" {
		parsed, err := ParseDate(raw, "start")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, FieldError{Field: "end", Reason: "must not be before start"}
	}
	return start, end.AddDate(0, 0, 1), nil
}

func FormatPriceCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	return fmt.Sprintf("%s₱%s.%02d", sign, whole, cents%100)
}

func ParseBoolField(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
