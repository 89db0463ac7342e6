// Package listing filters, sorts and paginates admin table rows.
package listing

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 25
	MaxPerPage     = 100
)

// Reserved query keys; every other key is treated as a column filter.
var reservedKeys = map[string]struct{}{
	"q":        {},
	"search":   {},
	"sort":     {},
	"order":    {},
	"page":     {},
	"per_page": {},
	"start":    {},
	"end":      {},
}

type Params struct {
	Search  string
	Sort    string
	Desc    bool
	Page    int
	PerPage int
	Filters map[string]string
}

// Column describes how a table column of T is matched and ordered.
type Column[T any] struct {
	Key        string
	Value      func(T) string
	Less       func(a, b T) bool
	Searchable bool
	Filterable bool
}

type Page[T any] struct {
	Rows       []T    `json:"rows"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalRows  int    `json:"total_rows"`
	TotalPages int    `json:"total_pages"`
	Sort       string `json:"sort,omitempty"`
	Order      string `json:"order,omitempty"`
	Search     string `json:"search,omitempty"`
}

// ParseParams reads listing parameters from a query string. Invalid numbers
// fall back to defaults rather than failing the request.
func ParseParams(values url.Values) Params {
	params := Params{
		Search:  strings.TrimSpace(values.Get("q")),
		Sort:    strings.TrimSpace(values.Get("sort")),
		Desc:    strings.EqualFold(strings.TrimSpace(values.Get("order")), "desc"),
		Page:    1,
		PerPage: DefaultPerPage,
		Filters: map[string]string{},
	}
	if params.Search == "" {
		params.Search = strings.TrimSpace(values.Get("search"))
	}
	if page, err := strconv.Atoi(strings.TrimSpace(values.Get("page"))); err == nil && page > 0 {
		params.Page = page
	}
	if perPage, err := strconv.Atoi(strings.TrimSpace(values.Get("per_page"))); err == nil && perPage > 0 {
		params.PerPage = perPage
	}
	if params.PerPage > MaxPerPage {
		params.PerPage = MaxPerPage
	}
	for key, vals := range values {
		if _, ok := reservedKeys[key]; ok {
			continue
		}
		if len(vals) == 0 {
			continue
		}
		value := strings.TrimSpace(vals[0])
		if value == "" {
			continue
		}
		params.Filters[key] = value
	}
	return params
}

// Query encodes the params back into a query string, overriding the page.
func (p Params) Query(page int) string {
	values := url.Values{}
	if p.Search != "" {
		values.Set("q", p.Search)
	}
	if p.Sort != "" {
		values.Set("sort", p.Sort)
		if p.Desc {
			values.Set("order", "desc")
		} else {
			values.Set("order", "asc")
		}
	}
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	if p.PerPage > 0 && p.PerPage != DefaultPerPage {
		values.Set("per_page", strconv.Itoa(p.PerPage))
	}
	for key, value := range p.Filters {
		values.Set(key, value)
	}
	return values.Encode()
}

// Apply runs search, filters, sort and pagination over rows, in that order.
// The input slice is not modified.
func Apply[T any](rows []T, params Params, columns []Column[T]) Page[T] {
	byKey := make(map[string]Column[T], len(columns))
	for _, col := range columns {
		byKey[col.Key] = col
	}

	filtered := make([]T, 0, len(rows))
	needle := strings.ToLower(strings.TrimSpace(params.Search))
	for _, row := range rows {
		if needle != "" && !matchesSearch(row, needle, columns) {
			continue
		}
		if !matchesFilters(row, params.Filters, byKey) {
			continue
		}
		filtered = append(filtered, row)
	}

	order := ""
	if col, ok := byKey[params.Sort]; ok {
		less := col.Less
		if less == nil {
			value := col.Value
			less = func(a, b T) bool {
				return strings.ToLower(value(a)) < strings.ToLower(value(b))
			}
		}
		if params.Desc {
			sort.SliceStable(filtered, func(i, j int) bool { return less(filtered[j], filtered[i]) })
			order = "desc"
		} else {
			sort.SliceStable(filtered, func(i, j int) bool { return less(filtered[i], filtered[j]) })
			order = "asc"
		}
	}

	perPage := params.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	total := len(filtered)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}

	result := Page[T]{
		Rows:       filtered[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalRows:  total,
		TotalPages: totalPages,
		Search:     params.Search,
	}
	if order != "" {
		result.Sort = params.Sort
		result.Order = order
	}
	return result
}

func matchesSearch[T any](row T, needle string, columns []Column[T]) bool {
	for _, col := range columns {
		if !col.Searchable || col.Value == nil {
			continue
		}
		if strings.Contains(strings.ToLower(col.Value(row)), needle) {
			return true
		}
	}
	return false
}

func matchesFilters[T any](row T, filters map[string]string, byKey map[string]Column[T]) bool {
	for key, want := range filters {
		col, ok := byKey[key]
		if !ok || !col.Filterable || col.Value == nil {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(col.Value(row)), strings.TrimSpace(want)) {
			return false
		}
	}
	return true
}

// Int64Less orders rows by an integer accessor.
func Int64Less[T any](value func(T) int64) func(a, b T) bool {
	return func(a, b T) bool {
		return value(a) < value(b)
	}
}
