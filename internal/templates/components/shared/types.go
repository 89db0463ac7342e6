package shared

import (
	"github.com/a-h/templ"

	"github.com/codr1/StaycationHaven/internal/listing"
)

// Cell is one table cell. Badge renders the text as a status pill.
type Cell struct {
	Text  string
	Href  string
	Badge bool
}

type Column struct {
	Key      string
	Label    string
	Sortable bool
}

// Table is a sortable, paginated admin table. BaseURL is the endpoint that
// re-renders the table; QueryFor builds the query string for a page.
type Table struct {
	ID         string
	BaseURL    string
	Columns    []Column
	Rows       [][]Cell
	Actions    []templ.Component
	Search     string
	Sort       string
	Order      string
	Page       int
	TotalPages int
	TotalRows  int
	QueryFor   func(page int, sort string, desc bool) string
	PollEvery  string
	// RefreshOn is a client event, sent via HX-Trigger, that reloads the table.
	RefreshOn string
	Empty     string
}

// NewTable builds a Table from a listing page. Each row is converted with
// toCells; the pager and sort links keep the current search and filters.
func NewTable[T any](id, baseURL string, columns []Column, params listing.Params, page listing.Page[T], toCells func(T) []Cell) Table {
	rows := make([][]Cell, 0, len(page.Rows))
	for _, row := range page.Rows {
		rows = append(rows, toCells(row))
	}
	return Table{
		ID:         id,
		BaseURL:    baseURL,
		Columns:    columns,
		Rows:       rows,
		Search:     page.Search,
		Sort:       page.Sort,
		Order:      page.Order,
		Page:       page.Page,
		TotalPages: page.TotalPages,
		TotalRows:  page.TotalRows,
		QueryFor: func(p int, sort string, desc bool) string {
			next := params
			next.Sort = sort
			next.Desc = desc
			return next.Query(p)
		},
	}
}
