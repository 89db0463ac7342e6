package shared

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

func write(w io.Writer, parts ...string) error {
	for _, part := range parts {
		if _, err := io.WriteString(w, part); err != nil {
			return err
		}
	}
	return nil
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// StatusClass maps a status value to a badge class.
func StatusClass(status string) string {
	switch strings.ToLower(status) {
	case "pending", "low":
		return "badge badge-warning"
	case "preparing", "confirmed", "checked_in":
		return "badge badge-info"
	case "delivered", "paid", "checked_out", "active", "ok":
		return "badge badge-success"
	case "cancelled", "failed", "inactive":
		return "badge badge-muted"
	case "refunded":
		return "badge badge-danger"
	}
	return "badge"
}

func Badge(text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w, `<span class="`, StatusClass(text), `">`, esc(text), `</span>`)
	})
}

// TableView renders the table with its search box and pager. The wrapper div
// is the htmx swap target for search, sort, paging and polling.
func TableView(t Table) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		desc := strings.EqualFold(t.Order, "desc")
		target := "#" + t.ID

		var events []string
		if t.PollEvery != "" {
			events = append(events, "every "+t.PollEvery)
		}
		if t.RefreshOn != "" {
			events = append(events, t.RefreshOn+" from:body")
		}
		trigger := ""
		if len(events) > 0 {
			trigger = fmt.Sprintf(` hx-get="%s?%s" hx-trigger="%s" hx-target="%s" hx-swap="outerHTML"`,
				esc(t.BaseURL), esc(t.QueryFor(t.Page, t.Sort, desc)), esc(strings.Join(events, ", ")), esc(target))
		}
		if err := write(w, `<div id="`, esc(t.ID), `" class="admin-table"`, trigger, `>`); err != nil {
			return err
		}

		if err := write(w,
			`<input type="search" name="q" placeholder="Search" value="`, esc(t.Search), `"`,
			` hx-get="`, esc(t.BaseURL), `" hx-trigger="keyup changed delay:300ms, search"`,
			` hx-target="`, esc(target), `" hx-swap="outerHTML">`,
		); err != nil {
			return err
		}

		if err := write(w, `<table><thead><tr>`); err != nil {
			return err
		}
		for _, col := range t.Columns {
			if !col.Sortable {
				if err := write(w, `<th>`, esc(col.Label), `</th>`); err != nil {
					return err
				}
				continue
			}
			nextDesc := col.Key == t.Sort && !desc
			arrow := ""
			if col.Key == t.Sort {
				arrow = " ▲"
				if desc {
					arrow = " ▼"
				}
			}
			href := t.BaseURL + "?" + t.QueryFor(1, col.Key, nextDesc)
			if err := write(w,
				`<th><a hx-get="`, esc(href), `" hx-target="`, esc(target), `" hx-swap="outerHTML">`,
				esc(col.Label), arrow, `</a></th>`,
			); err != nil {
				return err
			}
		}
		if len(t.Actions) > 0 {
			if err := write(w, `<th></th>`); err != nil {
				return err
			}
		}
		if err := write(w, `</tr></thead><tbody>`); err != nil {
			return err
		}

		if len(t.Rows) == 0 {
			empty := t.Empty
			if empty == "" {
				empty = "No results"
			}
			span := len(t.Columns)
			if len(t.Actions) > 0 {
				span++
			}
			if err := write(w, fmt.Sprintf(`<tr><td colspan="%d" class="empty">`, span), esc(empty), `</td></tr>`); err != nil {
				return err
			}
		}
		for i, row := range t.Rows {
			if err := write(w, `<tr>`); err != nil {
				return err
			}
			for _, cell := range row {
				if err := writeCell(ctx, w, cell); err != nil {
					return err
				}
			}
			if i < len(t.Actions) && t.Actions[i] != nil {
				if err := write(w, `<td class="actions">`); err != nil {
					return err
				}
				if err := t.Actions[i].Render(ctx, w); err != nil {
					return err
				}
				if err := write(w, `</td>`); err != nil {
					return err
				}
			}
			if err := write(w, `</tr>`); err != nil {
				return err
			}
		}
		if err := write(w, `</tbody></table>`); err != nil {
			return err
		}

		if err := writePager(w, t, desc); err != nil {
			return err
		}
		return write(w, `</div>`)
	})
}

func writeCell(ctx context.Context, w io.Writer, cell Cell) error {
	switch {
	case cell.Badge:
		if err := write(w, `<td>`); err != nil {
			return err
		}
		if err := Badge(cell.Text).Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</td>`)
	case cell.Href != "":
		return write(w, `<td><a href="`, esc(cell.Href), `">`, esc(cell.Text), `</a></td>`)
	default:
		return write(w, `<td>`, esc(cell.Text), `</td>`)
	}
}

func writePager(w io.Writer, t Table, desc bool) error {
	if err := write(w, `<nav class="pager">`); err != nil {
		return err
	}
	if t.Page > 1 {
		href := t.BaseURL + "?" + t.QueryFor(t.Page-1, t.Sort, desc)
		if err := write(w, `<a hx-get="`, esc(href), `" hx-target="#`, esc(t.ID), `" hx-swap="outerHTML">Previous</a>`); err != nil {
			return err
		}
	}
	if err := write(w, fmt.Sprintf(`<span>Page %d of %d (%d rows)</span>`, t.Page, t.TotalPages, t.TotalRows)); err != nil {
		return err
	}
	if t.Page < t.TotalPages {
		href := t.BaseURL + "?" + t.QueryFor(t.Page+1, t.Sort, desc)
		if err := write(w, `<a hx-get="`, esc(href), `" hx-target="#`, esc(t.ID), `" hx-swap="outerHTML">Next</a>`); err != nil {
			return err
		}
	}
	return write(w, `</nav>`)
}

// Write and Escape are exported for sibling component packages.
func Write(w io.Writer, parts ...string) error { return write(w, parts...) }

func Escape(s string) string { return esc(s) }
