package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
)

type NavItem struct {
	Key   string
	Label string
	Href  string
}

var AdminNav = []NavItem{
	{Key: "dashboard", Label: "Dashboard", Href: "/admin"},
	{Key: "bookings", Label: "Bookings", Href: "/admin/bookings"},
	{Key: "payments", Label: "Payments", Href: "/admin/payments"},
	{Key: "deliverables", Label: "Deliverables", Href: "/admin/deliverables"},
	{Key: "inventory", Label: "Inventory", Href: "/admin/inventory"},
	{Key: "blocked-dates", Label: "Blocked Dates", Href: "/admin/blocked-dates"},
	{Key: "activity-logs", Label: "Activity Logs", Href: "/admin/activity-logs"},
	{Key: "employees", Label: "Employees", Href: "/admin/employees"},
	{Key: "docs", Label: "Docs", Href: "/docs"},
}

// Base wraps body in the admin shell. active selects the highlighted nav item.
// The notifications badge refreshes itself every 30 seconds.
func Base(title, active string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := shared.Write(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, shared.Escape(title), ` | Staycation Haven</title>`,
			`<link rel="stylesheet" href="/static/css/main.css">`,
			`<script src="https://unpkg.com/htmx.org@2.0.4" defer></script>`,
			`<script src="https://unpkg.com/htmx-ext-json-enc@2.0.1/json-enc.js" defer></script>`,
			`</head><body hx-ext="json-enc"><header class="topbar"><a class="brand" href="/admin">Staycation Haven</a><nav>`,
		); err != nil {
			return err
		}
		for _, item := range AdminNav {
			class := ""
			if item.Key == active {
				class = ` class="active"`
			}
			if err := shared.Write(w, `<a href="`, item.Href, `"`, class, `>`, shared.Escape(item.Label), `</a>`); err != nil {
				return err
			}
		}
		if err := shared.Write(w,
			`</nav><span id="notification-badge" hx-get="/admin/notifications/badge" hx-trigger="load, every 30s, refreshNotificationCount from:body" hx-swap="innerHTML"></span>`,
			`</header><main><h1>`, shared.Escape(title), `</h1>`,
		); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		return shared.Write(w, `</main></body></html>`)
	})
}
