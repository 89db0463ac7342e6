package notifications

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
)

type Notification struct {
	dbgen.Notification
}

func NewNotification(row dbgen.Notification) Notification {
	return Notification{Notification: row}
}

func NewNotifications(rows []dbgen.Notification) []Notification {
	notifications := make([]Notification, len(rows))
	for i, row := range rows {
		notifications[i] = NewNotification(row)
	}
	return notifications
}

func (n Notification) KindLabel() string {
	switch n.Kind {
	case "low_stock":
		return "Low stock"
	case "booking_created":
		return "New booking"
	case "booking_expired":
		return "Expired"
	case "deliverable_status":
		return "Add-on"
	default:
		return n.Kind
	}
}

func (n Notification) BadgeClass() string {
	switch n.Kind {
	case "low_stock":
		return "badge badge-warning"
	case "booking_expired":
		return "badge badge-danger"
	case "booking_created":
		return "badge badge-info"
	default:
		return "badge"
	}
}

func (n Notification) Timestamp() string {
	return n.CreatedAt.Format("2006-01-02 15:04")
}

// CountBadge renders the unread counter shown in the top bar. Zero renders
// nothing so the badge disappears.
func CountBadge(count int64) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if count <= 0 {
			return nil
		}
		label := strconv.FormatInt(count, 10)
		if count > 99 {
			label = "99+"
		}
		return shared.Write(w, `<a class="notification-count" href="/admin#notifications">`, label, `</a>`)
	})
}

// Panel lists notifications with a per-item mark-read button.
func Panel(items []Notification) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := shared.Write(w, `<section id="notifications" class="notifications" hx-get="/admin/notifications" hx-trigger="every 30s, refreshNotificationCount from:body" hx-swap="outerHTML"><h2>Notifications</h2>`); err != nil {
			return err
		}
		if len(items) == 0 {
			return shared.Write(w, `<p class="empty">Nothing new</p></section>`)
		}
		if err := shared.Write(w, `<ul>`); err != nil {
			return err
		}
		for _, n := range items {
			class := ""
			if n.ReadAt == nil {
				class = ` class="unread"`
			}
			if err := shared.Write(w,
				`<li`, class, `><span class="`, n.BadgeClass(), `">`, shared.Escape(n.KindLabel()), `</span> `,
				shared.Escape(n.Message), ` <time>`, n.Timestamp(), `</time>`,
			); err != nil {
				return err
			}
			if n.ReadAt == nil {
				if err := shared.Write(w,
					` <button type="button" class="btn btn-small" hx-post="/api/admin/notifications/read" hx-vals='{"ids":[`,
					strconv.FormatInt(n.ID, 10), `]}' hx-swap="none" hx-on::after-request="htmx.trigger(document.body, 'refreshNotificationCount')">Mark read</button>`,
				); err != nil {
					return err
				}
			}
			if err := shared.Write(w, `</li>`); err != nil {
				return err
			}
		}
		return shared.Write(w, `</ul></section>`)
	})
}
