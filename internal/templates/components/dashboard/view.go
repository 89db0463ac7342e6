package dashboard

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/deliverables"
	"github.com/codr1/StaycationHaven/internal/templates/components/shared"
)

func card(w io.Writer, label, value string) error {
	return shared.Write(w, `<div class="card"><span class="card-label">`, shared.Escape(label), `</span><strong>`, shared.Escape(value), `</strong></div>`)
}

// Cards renders the summary numbers. It refreshes itself every 30 seconds.
func Cards(s Summary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := shared.Write(w, `<section id="dashboard-cards" class="cards" hx-get="/admin/dashboard/cards" hx-trigger="every 30s" hx-swap="outerHTML">`); err != nil {
			return err
		}
		cards := [][2]string{
			{"Arrivals today", strconv.FormatInt(s.Arrivals, 10)},
			{"Departures today", strconv.FormatInt(s.Departures, 10)},
			{"In house", strconv.FormatInt(s.InHouse, 10)},
			{"Occupancy", fmt.Sprintf("%.0f%% of %d", s.OccupancyRate*100, s.ActiveHavens)},
			{"Collected " + s.RangeStart + " to " + s.RangeEnd, apiutil.FormatPriceCents(s.RevenueCents)},
			{"Outstanding", apiutil.FormatPriceCents(s.OutstandingCents)},
			{"Low stock items", strconv.FormatInt(s.LowStockItems, 10)},
			{"Unread notifications", strconv.FormatInt(s.UnreadNotifications, 10)},
		}
		for _, c := range cards {
			if err := card(w, c[0], c[1]); err != nil {
				return err
			}
		}
		if err := shared.Write(w, `<div class="card"><span class="card-label">Add-ons</span><ul>`); err != nil {
			return err
		}
		for _, status := range deliverables.AllStatuses {
			if err := shared.Write(w, `<li>`, shared.Escape(string(status)), `: `, strconv.FormatInt(s.DeliverableGroups[string(status)], 10), `</li>`); err != nil {
				return err
			}
		}
		return shared.Write(w, `</ul></div></section>`)
	})
}

func Weather(rows []HavenWeather) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := shared.Write(w, `<section class="weather"><h2>Weather</h2><ul>`); err != nil {
			return err
		}
		for _, row := range rows {
			text := "Weather unavailable"
			if row.Err == nil {
				text = fmt.Sprintf("%.0f°C, feels like %.0f°C, %s", row.TemperatureC, row.FeelsLikeC, row.Description)
			}
			if err := shared.Write(w, `<li><strong>`, shared.Escape(row.HavenName), `</strong> `, shared.Escape(text), `</li>`); err != nil {
				return err
			}
		}
		return shared.Write(w, `</ul></section>`)
	})
}

// Layout is the /admin page body. The notifications panel loads on its own.
func Layout(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := Cards(data.Summary).Render(ctx, w); err != nil {
			return err
		}
		if err := Weather(data.Weather).Render(ctx, w); err != nil {
			return err
		}
		return shared.Write(w, `<section id="notifications" hx-get="/admin/notifications" hx-trigger="load" hx-swap="outerHTML"></section>`)
	})
}
