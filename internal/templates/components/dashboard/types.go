package dashboard

// Summary is the dashboard's headline numbers for one day plus a revenue range.
type Summary struct {
	Date                string           `json:"date"`
	Arrivals            int64            `json:"arrivals"`
	Departures          int64            `json:"departures"`
	InHouse             int64            `json:"in_house"`
	ActiveHavens        int64            `json:"active_havens"`
	OccupancyRate       float64          `json:"occupancy_rate"`
	RangeStart          string           `json:"range_start"`
	RangeEnd            string           `json:"range_end"`
	RevenueCents        int64            `json:"revenue_cents"`
	OutstandingCents    int64            `json:"outstanding_cents"`
	DeliverableGroups   map[string]int64 `json:"deliverable_groups"`
	LowStockItems       int64            `json:"low_stock_items"`
	UnreadNotifications int64            `json:"unread_notifications"`
}

// HavenWeather is one haven's current conditions; Err is set when the
// provider could not be reached.
type HavenWeather struct {
	HavenID      int64
	HavenName    string
	TemperatureC float64
	FeelsLikeC   float64
	Description  string
	Err          error
}

type PageData struct {
	Summary Summary
	Weather []HavenWeather
}
