package commands

import (
	"fmt"
	"io"
	"net/url"
	"sort"

	"github.com/spf13/cobra"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
)

func dashboardCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	summary, err := s.client.DashboardSummary(cmd.Context())
	if err != nil {
		return err
	}
	if s.json {
		return s.printJSON(summary)
	}

	err = s.table("TODAY\t"+summary.Date, func(w io.Writer) {
		fmt.Fprintf(w, "Arrivals\t%d\n", summary.Arrivals)
		fmt.Fprintf(w, "Departures\t%d\n", summary.Departures)
		fmt.Fprintf(w, "In house\t%d\n", summary.InHouse)
		fmt.Fprintf(w, "Occupancy\t%.0f%% of %d havens\n", summary.OccupancyRate*100, summary.ActiveHavens)
		fmt.Fprintf(w, "Revenue %s..%s\t%s\n", summary.RangeStart, summary.RangeEnd, apiutil.FormatPriceCents(summary.RevenueCents))
		fmt.Fprintf(w, "Outstanding\t%s\n", apiutil.FormatPriceCents(summary.OutstandingCents))
		fmt.Fprintf(w, "Low stock items\t%d\n", summary.LowStockItems)
		fmt.Fprintf(w, "Unread notifications\t%d\n", summary.UnreadNotifications)
	})
	if err != nil || len(summary.DeliverableGroups) == 0 {
		return err
	}

	statuses := make([]string, 0, len(summary.DeliverableGroups))
	for status := range summary.DeliverableGroups {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	fmt.Fprintln(s.out)
	return s.table("ADD-ON GROUPS\tCOUNT", func(w io.Writer) {
		for _, status := range statuses {
			fmt.Fprintf(w, "%s\t%d\n", status, summary.DeliverableGroups[status])
		}
	})
}

func bookingsListCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	query := url.Values{}
	for _, key := range []string{"q", "status", "sort", "order", "from", "to"} {
		if v, _ := cmd.Flags().GetString(key); v != "" {
			query.Set(key, v)
		}
	}
	if page, _ := cmd.Flags().GetInt("page"); page > 1 {
		query.Set("page", fmt.Sprint(page))
	}

	page, err := s.client.ListBookings(cmd.Context(), query)
	if err != nil {
		return err
	}
	if s.json {
		return s.printJSON(page)
	}
	err = s.table("REF\tGUEST\tHAVEN\tCHECK-IN\tCHECK-OUT\tSTATUS\tTOTAL\tBALANCE", func(w io.Writer) {
		for _, b := range page.Rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				b.Reference, b.GuestName, b.HavenName, b.CheckIn, b.CheckOut, b.Status,
				apiutil.FormatPriceCents(b.TotalCents), apiutil.FormatPriceCents(b.BalanceCents))
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "page %d of %d, %d bookings\n", page.Page, page.TotalPages, page.TotalRows)
	return nil
}

func inventoryListCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	lowOnly, _ := cmd.Flags().GetBool("low")
	items, err := s.client.ListInventory(cmd.Context(), lowOnly)
	if err != nil {
		return err
	}
	if s.json {
		return s.printJSON(items)
	}
	return s.table("SKU\tNAME\tQTY\tREORDER AT\tUNIT\t", func(w io.Writer) {
		for _, item := range items {
			flag := ""
			if item.LowStock {
				flag = "LOW"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", item.Sku, item.Name, item.Quantity, item.ReorderLevel, item.Unit, flag)
		}
	})
}

func InitDashboardCommands(rootCmd *cobra.Command) error {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Show today's dashboard summary",
		Args:  cobra.NoArgs,
		RunE:  dashboardCmd,
	})
	return nil
}

func InitBookingCommands(rootCmd *cobra.Command) error {
	parent := &cobra.Command{Use: "bookings", Short: "Browse bookings"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of bookings",
		Args:  cobra.NoArgs,
		RunE:  bookingsListCmd,
	}
	flags := listCmd.Flags()
	flags.String("q", "", "Search reference, guest or haven")
	flags.String("status", "", "Only bookings with this status")
	flags.String("sort", "", "Sort column, e.g. check_in or balance_cents")
	flags.String("order", "", "asc or desc")
	flags.String("from", "", "Stays ending after this date (YYYY-MM-DD)")
	flags.String("to", "", "Stays starting before this date (YYYY-MM-DD)")
	flags.Int("page", 1, "Page number")
	parent.AddCommand(listCmd)

	rootCmd.AddCommand(parent)
	return nil
}

func InitInventoryCommands(rootCmd *cobra.Command) error {
	parent := &cobra.Command{Use: "inventory", Short: "Check stock levels"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory items",
		Args:  cobra.NoArgs,
		RunE:  inventoryListCmd,
	}
	listCmd.Flags().Bool("low", false, "Only items at or below their reorder level")
	parent.AddCommand(listCmd)

	rootCmd.AddCommand(parent)
	return nil
}
