// Command havenctl works the Staycation Haven admin API from a terminal:
// the add-on board, notifications, the dashboard summary, bookings and stock.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codr1/StaycationHaven/cmd/havenctl/internal/commands"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// HAVEN_SERVER and HAVEN_EMPLOYEE_ID may come from a local .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to read .env")
	}

	rootCmd := &cobra.Command{
		Use:   "havenctl",
		Short: "Staycation Haven admin CLI",
		Long: `havenctl talks to the Staycation Haven admin API as an employee.

Set the server and acting employee with --server and --employee, or with the
HAVEN_SERVER and HAVEN_EMPLOYEE_ID environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	commands.AddGlobalFlags(rootCmd)

	if err := initializeCommands(rootCmd); err != nil {
		return fmt.Errorf("failed to initialize commands: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func initializeCommands(rootCmd *cobra.Command) error {
	for _, group := range []struct {
		name string
		fn   func(*cobra.Command) error
	}{
		{"deliverables", commands.InitDeliverableCommands},
		{"notifications", commands.InitNotificationCommands},
		{"dashboard", commands.InitDashboardCommands},
		{"bookings", commands.InitBookingCommands},
		{"inventory", commands.InitInventoryCommands},
	} {
		if err := group.fn(rootCmd); err != nil {
			return fmt.Errorf("%s commands: %w", group.name, err)
		}
	}
	return nil
}
