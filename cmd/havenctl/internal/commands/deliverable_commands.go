package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	"github.com/codr1/StaycationHaven/internal/client"
	"github.com/codr1/StaycationHaven/internal/deliverables"
)

// DeliverableCommandHandler works the add-on board through a local Board, so
// status changes show immediately and are put back if the server refuses.
type DeliverableCommandHandler struct{}

func (h *DeliverableCommandHandler) board(cmd *cobra.Command) (*session, *client.Board, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	bookingID, _ := cmd.Flags().GetInt64("booking")
	board := client.NewBoard(s.client, bookingID)
	if err := board.Refresh(cmd.Context()); err != nil {
		return nil, nil, err
	}
	return s, board, nil
}

func (h *DeliverableCommandHandler) ListCmd(cmd *cobra.Command, _ []string) error {
	s, board, err := h.board(cmd)
	if err != nil {
		return err
	}
	grouped, _ := cmd.Flags().GetBool("groups")
	if grouped {
		return printGroups(s, board.Groups())
	}
	rows := board.Rows()
	if s.json {
		return s.printJSON(rows)
	}
	return s.table("ID\tBOOKING\tGUEST\tITEM\tQTY\tSTATUS", func(w io.Writer) {
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.BookingReference, r.GuestName, r.Name, r.Quantity, r.Status)
		}
	})
}

func (h *DeliverableCommandHandler) SetStatusCmd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "deliverable id")
	if err != nil {
		return err
	}
	status, err := deliverables.ParseStatus(args[1])
	if err != nil {
		return err
	}
	s, board, err := h.board(cmd)
	if err != nil {
		return err
	}

	updated, err := board.SetStatus(cmd.Context(), id, status)
	if err != nil {
		s.logger.Debug().Err(err).Int64("deliverable_id", id).Msg("Status change reverted")
		return err
	}
	if s.json {
		return s.printJSON(updated)
	}
	fmt.Fprintf(s.out, "%s #%d is now %s\n", updated.Name, updated.ID, updated.Status)
	return nil
}

func (h *DeliverableCommandHandler) SetGroupStatusCmd(cmd *cobra.Command, args []string) error {
	bookingID, err := parseID(args[0], "booking id")
	if err != nil {
		return err
	}
	status, err := deliverables.ParseStatus(args[2])
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	board := client.NewBoard(s.client, bookingID)
	if err := board.Refresh(cmd.Context()); err != nil {
		return err
	}

	result, err := board.SetGroupStatus(cmd.Context(), bookingID, args[1], status)
	if err != nil {
		s.logger.Debug().Err(err).Int64("booking_id", bookingID).Str("group", args[1]).Msg("Group change reverted")
		return err
	}
	if s.json {
		return s.printJSON(result)
	}
	fmt.Fprintf(s.out, "%s: %d moved to %s, %d skipped\n", args[1], len(result.Changed), result.Status, len(result.Skipped))
	return nil
}

func (h *DeliverableCommandHandler) WatchCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	bookingID, _ := cmd.Flags().GetInt64("booking")
	interval, err := pollInterval(cmd)
	if err != nil {
		return err
	}
	board := client.NewBoard(s.client, bookingID)

	client.Poll(cmd.Context(), interval, func(ctx context.Context) error {
		if err := board.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "\n%s\n", time.Now().Format(time.TimeOnly))
		return printGroups(s, board.Groups())
	}, func(err error) {
		s.logger.Warn().Err(err).Msg("Board refresh failed")
	})
	return nil
}

func printGroups(s *session, groups []deliverables.Group) error {
	if s.json {
		return s.printJSON(groups)
	}
	return s.table("BOOKING\tITEM\tQTY\tAMOUNT\tSTATUS", func(w io.Writer) {
		for _, g := range groups {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", g.BookingID, g.Name, g.Quantity, apiutil.FormatPriceCents(g.AmountCents), g.Status)
		}
	})
}

// InitDeliverableCommands registers the deliverables command group.
func InitDeliverableCommands(rootCmd *cobra.Command) error {
	handler := &DeliverableCommandHandler{}

	parent := &cobra.Command{
		Use:     "deliverables",
		Aliases: []string{"addons"},
		Short:   "Work the add-on board",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List add-on items",
		Args:  cobra.NoArgs,
		RunE:  handler.ListCmd,
	}
	listCmd.Flags().Int64("booking", 0, "Only items for this booking")
	listCmd.Flags().Bool("groups", false, "Show items grouped by booking and name")
	parent.AddCommand(listCmd)

	setStatusCmd := &cobra.Command{
		Use:   "set-status ID STATUS",
		Short: "Move one item to a new status",
		Args:  cobra.ExactArgs(2),
		RunE:  handler.SetStatusCmd,
	}
	setStatusCmd.Flags().Int64("booking", 0, "Booking the item belongs to; narrows the board load")
	parent.AddCommand(setStatusCmd)

	parent.AddCommand(&cobra.Command{
		Use:   "set-group-status BOOKING_ID NAME STATUS",
		Short: "Move every item of a booking's group; all or nothing",
		Args:  cobra.ExactArgs(3),
		RunE:  handler.SetGroupStatusCmd,
	})

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the grouped board on every poll",
		Args:  cobra.NoArgs,
		RunE:  handler.WatchCmd,
	}
	watchCmd.Flags().Int64("booking", 0, "Only items for this booking")
	watchCmd.Flags().Duration("interval", client.BoardPollInterval, "Poll interval")
	parent.AddCommand(watchCmd)

	rootCmd.AddCommand(parent)
	return nil
}
