package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/codr1/StaycationHaven/internal/client"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

type NotificationCommandHandler struct{}

func (h *NotificationCommandHandler) ListCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	unreadOnly, _ := cmd.Flags().GetBool("unread")
	resp, err := s.client.ListNotifications(cmd.Context(), time.Time{}, unreadOnly)
	if err != nil {
		return err
	}
	if s.json {
		return s.printJSON(resp)
	}
	if err := printNotifications(s, resp.Rows); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d unread\n", resp.UnreadCount)
	return nil
}

// WatchCmd prints each notification once as it arrives.
func (h *NotificationCommandHandler) WatchCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	unreadOnly, _ := cmd.Flags().GetBool("unread")
	interval, err := pollInterval(cmd)
	if err != nil {
		return err
	}
	feed := client.NewNotificationFeed(s.client, unreadOnly)

	client.Poll(cmd.Context(), interval, func(ctx context.Context) error {
		fresh, unread, err := feed.Next(ctx)
		if err != nil {
			return err
		}
		for _, n := range fresh {
			if s.json {
				if err := s.printJSON(n); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(s.out, "%s  [%s] %s\n", n.CreatedAt.Local().Format(time.DateTime), n.Kind, n.Message)
		}
		s.logger.Debug().Int("new", len(fresh)).Int64("unread", unread).Msg("Polled notifications")
		return nil
	}, func(err error) {
		s.logger.Warn().Err(err).Msg("Notification poll failed")
	})
	return nil
}

func (h *NotificationCommandHandler) ReadCmd(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) > 0) {
		return fmt.Errorf("pass notification ids or --all")
	}
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg, "notification id")
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	marked, err := s.client.MarkNotificationsRead(cmd.Context(), ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d marked read\n", marked)
	return nil
}

func printNotifications(s *session, rows []dbgen.Notification) error {
	return s.table("ID\tWHEN\tKIND\tREAD\tMESSAGE", func(w io.Writer) {
		for _, n := range rows {
			read := "no"
			if n.ReadAt != nil {
				read = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ID, n.CreatedAt.Local().Format(time.DateTime), n.Kind, read, n.Message)
		}
	})
}

// InitNotificationCommands registers the notifications command group.
func InitNotificationCommands(rootCmd *cobra.Command) error {
	handler := &NotificationCommandHandler{}

	parent := &cobra.Command{
		Use:   "notifications",
		Short: "Read and follow notifications",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent notifications",
		Args:  cobra.NoArgs,
		RunE:  handler.ListCmd,
	}
	listCmd.Flags().Bool("unread", false, "Only unread notifications")
	parent.AddCommand(listCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print new notifications as they arrive",
		Args:  cobra.NoArgs,
		RunE:  handler.WatchCmd,
	}
	watchCmd.Flags().Bool("unread", false, "Only unread notifications")
	watchCmd.Flags().Duration("interval", client.NotificationsPollInterval, "Poll interval")
	parent.AddCommand(watchCmd)

	readCmd := &cobra.Command{
		Use:   "read [ID...]",
		Short: "Mark notifications read",
		RunE:  handler.ReadCmd,
	}
	readCmd.Flags().Bool("all", false, "Mark every notification read")
	parent.AddCommand(readCmd)

	rootCmd.AddCommand(parent)
	return nil
}
