package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kinly-app/kinly/internal/daemon"
)

func init() {
	notificationsCmd.Flags().StringVar(&notifUser, "user", "", "Only this user's notifications")
	notificationsCmd.Flags().IntVar(&notifLimit, "limit", 20, "Maximum notifications to show")
	notificationsCmd.Flags().BoolVar(&notifMark, "mark-shown", false, "Mark the listed notifications as shown")
	rootCmd.AddCommand(notificationsCmd)
}

var (
	notifUser  string
	notifLimit int
	notifMark  bool
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notifs"},
	Short:   "List pending achievement notifications",
	RunE:    runNotifications,
}

func runNotifications(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	notifs, err := d.Notification.Pending(notifUser, notifLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(notifs) == 0 {
		fmt.Fprintln(out, "No pending notifications.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tTITLE\tCREATED")
	for _, n := range notifs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, n.UserID, n.Title, n.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if notifMark {
		for _, n := range notifs {
			if err := d.Notification.MarkShown(n.ID); err != nil {
				return fmt.Errorf("mark %d shown: %w", n.ID, err)
			}
		}
	}
	return nil
}
