package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinly-app/kinly/internal/domain"
)

func init() {
	eventCmd.Flags().StringVar(&eventUser, "user", "", "User id (required)")
	eventCmd.Flags().StringVar(&eventRemote, "remote", "", "Sync through a running daemon at this URL")
	eventCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(eventCmd)
}

var (
	eventUser   string
	eventRemote string
)

var eventCmd = &cobra.Command{
	Use:       "event <task_created|task_completed|login_day>",
	Short:     "Feed one event to a user's engine",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.EventTaskCreated), string(domain.EventTaskCompleted), string(domain.EventLoginDay)},
	RunE:      runEvent,
}

func runEvent(cmd *cobra.Command, args []string) error {
	kind := domain.EventKind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, args[0])
	}

	sess, closeFn, err := openSession(commandContext(cmd), eventUser, eventRemote)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	unlocked := sess.Engine.CheckAndAward(domain.Event{Kind: kind})
	for _, def := range unlocked {
		fmt.Fprintf(out, "Unlocked %s (+%s points)\n", def.Name, formatPoints(def.Points))
	}
	snap := sess.Engine.Snapshot()
	fmt.Fprintf(out, "Streak %d, today %d, total %d, points %s\n",
		snap.Stats.Streak, snap.Stats.DayCompleted, snap.Stats.TotalCompleted, formatPoints(snap.Points))
	return nil
}
