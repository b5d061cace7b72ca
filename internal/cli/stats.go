package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	statsCmd.Flags().StringVar(&statsUser, "user", "", "User id (required)")
	statsCmd.Flags().StringVar(&statsRemote, "remote", "", "Read through a running daemon at this URL")
	statsCmd.Flags().StringVarP(&statsFormat, "output", "o", formatText, "Output format: text, json or yaml")
	statsCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(statsCmd)
}

var (
	statsUser   string
	statsRemote string
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a user's counters, streak and points",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	sess, closeFn, err := openSession(commandContext(cmd), statsUser, statsRemote)
	if err != nil {
		return err
	}
	defer closeFn()

	return renderStats(cmd.OutOrStdout(), statsFormat, newStatsView(statsUser, sess.Engine.Snapshot()))
}
