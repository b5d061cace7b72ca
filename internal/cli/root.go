// Package cli implements the Kinly command-line interface using Cobra.
// Commands either run the daemon or open an engine session for one user,
// apply a command and flush pending sync before exiting.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kinly",
	Short: "Kinly: household task streaks and achievements",
	Long: `Kinly tracks completed household tasks per user, keeps a daily streak
and a rolling week of activity, and unlocks achievements worth points.

Run 'kinly serve' for the HTTP API, or drive a user's engine directly
with 'kinly event task_completed --user <id>'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
