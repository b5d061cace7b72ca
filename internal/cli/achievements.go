package cli

import (
	"github.com/spf13/cobra"

	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/domain"
)

func init() {
	achievementsCmd.Flags().StringVar(&achUser, "user", "", "Show progress for this user")
	achievementsCmd.Flags().StringVar(&achRemote, "remote", "", "Read through a running daemon at this URL")
	achievementsCmd.Flags().StringVarP(&achFormat, "output", "o", formatText, "Output format: text, json or yaml")
	rootCmd.AddCommand(achievementsCmd)
}

var (
	achUser   string
	achRemote string
	achFormat string
)

var achievementsCmd = &cobra.Command{
	Use:     "achievements",
	Aliases: []string{"ach"},
	Short:   "List the achievement catalog",
	RunE:    runAchievements,
}

func runAchievements(cmd *cobra.Command, args []string) error {
	defs := engagement.AllAchievements()
	if achUser == "" {
		return renderAchievements(cmd.OutOrStdout(), achFormat, newAchievementRows(defs, nil), false)
	}

	sess, closeFn, err := openSession(commandContext(cmd), achUser, achRemote)
	if err != nil {
		return err
	}
	defer closeFn()

	return renderAchievements(cmd.OutOrStdout(), achFormat, newAchievementRows(defs, achievementStates(sess.Engine)), true)
}

// achievementStates returns eng's recorded states with progress filled in
// for locked entries.
func achievementStates(eng *engagement.Engine) map[string]domain.AchievementState {
	states := eng.Achievements()
	for _, def := range eng.Catalog() {
		if st := states[def.ID]; !st.Unlocked {
			value, _, _ := eng.Progress(def.ID)
			states[def.ID] = domain.AchievementState{Progress: value}
		}
	}
	return states
}
