package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/kinly-app/kinly/internal/domain"
)

// Output formats accepted by -o.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var printer = message.NewPrinter(language.English)

// formatPoints renders n with thousands grouping ("12,345").
func formatPoints(n int64) string {
	return printer.Sprintf("%d", n)
}

// writeStructured writes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}

// ─── Views ──────────────────────────────────────────────────────────────────

// statsView is the stats report shared by the text and structured outputs.
type statsView struct {
	User           string            `json:"user" yaml:"user"`
	TotalCompleted int               `json:"total_completed" yaml:"total_completed"`
	Today          string            `json:"today" yaml:"today"`
	TodayCompleted int               `json:"today_completed" yaml:"today_completed"`
	Streak         int               `json:"streak" yaml:"streak"`
	LastActiveDay  string            `json:"last_active_day,omitempty" yaml:"last_active_day,omitempty"`
	WeekTotal      int               `json:"week_total" yaml:"week_total"`
	Week           []domain.DayCount `json:"week" yaml:"week"`
	Points         int64             `json:"points" yaml:"points"`
}

func newStatsView(user string, snap domain.Snapshot) statsView {
	week := snap.Stats.WeekWindow
	if week == nil {
		week = []domain.DayCount{}
	}
	return statsView{
		User:           user,
		TotalCompleted: snap.Stats.TotalCompleted,
		Today:          string(snap.Stats.DayKey),
		TodayCompleted: snap.Stats.DayCompleted,
		Streak:         snap.Stats.Streak,
		LastActiveDay:  string(snap.Stats.LastActiveDay),
		WeekTotal:      snap.Stats.WeekTotal(),
		Week:           week,
		Points:         snap.Points,
	}
}

func renderStats(w io.Writer, format string, v statsView) error {
	if format != formatText {
		return writeStructured(w, format, v)
	}
	fmt.Fprintf(w, "User:        %s\n", v.User)
	fmt.Fprintf(w, "Points:      %s\n", formatPoints(v.Points))
	fmt.Fprintf(w, "Streak:      %d day(s)\n", v.Streak)
	fmt.Fprintf(w, "Completed:   %d total, %d today, %d this week\n", v.TotalCompleted, v.TodayCompleted, v.WeekTotal)
	if len(v.Week) > 0 {
		fmt.Fprintln(w, "Week:")
		for _, d := range v.Week {
			fmt.Fprintf(w, "  %s  %d\n", d.DayKey, d.Completed)
		}
	}
	return nil
}

// achievementRow is one catalog entry with optional user state.
type achievementRow struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Category  string `json:"category" yaml:"category"`
	Trigger   string `json:"trigger" yaml:"trigger"`
	Threshold int    `json:"threshold" yaml:"threshold"`
	Points    int64  `json:"points" yaml:"points"`
	Unlocked  bool   `json:"unlocked" yaml:"unlocked"`
	Progress  int    `json:"progress" yaml:"progress"`
}

func newAchievementRows(defs []domain.AchievementDef, states map[string]domain.AchievementState) []achievementRow {
	rows := make([]achievementRow, 0, len(defs))
	for _, def := range defs {
		st := states[def.ID]
		name := def.Name
		if def.Hidden && !st.Unlocked {
			name = "???"
		}
		rows = append(rows, achievementRow{
			ID:        def.ID,
			Name:      name,
			Category:  string(def.Category),
			Trigger:   string(def.Trigger),
			Threshold: def.Threshold,
			Points:    def.Points,
			Unlocked:  st.Unlocked,
			Progress:  st.Progress,
		})
	}
	return rows
}

// renderAchievements prints the catalog. withState adds progress columns.
func renderAchievements(w io.Writer, format string, rows []achievementRow, withState bool) error {
	if format != formatText {
		return writeStructured(w, format, rows)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if withState {
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPOINTS\tPROGRESS\tSTATUS")
	} else {
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tTRIGGER\tPOINTS")
	}
	for _, r := range rows {
		if withState {
			status := "locked"
			if r.Unlocked {
				status = "unlocked"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
				r.ID, r.Name, r.Category, formatPoints(r.Points), r.Progress, r.Threshold, status)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s >= %d\t%s\n",
			r.ID, r.Name, r.Category, r.Trigger, r.Threshold, formatPoints(r.Points))
	}
	return tw.Flush()
}
