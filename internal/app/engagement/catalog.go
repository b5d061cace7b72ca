package engagement

import (
	"fmt"

	"github.com/kinly-app/kinly/internal/domain"
)

// ─── Achievement Catalog ────────────────────────────────────────────────────
// Declaration order is evaluation order. Entries are never mutated at runtime.

var catalog = []domain.AchievementDef{
	// ── Getting Started ────────────────────────────────────────────────
	{ID: "first_task", Name: "First Step", Category: domain.CatGettingStarted,
		Trigger: domain.TriggerTasksTotal, Threshold: 1, Points: 10},
	{ID: "five_tasks", Name: "Getting Going", Category: domain.CatGettingStarted,
		Trigger: domain.TriggerTasksTotal, Threshold: 5, Points: 25},

	// ── Consistency ────────────────────────────────────────────────────
	{ID: "streak_7", Name: "Week Streak", Category: domain.CatConsistency,
		Trigger: domain.TriggerStreakDays, Threshold: 7, Points: 50},
	{ID: "streak_14", Name: "Fortnight Focus", Category: domain.CatConsistency,
		Trigger: domain.TriggerStreakDays, Threshold: 14, Points: 100},
	{ID: "streak_30", Name: "Monthly Rhythm", Category: domain.CatConsistency,
		Trigger: domain.TriggerStreakDays, Threshold: 30, Points: 250},

	// ── Helper ─────────────────────────────────────────────────────────
	{ID: "helper_25", Name: "Helping Hand", Category: domain.CatHelper,
		Trigger: domain.TriggerTasksTotal, Threshold: 25, Points: 50},
	{ID: "helper_100", Name: "Family Hero", Category: domain.CatHelper,
		Trigger: domain.TriggerTasksTotal, Threshold: 100, Points: 150},
	{ID: "helper_500", Name: "Household Legend", Category: domain.CatHelper,
		Trigger: domain.TriggerTasksTotal, Threshold: 500, Points: 500, Hidden: true},

	// ── Habit Builder ──────────────────────────────────────────────────
	{ID: "day_5_tasks", Name: "Busy Day", Category: domain.CatHabitBuilder,
		Trigger: domain.TriggerTasksDaily, Threshold: 5, Points: 30},
	{ID: "day_10_tasks", Name: "Power Day", Category: domain.CatHabitBuilder,
		Trigger: domain.TriggerTasksDaily, Threshold: 10, Points: 60, Hidden: true},
	{ID: "week_15_tasks", Name: "Productive Week", Category: domain.CatHabitBuilder,
		Trigger: domain.TriggerTasksWeekly, Threshold: 15, Points: 40},
	{ID: "week_40_tasks", Name: "Unstoppable Week", Category: domain.CatHabitBuilder,
		Trigger: domain.TriggerTasksWeekly, Threshold: 40, Points: 120},
}

// AllAchievements returns a copy of the full catalog in declaration order.
func AllAchievements() []domain.AchievementDef {
	out := make([]domain.AchievementDef, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (domain.AchievementDef, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return domain.AchievementDef{}, false
}

// ValidateCatalog checks ids are unique and every entry is well formed.
func ValidateCatalog(defs []domain.AchievementDef) error {
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		switch {
		case def.ID == "":
			return fmt.Errorf("%w: entry %d has empty id", domain.ErrInvalidCatalog, i)
		case seen[def.ID]:
			return fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidCatalog, def.ID)
		case !def.Category.Valid():
			return fmt.Errorf("%w: %s: unknown category %q", domain.ErrInvalidCatalog, def.ID, def.Category)
		case !def.Trigger.Valid():
			return fmt.Errorf("%w: %s: unknown trigger %q", domain.ErrInvalidCatalog, def.ID, def.Trigger)
		case def.Threshold < 1:
			return fmt.Errorf("%w: %s: threshold must be >= 1", domain.ErrInvalidCatalog, def.ID)
		case def.Points < 0:
			return fmt.Errorf("%w: %s: points must be >= 0", domain.ErrInvalidCatalog, def.ID)
		}
		seen[def.ID] = true
	}
	return nil
}
