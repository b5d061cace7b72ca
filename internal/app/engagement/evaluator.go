package engagement

import (
	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/metrics"
)

// CheckAndAward is the engine's single input. It applies ev to the stats
// ledger, then unlocks every catalog achievement the updated stats satisfy.
// Newly unlocked definitions are returned in catalog order.
//
// Remote sync and notification failures never reach the caller.
func (e *Engine) CheckAndAward(ev domain.Event) []domain.AchievementDef {
	if !ev.Kind.Valid() {
		e.logger.Printf("[engagement] ignoring unknown event kind %q", ev.Kind)
		metrics.EventsTotal.WithLabelValues("unknown").Inc()
		return nil
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	var fx effects
	e.mu.Lock()
	switch ev.Kind {
	case domain.EventTaskCompleted:
		e.bumpLocked(1, &fx)
	case domain.EventLoginDay:
		e.bumpLocked(0, &fx)
	case domain.EventTaskCreated:
		// No counter yet; evaluation still runs.
	}
	unlocked := e.evaluateLocked(&fx)
	e.mu.Unlock()

	fx.run()
	return unlocked
}

// evaluateLocked walks the catalog against one stats snapshot. Every
// definition is judged independently, so order only affects the order in
// which side effects fire.
func (e *Engine) evaluateLocked(fx *effects) []domain.AchievementDef {
	stats := e.stats
	var unlocked []domain.AchievementDef
	for _, def := range e.catalog {
		st := e.achievements[def.ID]
		if st.Unlocked {
			continue
		}
		value := counterFor(def.Trigger, stats)
		if value >= def.Threshold {
			if e.unlockLocked(def, fx) {
				unlocked = append(unlocked, def)
			}
			continue
		}
		if value != st.Progress {
			st.Progress = value
			e.achievements[def.ID] = st
		}
	}
	return unlocked
}

// counterFor returns the stats value a trigger kind is measured against.
func counterFor(kind domain.TriggerKind, s domain.StatsState) int {
	switch kind {
	case domain.TriggerTasksTotal:
		return s.TotalCompleted
	case domain.TriggerTasksDaily:
		return s.DayCompleted
	case domain.TriggerStreakDays:
		return s.Streak
	case domain.TriggerTasksWeekly:
		return s.WeekTotal()
	}
	return 0
}

// Progress returns the current counter value for achievement id, capped at
// its threshold, together with the threshold.
func (e *Engine) Progress(id string) (value, threshold int, err error) {
	i, ok := e.index[id]
	if !ok {
		return 0, 0, domain.ErrUnknownAchievement
	}
	def := e.catalog[i]

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.achievements[id].Unlocked {
		return def.Threshold, def.Threshold, nil
	}
	return min(counterFor(def.Trigger, e.stats), def.Threshold), def.Threshold, nil
}
