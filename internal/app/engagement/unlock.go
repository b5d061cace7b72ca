package engagement

import (
	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/metrics"
)

// Unlock marks achievement id as unlocked and credits its points. Calling
// it for an already unlocked id is a no-op. The error only reports ids
// missing from the catalog.
func (e *Engine) Unlock(id string) error {
	i, ok := e.index[id]
	if !ok {
		return domain.ErrUnknownAchievement
	}

	var fx effects
	e.mu.Lock()
	e.unlockLocked(e.catalog[i], &fx)
	e.mu.Unlock()
	fx.run()
	return nil
}

// unlockLocked reports whether def transitioned to unlocked.
func (e *Engine) unlockLocked(def domain.AchievementDef, fx *effects) bool {
	if e.achievements[def.ID].Unlocked {
		return false
	}
	e.achievements[def.ID] = domain.AchievementState{
		Unlocked:   true,
		UnlockedAt: e.now(),
		Progress:   def.Threshold,
	}
	e.addPointsLocked(def.Points, fx)

	id, port := def.ID, e.sync
	fx.add(func() { port.PushUnlock(id) })
	fx.add(func() { e.notify(id) })

	metrics.AchievementsUnlocked.WithLabelValues(id).Inc()
	e.logger.Printf("[engagement] unlocked %s (+%d points)", id, def.Points)
	return true
}

// AddPoints credits n points. Negative amounts are ignored.
func (e *Engine) AddPoints(n int64) {
	var fx effects
	e.mu.Lock()
	e.addPointsLocked(n, &fx)
	e.mu.Unlock()
	fx.run()
}

func (e *Engine) addPointsLocked(n int64, fx *effects) {
	if n < 0 {
		return
	}
	e.points += n
	metrics.PointsAwarded.Add(float64(n))
	fx.add(e.sync.PushStats)
}

// notify calls the notification trigger. A panicking notifier must not
// take the unlock down with it.
func (e *Engine) notify(id string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[engagement] notifier panic for %s: %v", id, r)
		}
	}()
	e.notifier.NotifyAchievementUnlocked(id)
}
