package engagement

import (
	"slices"
	"sort"

	"github.com/kinly-app/kinly/internal/domain"
)

// BumpDayCounters records completedDelta completions against today's bucket.
// A zero delta still rolls the day bucket forward (login events).
func (e *Engine) BumpDayCounters(completedDelta int) {
	var fx effects
	e.mu.Lock()
	e.bumpLocked(completedDelta, &fx)
	e.mu.Unlock()
	fx.run()
}

func (e *Engine) bumpLocked(delta int, fx *effects) {
	if delta < 0 {
		delta = 0
	}
	today := domain.DayKeyOf(e.now(), e.loc)
	e.stats = advanceDay(e.stats, today, delta)
	fx.add(e.sync.PushStats)
}

// advanceDay is the day-rollover algorithm. It never mutates prev.
//
// The streak and last active day only move on the first completion of a
// day other than LastActiveDay: +1 when that day directly follows
// LastActiveDay, otherwise a fresh streak of 1. Zero-delta events leave
// both untouched.
func advanceDay(prev domain.StatsState, today domain.DayKey, delta int) domain.StatsState {
	next := prev.Clone()
	dayChanged := prev.DayKey != today

	next.TotalCompleted = prev.TotalCompleted + delta
	next.DayKey = today
	if dayChanged {
		next.DayCompleted = delta
	} else {
		next.DayCompleted = prev.DayCompleted + delta
	}

	if delta > 0 && prev.LastActiveDay != today {
		if !prev.LastActiveDay.IsZero() && domain.IsNextDay(prev.LastActiveDay, today) {
			next.Streak = prev.Streak + 1
		} else {
			next.Streak = 1
		}
		next.LastActiveDay = today
	}

	next.WeekWindow, next.DayCompleted = upsertDay(prev.WeekWindow, today, delta, next.DayCompleted)
	return next
}

// upsertDay adds delta to today's window entry, or inserts a new entry
// holding dayCompleted when none exists. The result is sorted, unique by
// day and trimmed to the most recent WeekWindowSize days. The second
// return value is the day counter consistent with the window.
func upsertDay(window []domain.DayCount, today domain.DayKey, delta, dayCompleted int) ([]domain.DayCount, int) {
	out := make([]domain.DayCount, len(window), len(window)+1)
	copy(out, window)

	for i := range out {
		if out[i].DayKey == today {
			out[i].Completed += delta
			return out, out[i].Completed
		}
	}

	// "YYYY-MM-DD" sorts lexically in calendar order.
	i := sort.Search(len(out), func(i int) bool { return out[i].DayKey > today })
	out = slices.Insert(out, i, domain.DayCount{DayKey: today, Completed: dayCompleted})
	return trimWindow(out), dayCompleted
}

func trimWindow(window []domain.DayCount) []domain.DayCount {
	if len(window) > domain.WeekWindowSize {
		window = window[len(window)-domain.WeekWindowSize:]
	}
	return window
}

// normalizeStats restores the ledger invariants on state that did not come
// from advanceDay (remote documents, injected state): valid day keys, a
// sorted unique window of at most seven days, no negative counters, and a
// window entry for DayKey that agrees with DayCompleted.
func normalizeStats(s domain.StatsState) domain.StatsState {
	out := s.Clone()
	if out.TotalCompleted < 0 {
		out.TotalCompleted = 0
	}
	if out.DayCompleted < 0 {
		out.DayCompleted = 0
	}
	if out.Streak < 0 {
		out.Streak = 0
	}
	if !out.DayKey.IsZero() && !out.DayKey.Valid() {
		out.DayKey = ""
	}
	if !out.LastActiveDay.IsZero() && !out.LastActiveDay.Valid() {
		out.LastActiveDay = ""
	}

	byDay := make(map[domain.DayKey]int, len(out.WeekWindow))
	for _, d := range out.WeekWindow {
		if !d.DayKey.Valid() || d.Completed < 0 {
			continue
		}
		byDay[d.DayKey] = d.Completed // later duplicates win
	}
	if !out.DayKey.IsZero() {
		if _, ok := byDay[out.DayKey]; ok {
			byDay[out.DayKey] = out.DayCompleted
		}
	}

	window := make([]domain.DayCount, 0, len(byDay))
	for k, v := range byDay {
		window = append(window, domain.DayCount{DayKey: k, Completed: v})
	}
	sort.Slice(window, func(i, j int) bool { return window[i].DayKey < window[j].DayKey })
	out.WeekWindow = trimWindow(window)
	return out
}
