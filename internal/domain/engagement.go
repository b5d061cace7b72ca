// Package domain holds the engagement types shared by every layer.
// Events become day-bucketed counters and a consecutive-day streak. Those
// counters unlock achievements, which credit a points ledger.
package domain

import "time"

// ─── Catalog Types ──────────────────────────────────────────────────────────

// AchievementCategory groups achievements by theme.
type AchievementCategory string

const (
	CatGettingStarted AchievementCategory = "getting_started"
	CatConsistency    AchievementCategory = "consistency"
	CatHelper         AchievementCategory = "helper"
	CatHabitBuilder   AchievementCategory = "habit_builder"
)

// Valid reports whether c is one of the known categories.
func (c AchievementCategory) Valid() bool {
	switch c {
	case CatGettingStarted, CatConsistency, CatHelper, CatHabitBuilder:
		return true
	}
	return false
}

// TriggerKind selects the StatsState counter an achievement is measured against.
type TriggerKind string

const (
	TriggerTasksTotal  TriggerKind = "tasks_total"
	TriggerTasksDaily  TriggerKind = "tasks_daily"
	TriggerStreakDays  TriggerKind = "streak_days"
	TriggerTasksWeekly TriggerKind = "tasks_weekly"
)

// Valid reports whether k is one of the known trigger kinds.
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerTasksTotal, TriggerTasksDaily, TriggerStreakDays, TriggerTasksWeekly:
		return true
	}
	return false
}

// AchievementDef is an immutable catalog entry.
type AchievementDef struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Category  AchievementCategory `json:"category"`
	Trigger   TriggerKind         `json:"trigger"`
	Threshold int                 `json:"threshold"`
	Points    int64               `json:"points"`
	Hidden    bool                `json:"hidden,omitempty"` // display only
}

// AchievementState is the per-user record for one achievement.
// Once Unlocked is true the engine never touches the record again.
type AchievementState struct {
	Unlocked   bool      `json:"unlocked"`
	UnlockedAt time.Time `json:"unlocked_at,omitempty"`
	Progress   int       `json:"progress"`
}

// ─── Stats Types ────────────────────────────────────────────────────────────

// WeekWindowSize is the maximum number of day buckets kept in StatsState.WeekWindow.
const WeekWindowSize = 7

// DayCount is one bucket of the rolling week window.
type DayCount struct {
	DayKey    DayKey `json:"dayKey"`
	Completed int    `json:"completed"`
}

// StatsState is the per-user counter set owned by the stats ledger.
type StatsState struct {
	TotalCompleted int        `json:"totalCompleted"`
	DayKey         DayKey     `json:"dayKey"`
	DayCompleted   int        `json:"dayCompleted"`
	Streak         int        `json:"streak"`
	LastActiveDay  DayKey     `json:"lastActiveDay"`
	WeekWindow     []DayCount `json:"weekWindow"`
}

// WeekTotal returns the sum of completions across the week window.
func (s StatsState) WeekTotal() int {
	total := 0
	for _, d := range s.WeekWindow {
		total += d.Completed
	}
	return total
}

// Clone returns a deep copy so callers never alias the ledger's window slice.
func (s StatsState) Clone() StatsState {
	out := s
	if s.WeekWindow != nil {
		out.WeekWindow = make([]DayCount, len(s.WeekWindow))
		copy(out.WeekWindow, s.WeekWindow)
	}
	return out
}

// Snapshot is the state pushed by the sync adapter at flush time.
type Snapshot struct {
	Stats  StatsState `json:"stats"`
	Points int64      `json:"points"`
}

// ─── Events ─────────────────────────────────────────────────────────────────

// EventKind identifies a domain event fed to the engine.
type EventKind string

const (
	EventTaskCreated   EventKind = "task_created"
	EventTaskCompleted EventKind = "task_completed"
	EventLoginDay      EventKind = "login_day"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventTaskCreated, EventTaskCompleted, EventLoginDay:
		return true
	}
	return false
}

// Event is the engine's single input shape.
type Event struct {
	Kind    EventKind         `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyAchievement NotificationType = "achievement"
)

// Notification is a user-facing message.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id,omitempty"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs how often notifications are recorded.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day"`
	QuietStart string `json:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end"`   // "08:00"
}

// DefaultNotificationPolicy returns the default policy: 3/day, quiet overnight.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxPerDay:  3,
		QuietStart: "22:00",
		QuietEnd:   "08:00",
	}
}
