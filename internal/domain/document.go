package domain

import (
	"encoding/json"
	"time"
)

// ─── Document Keys ──────────────────────────────────────────────────────────

// StatsKey is the remote key holding a user's stats and points.
func StatsKey(userID string) string {
	return "users/" + userID + "/engagement/stats"
}

// UnlockKey is the remote key holding one achievement record for a user.
func UnlockKey(userID, achID string) string {
	return "users/" + userID + "/achievements/" + achID
}

// Document field names. The persisted shape is flat; only the week window nests.
const (
	FieldTotalCompleted = "totalCompleted"
	FieldDayKey         = "dayKey"
	FieldDayCompleted   = "dayCompleted"
	FieldStreak         = "streak"
	FieldLastActiveDay  = "lastActiveDay"
	FieldWeekWindow     = "weekWindow"
	FieldPoints         = "points"
	FieldUpdatedAt      = "updatedAt"
	FieldWriter         = "writer"

	FieldAchID      = "achId"
	FieldUnlocked   = "unlocked"
	FieldUnlockedAt = "unlockedAt"
	FieldProgress   = "progress"
)

// ─── Encoding ───────────────────────────────────────────────────────────────

// StatsDocument renders a snapshot as a flat document.
func StatsDocument(snap Snapshot, writer string, at time.Time) Document {
	window := make([]any, 0, len(snap.Stats.WeekWindow))
	for _, d := range snap.Stats.WeekWindow {
		window = append(window, map[string]any{
			"dayKey":    string(d.DayKey),
			"completed": d.Completed,
		})
	}
	return Document{
		FieldTotalCompleted: snap.Stats.TotalCompleted,
		FieldDayKey:         string(snap.Stats.DayKey),
		FieldDayCompleted:   snap.Stats.DayCompleted,
		FieldStreak:         snap.Stats.Streak,
		FieldLastActiveDay:  string(snap.Stats.LastActiveDay),
		FieldWeekWindow:     window,
		FieldPoints:         snap.Points,
		FieldUpdatedAt:      at.UTC().Format(time.RFC3339Nano),
		FieldWriter:         writer,
	}
}

// UnlockDocument renders one unlocked achievement as a flat document.
func UnlockDocument(achID string, st AchievementState, points int64, writer string) Document {
	return Document{
		FieldAchID:      achID,
		FieldUnlocked:   st.Unlocked,
		FieldUnlockedAt: st.UnlockedAt.UTC().Format(time.RFC3339Nano),
		FieldProgress:   st.Progress,
		FieldPoints:     points,
		FieldWriter:     writer,
	}
}

// ─── Decoding ───────────────────────────────────────────────────────────────

// Int returns the integer at key. JSON numbers decode as float64, so both
// float and integer Go types are accepted.
func (d Document) Int(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// String returns the string at key.
func (d Document) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// Bool returns the bool at key.
func (d Document) Bool(key string) (bool, bool) {
	b, ok := d[key].(bool)
	return b, ok
}

// Time returns the RFC 3339 timestamp at key.
func (d Document) Time(key string) (time.Time, bool) {
	s, ok := d.String(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WeekWindow decodes the week window field. Malformed entries are skipped.
func (d Document) WeekWindow() ([]DayCount, bool) {
	var raw []any
	switch v := d[FieldWeekWindow].(type) {
	case []any:
		raw = v
	case []map[string]any:
		for _, m := range v {
			raw = append(raw, m)
		}
	case []DayCount:
		out := make([]DayCount, len(v))
		copy(out, v)
		return out, true
	default:
		return nil, false
	}

	out := make([]DayCount, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := Document(m)
		key, ok := entry.String("dayKey")
		if !ok || !DayKey(key).Valid() {
			continue
		}
		n, _ := entry.Int("completed")
		out = append(out, DayCount{DayKey: DayKey(key), Completed: int(n)})
	}
	return out, true
}

// AchievementStateFromDocument decodes an unlock record.
func AchievementStateFromDocument(d Document) AchievementState {
	var st AchievementState
	st.Unlocked, _ = d.Bool(FieldUnlocked)
	st.UnlockedAt, _ = d.Time(FieldUnlockedAt)
	if p, ok := d.Int(FieldProgress); ok {
		st.Progress = int(p)
	}
	return st
}

// SnapshotFromDocument decodes a stats document. Missing fields stay zero.
func SnapshotFromDocument(d Document) Snapshot {
	var snap Snapshot
	if v, ok := d.Int(FieldTotalCompleted); ok {
		snap.Stats.TotalCompleted = int(v)
	}
	if v, ok := d.String(FieldDayKey); ok {
		snap.Stats.DayKey = DayKey(v)
	}
	if v, ok := d.Int(FieldDayCompleted); ok {
		snap.Stats.DayCompleted = int(v)
	}
	if v, ok := d.Int(FieldStreak); ok {
		snap.Stats.Streak = int(v)
	}
	if v, ok := d.String(FieldLastActiveDay); ok {
		snap.Stats.LastActiveDay = DayKey(v)
	}
	snap.Stats.WeekWindow, _ = d.WeekWindow()
	snap.Points, _ = d.Int(FieldPoints)
	return snap
}
