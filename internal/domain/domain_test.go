package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// ─── Day Key Tests ──────────────────────────────────────────────────────────

func TestDayKeyOf_UsesLocation(t *testing.T) {
	instant := time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)
	if got := DayKeyOf(instant, time.UTC); got != "2025-01-01" {
		t.Errorf("UTC = %s", got)
	}
	if got := DayKeyOf(instant, time.FixedZone("EST", -5*3600)); got != "2024-12-31" {
		t.Errorf("EST = %s, want previous day", got)
	}
}

func TestParseDayKey(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2025-07-01", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-7-1", false},
		{"", false},
		{"yesterday", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := ParseDayKey(tt.in)
			if tt.ok {
				if err != nil || string(k) != tt.in {
					t.Errorf("ParseDayKey(%q) = %q, %v", tt.in, k, err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidDayKey) {
				t.Errorf("expected ErrInvalidDayKey, got %v", err)
			}
			if DayKey(tt.in).Valid() {
				t.Errorf("Valid() true for %q", tt.in)
			}
		})
	}
}

func TestDayKey_Arithmetic(t *testing.T) {
	tests := []struct {
		a, b DayKey
		days int64
	}{
		{"2025-07-01", "2025-07-02", 1},
		{"2025-02-28", "2025-03-01", 1},
		{"2024-02-28", "2024-03-01", 2},
		{"2024-12-31", "2025-01-01", 1},
		{"2025-03-08", "2025-03-10", 2}, // spans the US spring-forward day
		{"2025-07-02", "2025-07-01", -1},
	}
	for _, tt := range tests {
		got, ok := DaysBetween(tt.a, tt.b)
		if !ok || got != tt.days {
			t.Errorf("DaysBetween(%s, %s) = %d, %v; want %d", tt.a, tt.b, got, ok, tt.days)
		}
		if tt.a.AddDays(int(tt.days)) != tt.b {
			t.Errorf("%s.AddDays(%d) = %s, want %s", tt.a, tt.days, tt.a.AddDays(int(tt.days)), tt.b)
		}
	}

	if !IsNextDay("2025-12-31", "2026-01-01") {
		t.Error("year rollover should be next day")
	}
	if IsNextDay("2025-07-01", "2025-07-01") || IsNextDay("", "2025-07-01") {
		t.Error("same day and empty key are not next day")
	}
	if e, ok := DayKey("1970-01-02").Epoch(); !ok || e != 1 {
		t.Errorf("epoch = %d, %v", e, ok)
	}
}

func TestDayKey_SortsLexicallyInCalendarOrder(t *testing.T) {
	if !(DayKey("2025-09-30") < DayKey("2025-10-01")) {
		t.Error("zero-padded keys must compare in calendar order")
	}
}

// ─── Stats Tests ────────────────────────────────────────────────────────────

func TestStatsState_WeekTotalAndClone(t *testing.T) {
	s := StatsState{WeekWindow: []DayCount{{"2025-07-01", 2}, {"2025-07-02", 5}}}
	if s.WeekTotal() != 7 {
		t.Errorf("WeekTotal = %d, want 7", s.WeekTotal())
	}
	c := s.Clone()
	c.WeekWindow[0].Completed = 99
	if s.WeekWindow[0].Completed != 2 {
		t.Error("Clone shares the window slice")
	}
}

func TestEnumValidity(t *testing.T) {
	for _, k := range []EventKind{EventTaskCreated, EventTaskCompleted, EventLoginDay} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if EventKind("task_deleted").Valid() {
		t.Error("unknown event kind reported valid")
	}
	if TriggerKind("tasks_yearly").Valid() || AchievementCategory("social").Valid() {
		t.Error("unknown trigger/category reported valid")
	}
}

func TestStaticIdentity(t *testing.T) {
	if _, ok := StaticIdentity("").CurrentUserID(); ok {
		t.Error("empty identity should be signed out")
	}
	if id, ok := StaticIdentity("u1").CurrentUserID(); !ok || id != "u1" {
		t.Errorf("CurrentUserID = %q, %v", id, ok)
	}
}

// ─── Document Tests ─────────────────────────────────────────────────────────

func TestDocumentKeys(t *testing.T) {
	if got := StatsKey("u1"); got != "users/u1/engagement/stats" {
		t.Errorf("StatsKey = %s", got)
	}
	if got := UnlockKey("u1", "first_task"); got != "users/u1/achievements/first_task" {
		t.Errorf("UnlockKey = %s", got)
	}
}

// Documents pass through JSON on every real store, so decoding is checked
// against the JSON-typed form rather than the Go values that were encoded.
func TestStatsDocument_SurvivesJSON(t *testing.T) {
	snap := Snapshot{
		Stats: StatsState{
			TotalCompleted: 12, DayKey: "2025-07-02", DayCompleted: 3,
			Streak: 2, LastActiveDay: "2025-07-02",
			WeekWindow: []DayCount{{"2025-07-01", 9}, {"2025-07-02", 3}},
		},
		Points: 45,
	}
	at := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(StatsDocument(snap, "dev-1", at))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := SnapshotFromDocument(doc)
	if got.Stats.TotalCompleted != 12 || got.Stats.Streak != 2 || got.Points != 45 {
		t.Errorf("decoded = %+v", got)
	}
	if len(got.Stats.WeekWindow) != 2 || got.Stats.WeekWindow[0] != (DayCount{"2025-07-01", 9}) {
		t.Errorf("window = %+v", got.Stats.WeekWindow)
	}
	if w, _ := doc.String(FieldWriter); w != "dev-1" {
		t.Errorf("writer = %q", w)
	}
	if ts, ok := doc.Time(FieldUpdatedAt); !ok || !ts.Equal(at) {
		t.Errorf("updatedAt = %v, %v", ts, ok)
	}
}

func TestUnlockDocument_Decode(t *testing.T) {
	at := time.Date(2025, 7, 2, 9, 30, 0, 0, time.UTC)
	doc := UnlockDocument("streak_7", AchievementState{Unlocked: true, UnlockedAt: at, Progress: 7}, 50, "dev-1")

	st := AchievementStateFromDocument(doc)
	if !st.Unlocked || st.Progress != 7 || !st.UnlockedAt.Equal(at) {
		t.Errorf("decoded = %+v", st)
	}
	if id, _ := doc.String(FieldAchID); id != "streak_7" {
		t.Errorf("achId = %q", id)
	}
}

func TestDocument_WeekWindowSkipsMalformed(t *testing.T) {
	doc := Document{FieldWeekWindow: []any{
		map[string]any{"dayKey": "2025-07-01", "completed": float64(2)},
		map[string]any{"dayKey": "not-a-day", "completed": float64(2)},
		"junk",
	}}
	w, ok := doc.WeekWindow()
	if !ok || len(w) != 1 || w[0].DayKey != "2025-07-01" {
		t.Errorf("window = %+v, %v", w, ok)
	}
	if _, ok := (Document{}).WeekWindow(); ok {
		t.Error("missing field should report ok=false")
	}
}

func TestDocument_IntAcceptsNumericTypes(t *testing.T) {
	doc := Document{"a": 3, "b": int64(4), "c": float64(5), "d": json.Number("6"), "e": "7"}
	for key, want := range map[string]int64{"a": 3, "b": 4, "c": 5, "d": 6} {
		if got, ok := doc.Int(key); !ok || got != want {
			t.Errorf("Int(%s) = %d, %v", key, got, ok)
		}
	}
	if _, ok := doc.Int("e"); ok {
		t.Error("string should not decode as int")
	}
}
