package domain

import (
	"fmt"
	"time"
)

// DayKey identifies a calendar day as "YYYY-MM-DD".
//
// Day arithmetic goes through Epoch, the number of civil days since
// 1970-01-01, computed from the date fields alone. Wall-clock durations
// are never subtracted, so a 23h or 25h DST day is still exactly one day.
type DayKey string

const dayKeyLayout = "2006-01-02"

// DayKeyOf returns the calendar day of t as seen in loc.
// A nil loc uses t's own location.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	if loc != nil {
		t = t.In(loc)
	}
	return DayKey(t.Format(dayKeyLayout))
}

// ParseDayKey validates s and returns it as a DayKey.
func ParseDayKey(s string) (DayKey, error) {
	if _, err := time.Parse(dayKeyLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	return DayKey(s), nil
}

// Valid reports whether k parses as a calendar date.
func (k DayKey) Valid() bool {
	_, err := time.Parse(dayKeyLayout, string(k))
	return err == nil
}

// IsZero reports whether the key is unset.
func (k DayKey) IsZero() bool { return k == "" }

// String implements fmt.Stringer.
func (k DayKey) String() string { return string(k) }

// Epoch returns the civil day number of k (0 = 1970-01-01).
func (k DayKey) Epoch() (int64, bool) {
	t, err := time.Parse(dayKeyLayout, string(k))
	if err != nil {
		return 0, false
	}
	// time.Parse without a zone yields UTC midnight, so this division is exact.
	return t.Unix() / 86400, true
}

// AddDays returns the key n calendar days after k. Invalid keys stay unchanged.
func (k DayKey) AddDays(n int) DayKey {
	t, err := time.Parse(dayKeyLayout, string(k))
	if err != nil {
		return k
	}
	return DayKey(t.AddDate(0, 0, n).Format(dayKeyLayout))
}

// DaysBetween returns b - a in calendar days. ok is false if either key is invalid.
func DaysBetween(a, b DayKey) (days int64, ok bool) {
	ea, okA := a.Epoch()
	eb, okB := b.Epoch()
	if !okA || !okB {
		return 0, false
	}
	return eb - ea, true
}

// IsNextDay reports whether next is exactly one calendar day after prev.
func IsNextDay(prev, next DayKey) bool {
	d, ok := DaysBetween(prev, next)
	return ok && d == 1
}
