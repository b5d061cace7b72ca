// Package engagement implements the Kinly engagement engine.
// Events feed the stats ledger; the evaluator unlocks catalog achievements
// against the updated counters and credits the points ledger. Remote
// persistence and notifications sit behind injected ports so the engine
// itself never performs I/O.
package engagement

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/kinly-app/kinly/internal/domain"
)

// Options configures an Engine. Zero values select sensible defaults.
type Options struct {
	Now      func() time.Time // defaults to time.Now
	Location *time.Location   // day boundaries; defaults to time.Local
	Sync     domain.SyncPort  // defaults to a no-op port
	Notifier domain.Notifier  // defaults to a no-op notifier
	Logger   *log.Logger      // defaults to log.Default()
	Catalog  []domain.AchievementDef
}

// Engine owns one user's stats, achievement states and points.
// Construct one per authenticated session.
type Engine struct {
	mu sync.Mutex

	now      func() time.Time
	loc      *time.Location
	sync     domain.SyncPort
	notifier domain.Notifier
	logger   *log.Logger

	catalog []domain.AchievementDef
	index   map[string]int

	stats        domain.StatsState
	achievements map[string]domain.AchievementState
	points       int64
}

// New creates an engine with zero-valued state.
func New(opts Options) *Engine {
	e := &Engine{
		now:          opts.Now,
		loc:          opts.Location,
		sync:         opts.Sync,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		catalog:      opts.Catalog,
		achievements: make(map[string]domain.AchievementState),
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.sync == nil {
		e.sync = noopSync{}
	}
	if e.notifier == nil {
		e.notifier = noopNotifier{}
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.catalog == nil {
		e.catalog = AllAchievements()
	}
	e.index = make(map[string]int, len(e.catalog))
	for i, def := range e.catalog {
		e.index[def.ID] = i
	}
	return e
}

// SetSync replaces the sync port. Used when the port is built after the
// engine because it needs the engine as its snapshot source.
func (e *Engine) SetSync(p domain.SyncPort) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p == nil {
		p = noopSync{}
	}
	e.sync = p
}

// Catalog returns the definitions this engine evaluates, in order.
func (e *Engine) Catalog() []domain.AchievementDef {
	out := make([]domain.AchievementDef, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Location returns the time zone used for day boundaries.
func (e *Engine) Location() *time.Location { return e.loc }

// ─── Reads ──────────────────────────────────────────────────────────────────

// Stats returns a copy of the current stats.
func (e *Engine) Stats() domain.StatsState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Clone()
}

// Points returns the current points total.
func (e *Engine) Points() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.points
}

// Achievement returns the state for id. Never-touched ids report the zero state.
func (e *Engine) Achievement(id string) domain.AchievementState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.achievements[id]
}

// Achievements returns a copy of every recorded achievement state.
func (e *Engine) Achievements() map[string]domain.AchievementState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]domain.AchievementState, len(e.achievements))
	for k, v := range e.achievements {
		out[k] = v
	}
	return out
}

// Snapshot returns the stats and points as of now. The sync adapter calls
// this at flush time so coalesced pushes always carry current state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Snapshot{Stats: e.stats.Clone(), Points: e.points}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Seed overwrites local state with the session-start pull. Achievements
// already unlocked locally stay unlocked.
func (e *Engine) Seed(snap domain.Snapshot, unlocks map[string]domain.AchievementState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats = normalizeStats(snap.Stats)
	e.points = max(snap.Points, 0)
	for id, st := range unlocks {
		if _, known := e.index[id]; !known {
			continue
		}
		if cur := e.achievements[id]; cur.Unlocked {
			continue
		}
		e.achievements[id] = st
	}
}

// ApplyRemote merges a remote stats document into the ledger. Each field
// present in doc replaces the local value, except the lifetime counters
// which never move backwards. Nothing is pushed back.
func (e *Engine) ApplyRemote(doc domain.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats.Clone()
	if v, ok := doc.Int(domain.FieldTotalCompleted); ok && int(v) > s.TotalCompleted {
		s.TotalCompleted = int(v)
	}
	if v, ok := doc.String(domain.FieldDayKey); ok {
		s.DayKey = domain.DayKey(v)
	}
	if v, ok := doc.Int(domain.FieldDayCompleted); ok {
		s.DayCompleted = int(v)
	}
	if v, ok := doc.Int(domain.FieldStreak); ok {
		s.Streak = int(v)
	}
	if v, ok := doc.String(domain.FieldLastActiveDay); ok {
		s.LastActiveDay = domain.DayKey(v)
	}
	if v, ok := doc.WeekWindow(); ok {
		s.WeekWindow = v
	}
	e.stats = normalizeStats(s)

	if v, ok := doc.Int(domain.FieldPoints); ok && v > e.points {
		e.points = v
	}
}

// SetStats replaces the stats ledger wholesale. Intended for admin tooling
// and tests; invariants are restored before the state is committed.
func (e *Engine) SetStats(s domain.StatsState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = normalizeStats(s)
}

// Reset clears all state back to zero (logout). Remote copies are untouched.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = domain.StatsState{}
	e.achievements = make(map[string]domain.AchievementState)
	e.points = 0
}

// ─── Side effects ───────────────────────────────────────────────────────────

// effects collects port calls made while e.mu is held; they run after the
// state change is committed and the lock released.
type effects []func()

func (fx *effects) add(f func()) { *fx = append(*fx, f) }

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}

type noopSync struct{}

func (noopSync) PushStats()        {}
func (noopSync) PushUnlock(string) {}

type noopNotifier struct{}

func (noopNotifier) NotifyAchievementUnlocked(string) {}

// DiscardLogger is a logger that drops everything. Handy for tests.
func DiscardLogger() *log.Logger { return log.New(io.Discard, "", 0) }
