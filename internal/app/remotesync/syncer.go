// Package remotesync pushes engine state to the remote document store.
//
// Two write paths exist. Unlock records go out immediately, one write per
// unlock. Stats and points are debounced: the first PushStats in a burst
// arms a timer, later calls in the window do nothing, and the flush writes
// whatever the engine holds at that moment. Every remote failure is logged
// and counted, then dropped; the next mutation pushes fresh state anyway.
package remotesync

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/metrics"
)

// DefaultDebounce is the stats push window.
const DefaultDebounce = 3 * time.Second

// Config tunes a Syncer.
type Config struct {
	Debounce time.Duration // stats push window; DefaultDebounce when zero
	Timeout  time.Duration // per remote call; 10s when zero
	Writer   string        // tag on every written document; used to skip our own echoes
	Logger   *log.Logger

	// AfterFunc schedules f after d. Defaults to time.AfterFunc; tests
	// substitute a manual trigger.
	AfterFunc func(d time.Duration, f func())
	Now       func() time.Time
}

// Syncer implements domain.SyncPort for one engine.
type Syncer struct {
	store    domain.RemoteStore
	identity domain.IdentityProvider
	engine   *engagement.Engine
	cfg      Config

	mu      sync.Mutex
	pending bool
	closed  bool
	unsub   func()

	// flushMu orders stats flushes so an older snapshot never lands last.
	flushMu sync.Mutex

	inflight sync.WaitGroup
}

var _ domain.SyncPort = (*Syncer)(nil)

// New creates a syncer for engine and installs it as the engine's sync port.
func New(engine *engagement.Engine, store domain.RemoteStore, identity domain.IdentityProvider, cfg Config) *Syncer {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if identity == nil {
		identity = domain.StaticIdentity("")
	}

	s := &Syncer{store: store, identity: identity, engine: engine, cfg: cfg}
	engine.SetSync(s)
	return s
}

func (s *Syncer) userID() (string, bool) {
	if s.store == nil {
		return "", false
	}
	return s.identity.CurrentUserID()
}

// ─── Push ───────────────────────────────────────────────────────────────────

// PushStats arms the debounce timer unless one is already pending.
// The timer is never reset or cancelled.
func (s *Syncer) PushStats() {
	if _, ok := s.userID(); !ok {
		metrics.SyncWrites.WithLabelValues("stats", "skipped").Inc()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.SyncWrites.WithLabelValues("stats", "skipped").Inc()
		return
	}
	if s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.inflight.Add(1)
	s.mu.Unlock()

	metrics.SyncPending.Inc()
	s.cfg.AfterFunc(s.cfg.Debounce, s.flushStats)
}

// flushStats writes the engine's current snapshot. Clearing pending
// before taking the snapshot lets a mutation racing the write arm the next
// timer instead of being lost.
func (s *Syncer) flushStats() {
	defer s.inflight.Done()

	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	metrics.SyncPending.Dec()

	uid, ok := s.userID()
	if !ok {
		metrics.SyncWrites.WithLabelValues("stats", "skipped").Inc()
		return
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	doc := domain.StatsDocument(s.engine.Snapshot(), s.cfg.Writer, s.cfg.Now())
	s.write("stats", domain.StatsKey(uid), doc)
}

// PushUnlock writes one achievement record right away on its own goroutine.
func (s *Syncer) PushUnlock(achID string) {
	uid, ok := s.userID()
	if !ok {
		metrics.SyncWrites.WithLabelValues("unlock", "skipped").Inc()
		return
	}

	st := s.engine.Achievement(achID)
	var points int64
	if def, ok := engagement.Lookup(achID); ok {
		points = def.Points
	}
	doc := domain.UnlockDocument(achID, st, points, s.cfg.Writer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.SyncWrites.WithLabelValues("unlock", "skipped").Inc()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		s.write("unlock", domain.UnlockKey(uid, achID), doc)
	}()
}

func (s *Syncer) write(path, key string, doc domain.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := s.store.Set(ctx, key, doc, true)
	metrics.SyncLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SyncWrites.WithLabelValues(path, "error").Inc()
		s.cfg.Logger.Printf("[sync] %s write %s dropped: %v", path, key, err)
		return
	}
	metrics.SyncWrites.WithLabelValues(path, "ok").Inc()
}

// Stop detaches the syncer: the subscription ends and later pushes are
// dropped. Writes already armed or started still complete; call Wait for them.
func (s *Syncer) Stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Unsubscribe()
}

// Wait blocks until every armed timer has fired and every write started
// so far has finished.
func (s *Syncer) Wait() {
	s.inflight.Wait()
}

// ─── Pull & Subscribe ───────────────────────────────────────────────────────

// Pull seeds the engine from the remote stats document and the catalog's
// unlock records. Any failure leaves the engine's zero state in place.
func (s *Syncer) Pull(ctx context.Context) {
	uid, ok := s.userID()
	if !ok {
		return
	}

	doc, err := s.store.Get(ctx, domain.StatsKey(uid))
	var snap domain.Snapshot
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
	case err != nil:
		metrics.SyncWrites.WithLabelValues("pull", "error").Inc()
		s.cfg.Logger.Printf("[sync] pull stats for %s: %v", uid, err)
		return
	default:
		snap = domain.SnapshotFromDocument(doc)
	}

	unlocks := make(map[string]domain.AchievementState)
	for _, def := range s.engine.Catalog() {
		d, err := s.store.Get(ctx, domain.UnlockKey(uid, def.ID))
		if errors.Is(err, domain.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			metrics.SyncWrites.WithLabelValues("pull", "error").Inc()
			s.cfg.Logger.Printf("[sync] pull %s for %s: %v", def.ID, uid, err)
			return
		}
		if st := domain.AchievementStateFromDocument(d); st.Unlocked {
			unlocks[def.ID] = st
		}
	}

	s.engine.Seed(snap, unlocks)
	metrics.SyncWrites.WithLabelValues("pull", "ok").Inc()
}

// Subscribe applies remote stats changes to the engine until Unsubscribe.
// Documents this syncer wrote itself are ignored.
func (s *Syncer) Subscribe() {
	uid, ok := s.userID()
	if !ok {
		return
	}
	unsub := s.store.OnChange(domain.StatsKey(uid), func(doc domain.Document) {
		if w, _ := doc.String(domain.FieldWriter); w != "" && w == s.cfg.Writer {
			return
		}
		s.engine.ApplyRemote(doc)
	})

	s.mu.Lock()
	prev := s.unsub
	s.unsub = unsub
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Unsubscribe stops applying remote changes.
func (s *Syncer) Unsubscribe() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
