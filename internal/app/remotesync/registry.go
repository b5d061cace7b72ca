package remotesync

import (
	"context"
	"slices"
	"sync"

	"github.com/kinly-app/kinly/internal/domain"
)

// Registry keeps one Session per user id, started on first use.
type Registry struct {
	base        SessionConfig
	notifierFor func(userID string) domain.Notifier

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry is a registry slot. ready closes once s is set, so a slow pull
// for one user only blocks callers asking for that same user.
type entry struct {
	ready chan struct{}
	s     *Session
}

func (e *entry) wait() *Session {
	<-e.ready
	return e.s
}

// NewRegistry creates a registry. base supplies everything but the
// identity and notifier, which are bound per user. notifierFor may be nil.
func NewRegistry(base SessionConfig, notifierFor func(userID string) domain.Notifier) *Registry {
	return &Registry{
		base:        base,
		notifierFor: notifierFor,
		sessions:    make(map[string]*entry),
	}
}

// Session returns the live session for userID, starting one if needed.
// The session start, including its remote pull, runs outside the registry
// lock.
func (r *Registry) Session(ctx context.Context, userID string) *Session {
	r.mu.Lock()
	if e, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return e.wait()
	}
	e := &entry{ready: make(chan struct{})}
	r.sessions[userID] = e
	r.mu.Unlock()

	cfg := r.base
	cfg.Identity = domain.StaticIdentity(userID)
	if r.notifierFor != nil {
		cfg.Notifier = r.notifierFor(userID)
	}
	e.s = StartSession(ctx, cfg)
	close(e.ready)
	return e.s
}

// Lookup returns the session for userID without starting one.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.Lock()
	e, ok := r.sessions[userID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.wait(), true
}

// Logout ends userID's session and clears its local state.
// It reports whether a session existed.
func (r *Registry) Logout(userID string) bool {
	r.mu.Lock()
	e, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if ok {
		e.wait().Logout()
	}
	return ok
}

// Users returns the ids with a live session, sorted.
func (r *Registry) Users() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CloseAll flushes and closes every session. Local state is kept so a
// final read after shutdown still sees it.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range sessions {
		e.wait().Close()
	}
}
