package remotesync

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/metrics"
)

// SessionConfig holds everything needed to start a user session.
type SessionConfig struct {
	Store    domain.RemoteStore
	Identity domain.IdentityProvider
	Notifier domain.Notifier
	Location *time.Location
	Now      func() time.Time
	Debounce time.Duration
	Logger   *log.Logger
}

// Session binds an engine to its syncer for one signed-in user.
type Session struct {
	ID     string
	UserID string
	Engine *engagement.Engine
	Syncer *Syncer

	logger *log.Logger
}

// StartSession builds the engine, pulls remote state once and subscribes
// to remote changes. Without an identity the session runs purely locally.
func StartSession(ctx context.Context, cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Identity == nil {
		cfg.Identity = domain.StaticIdentity("")
	}
	id := uuid.NewString()

	engine := engagement.New(engagement.Options{
		Now:      cfg.Now,
		Location: cfg.Location,
		Notifier: cfg.Notifier,
		Logger:   cfg.Logger,
	})
	syncer := New(engine, cfg.Store, cfg.Identity, Config{
		Debounce: cfg.Debounce,
		Writer:   id,
		Logger:   cfg.Logger,
		Now:      cfg.Now,
	})

	uid, ok := cfg.Identity.CurrentUserID()
	if ok {
		syncer.Pull(ctx)
		syncer.Subscribe()
	} else {
		cfg.Logger.Printf("[sync] session %s: %v", id, domain.ErrNoIdentity)
	}

	metrics.ActiveSessions.Inc()
	return &Session{ID: id, UserID: uid, Engine: engine, Syncer: syncer, logger: cfg.Logger}
}

// Close detaches the syncer and waits for pending pushes to land. The
// engine stays usable but no longer writes to the store.
func (s *Session) Close() {
	s.Syncer.Stop()
	s.Syncer.Wait()
	metrics.ActiveSessions.Dec()
}

// Logout closes the session and clears local state. The remote copy is kept.
func (s *Session) Logout() {
	s.Close()
	s.Engine.Reset()
	s.logger.Printf("[sync] session %s: logged out %s", s.ID, s.UserID)
}
