// Package health runs the daemon's periodic self checks: the local
// database, the data directory and the remote document store.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/healing"
)

// DefaultInterval is how often Run repeats every check.
const DefaultInterval = 60 * time.Second

// Check is one named probe with an optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status is the latest result of a check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping() error
}

// Checker runs checks on an interval and keeps the latest statuses.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	now      func() time.Time
}

// NewChecker creates a checker for the database, the data directory and
// the store sessions sync to.
func NewChecker(db Pinger, dataDir string, store domain.RemoteStore) *Checker {
	return &Checker{
		interval: DefaultInterval,
		now:      time.Now,
		checks: []Check{
			{
				Name:    "sqlite",
				CheckFn: func(ctx context.Context) error { return db.Ping() },
			},
			{
				Name:    "data_dir",
				CheckFn: func(ctx context.Context) error { return checkDataDir(dataDir) },
				RecoverFn: func(ctx context.Context) error {
					return os.MkdirAll(dataDir, 0700)
				},
			},
			{
				Name:    "remote_store",
				CheckFn: func(ctx context.Context) error { return checkStore(store) },
			},
		},
	}
}

// WithInterval sets the Run interval.
func (c *Checker) WithInterval(d time.Duration) *Checker {
	if d > 0 {
		c.interval = d
	}
	return c
}

// Run checks immediately, then on every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check once, attempting recovery on failures.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{Name: check.Name, Healthy: true, CheckedAt: c.now()}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			if check.RecoverFn != nil {
				_ = check.RecoverFn(ctx)
			}
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Status, len(c.statuses))
	copy(out, c.statuses)
	return out
}

// IsHealthy reports whether every check passed on the last run.
// It is true before the first run.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// breakered is implemented by stores that guard calls with a breaker.
type breakered interface {
	Breaker() *healing.Breaker
}

func checkStore(store domain.RemoteStore) error {
	if store == nil {
		return errors.New("no remote store configured")
	}
	b, ok := store.(breakered)
	if !ok {
		return nil
	}
	if snap := b.Breaker().Snapshot(); snap.State == healing.Open.String() {
		return fmt.Errorf("%s: %w (%d trips)", snap.Name, healing.ErrOpen, snap.Trips)
	}
	return nil
}
