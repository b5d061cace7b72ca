// Package healing guards the remote document store with a circuit breaker.
// When the daemon behind a remote store is down, every sync write would
// otherwise wait out its full timeout before being dropped.
//
// States:
//   - CLOSED: calls pass; consecutive failures past the threshold trip to OPEN
//   - OPEN: calls fail fast until the cool-down elapses, then HALF_OPEN
//   - HALF_OPEN: probes pass; enough successes close, any failure reopens
package healing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kinly-app/kinly/internal/infra/metrics"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// String returns the state name used in logs and health output.
func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Breaker.
type Config struct {
	FailureThreshold int           // consecutive failures to trip (default 5)
	Cooldown         time.Duration // time OPEN before probing (default 30s)
	Probes           int           // HALF_OPEN successes needed to close (default 2)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		Probes:           2,
	}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	name     string
	cfg      Config
	state    State
	failures int
	probes   int
	openedAt time.Time
	trips    int
	now      func() time.Time
}

// NewBreaker creates a closed breaker. Zero config fields take defaults.
func NewBreaker(name string, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Probes <= 0 {
		cfg.Probes = def.Probes
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Do runs fn unless the breaker is open, and records its outcome.
// isFailure decides which errors count against the store; nil counts every
// non-nil error.
func (b *Breaker) Do(fn func() error, isFailure func(error) bool) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		b.RecordFailure()
	} else {
		b.RecordSuccess()
	}
	return err
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.advanceLocked() == Open {
		return fmt.Errorf("%s: %w", b.name, ErrOpen)
	}
	return nil
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.probes++
		if b.probes >= b.cfg.Probes {
			b.setLocked(Closed)
		}
	}
}

// RecordFailure records a failed call and may trip the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.tripLocked()
		}
	case HalfOpen:
		b.tripLocked()
	}
}

// State returns the current state, moving OPEN to HALF_OPEN once the
// cool-down has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.advanceLocked()
}

// Snapshot is a point-in-time view for health reporting.
type Snapshot struct {
	Name     string    `json:"name"`
	State    string    `json:"state"`
	Failures int       `json:"failures"`
	Trips    int       `json:"trips"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
}

// Snapshot returns the breaker's current counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:     b.name,
		State:    b.advanceLocked().String(),
		Failures: b.failures,
		Trips:    b.trips,
		OpenedAt: b.openedAt,
	}
}

func (b *Breaker) advanceLocked() State {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.setLocked(HalfOpen)
	}
	return b.state
}

func (b *Breaker) tripLocked() {
	b.openedAt = b.now()
	b.trips++
	b.setLocked(Open)
}

func (b *Breaker) setLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.failures = 0
	b.probes = 0
	metrics.BreakerState.WithLabelValues(b.name).Set(float64(s))
}
