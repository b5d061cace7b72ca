// Package metrics provides Prometheus metrics for Kinly.
// Counters cover engagement events, unlocks, points and remote sync
// outcomes so a silently failing sync is still visible to operators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Engagement ─────────────────────────────────────────────────────────────

// EventsTotal tracks engine input events by kind.
var EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kinly",
	Name:      "engagement_events_total",
	Help:      "Total engagement events processed, by kind.",
}, []string{"kind"})

// AchievementsUnlocked tracks unlocks by achievement id.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kinly",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievement unlocks, by achievement id.",
}, []string{"achievement"})

// PointsAwarded tracks points credited across all users.
var PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kinly",
	Name:      "points_awarded_total",
	Help:      "Total points credited to points ledgers.",
})

// ─── Sync ───────────────────────────────────────────────────────────────────

// SyncWrites tracks remote store operations by path (stats, unlock, pull)
// and result (ok, error, skipped).
var SyncWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kinly",
	Name:      "sync_operations_total",
	Help:      "Remote sync operations by path and result.",
}, []string{"path", "result"})

// SyncPending tracks armed debounce timers.
var SyncPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "kinly",
	Name:      "sync_pending_flushes",
	Help:      "Number of armed stats debounce timers.",
})

// SyncLatency tracks remote write duration in seconds.
var SyncLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "kinly",
	Name:      "sync_latency_seconds",
	Help:      "Remote store write duration in seconds.",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"path"})

// ─── Sessions & Notifications ───────────────────────────────────────────────

// ActiveSessions tracks live engine sessions held by the daemon.
var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "kinly",
	Name:      "sessions_active",
	Help:      "Number of live engagement sessions.",
})

// Notifications tracks achievement notifications by outcome
// (created, suppressed, failed).
var Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kinly",
	Name:      "notifications_total",
	Help:      "Achievement notifications by outcome.",
}, []string{"outcome"})

// ─── Remote Store ───────────────────────────────────────────────────────────

// BreakerState tracks the remote store circuit breaker
// (0 closed, 1 open, 2 half-open).
var BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "kinly",
	Name:      "remote_breaker_state",
	Help:      "Remote store circuit breaker state (0 closed, 1 open, 2 half-open).",
}, []string{"store"})
