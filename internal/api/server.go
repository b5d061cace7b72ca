// Package api provides the HTTP server for Kinly.
// It exposes the engagement engine per user, the notification log, and the
// document store that remote engines sync against.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/app/remotesync"
	"github.com/kinly-app/kinly/internal/health"
	"github.com/kinly-app/kinly/internal/infra/sqlite"
)

// Server is the Kinly HTTP API server.
type Server struct {
	db             *sqlite.DB
	sessions       *remotesync.Registry
	notifications  *engagement.NotificationService
	health         *health.Checker
	metricsEnabled bool
	version        string
	logger         *log.Logger
}

// NewServer creates a new API server.
func NewServer(db *sqlite.DB, sessions *remotesync.Registry, notifications *engagement.NotificationService) *Server {
	return &Server{
		db:            db,
		sessions:      sessions,
		notifications: notifications,
		version:       "dev",
		logger:        log.Default(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// SetHealth makes /health report the checker's latest statuses instead of
// a bare database ping.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// SetLogger replaces the request error logger.
func (s *Server) SetLogger(l *log.Logger) { s.logger = l }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})

	r.Route("/api/engagement", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Route("/{user}", func(r chi.Router) {
			r.Post("/events", s.handleEvent)
			r.Get("/stats", s.handleStats)
			r.Get("/achievements", s.handleAchievements)
			r.Delete("/session", s.handleLogout)
		})
	})

	r.Get("/api/notifications", s.handleNotifications)
	r.Post("/api/notifications/{id}/shown", s.handleNotificationShown)

	r.Route("/api/docs", func(r chi.Router) {
		r.Get("/*", s.handleGetDocument)
		r.Patch("/*", s.handlePatchDocument)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		status := "ok"
		if err := s.db.Ping(); err != nil {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
		return
	}

	status := "ok"
	if !s.health.IsHealthy() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    http.StatusText(status),
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
