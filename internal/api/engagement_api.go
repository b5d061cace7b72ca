package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/domain"
)

// ─── Engagement ─────────────────────────────────────────────────────────────

// AchievementView is one catalog entry merged with a user's state.
type AchievementView struct {
	domain.AchievementDef
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	Progress   int        `json:"progress"`
}

// EventResponse is returned by POST /api/engagement/{user}/events.
type EventResponse struct {
	Unlocked []domain.AchievementDef `json:"unlocked"`
	Stats    domain.StatsState       `json:"stats"`
	Points   int64                   `json:"points"`
}

// StatsResponse is returned by GET /api/engagement/{user}/stats.
type StatsResponse struct {
	UserID string            `json:"user_id"`
	Stats  domain.StatsState `json:"stats"`
	Points int64             `json:"points"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": catalogViews(nil)})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event body: "+err.Error())
		return
	}
	if !ev.Kind.Valid() {
		writeError(w, http.StatusBadRequest, domain.ErrUnknownEvent.Error()+": "+string(ev.Kind))
		return
	}

	sess := s.sessions.Session(r.Context(), user)
	unlocked := sess.Engine.CheckAndAward(ev)
	if unlocked == nil {
		unlocked = []domain.AchievementDef{}
	}
	snap := sess.Engine.Snapshot()
	writeJSON(w, http.StatusOK, EventResponse{Unlocked: unlocked, Stats: snap.Stats, Points: snap.Points})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	snap := s.sessions.Session(r.Context(), user).Engine.Snapshot()
	writeJSON(w, http.StatusOK, StatsResponse{UserID: user, Stats: snap.Stats, Points: snap.Points})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	states := s.sessions.Session(r.Context(), user).Engine.Achievements()
	writeJSON(w, http.StatusOK, map[string]any{"achievements": catalogViews(states)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if !s.sessions.Logout(user) {
		writeError(w, http.StatusNotFound, "no active session for "+user)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// catalogViews merges states into the catalog. Locked hidden entries keep
// their name secret.
func catalogViews(states map[string]domain.AchievementState) []AchievementView {
	var out []AchievementView
	for _, def := range engagement.AllAchievements() {
		st := states[def.ID]
		v := AchievementView{AchievementDef: def, Unlocked: st.Unlocked, Progress: st.Progress}
		if st.Unlocked {
			at := st.UnlockedAt
			v.UnlockedAt = &at
		} else if def.Hidden {
			v.Name = "???"
		}
		out = append(out, v)
	}
	return out
}

// ─── Notifications ──────────────────────────────────────────────────────────

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	notifs, err := s.notifications.Pending(r.URL.Query().Get("user"), limit)
	if err != nil {
		s.logger.Printf("[api] list notifications: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if notifs == nil {
		notifs = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifs})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	switch err := s.notifications.MarkShown(id); {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "notification not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
