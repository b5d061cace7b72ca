package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/app/remotesync"
	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/health"
	"github.com/kinly-app/kinly/internal/infra/remote"
	"github.com/kinly-app/kinly/internal/infra/sqlite"
)

type testEnv struct {
	srv      *httptest.Server
	server   *Server
	db       *sqlite.DB
	sessions *remotesync.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)

	noon := func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }
	notifs := engagement.NewNotificationService(db).
		WithClock(noon, time.UTC).
		WithLogger(engagement.DiscardLogger())
	sessions := remotesync.NewRegistry(remotesync.SessionConfig{
		Store:    sqlite.NewDocStore(db),
		Location: time.UTC,
		Debounce: time.Millisecond,
		Logger:   engagement.DiscardLogger(),
	}, notifs.ForUser)

	s := NewServer(db, sessions, notifs)
	s.EnableMetrics()
	s.SetLogger(engagement.DiscardLogger())
	srv := httptest.NewServer(s.Handler())

	t.Cleanup(func() {
		srv.Close()
		sessions.CloseAll()
		db.Close()
	})
	return &testEnv{srv: srv, server: s, db: db, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ═══════════════════════════════════════════════════════════════════════════
// Basic Routes
// ═══════════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "GET", "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestHealth_ReportsChecks(t *testing.T) {
	env := newTestEnv(t)
	notADir := filepath.Join(t.TempDir(), "kinly")
	require.NoError(t, os.WriteFile(notADir, nil, 0600))
	checker := health.NewChecker(env.db, notADir, sqlite.NewDocStore(env.db))
	checker.RunOnce(context.Background())
	env.server.SetHealth(checker)
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Status string          `json:"status"`
		Checks []health.Status `json:"checks"`
	}](t, resp)
	assert.Equal(t, "degraded", body.Status)
	require.Len(t, body.Checks, 3)
	assert.Equal(t, "sqlite", body.Checks[0].Name)
	assert.True(t, body.Checks[0].Healthy)
	assert.False(t, body.Checks[1].Healthy, "data_dir is a file")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	env.server.SetVersion("1.2.3")
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "1.2.3", decode[map[string]string](t, resp)["version"])
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "OPTIONS", "/api/docs/x", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/engagement/u1/events", `{"kind":"task_completed"}`)
	resp := env.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// ═══════════════════════════════════════════════════════════════════════════
// Engagement Routes
// ═══════════════════════════════════════════════════════════════════════════

func TestEvent_FirstTaskUnlocks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/api/engagement/u1/events", `{"kind":"task_completed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[EventResponse](t, resp)

	require.Len(t, out.Unlocked, 1)
	assert.Equal(t, "first_task", out.Unlocked[0].ID)
	assert.Equal(t, 1, out.Stats.TotalCompleted)
	assert.Equal(t, 1, out.Stats.Streak)
	assert.EqualValues(t, 10, out.Points)
}

func TestEvent_UnknownKindRejected(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, "POST", "/api/engagement/u1/events", `{"kind":"task_deleted"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, "POST", "/api/engagement/u1/events", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalog_MasksHiddenNames(t *testing.T) {
	env := newTestEnv(t)
	body := decode[map[string][]AchievementView](t, env.do(t, "GET", "/api/engagement/catalog", ""))
	views := body["achievements"]
	require.Len(t, views, len(engagement.AllAchievements()))
	assert.Equal(t, "first_task", views[0].ID)
	for _, v := range views {
		assert.False(t, v.Unlocked)
		if v.Hidden {
			assert.Equal(t, "???", v.Name)
		}
	}
}

func TestStatsAndAchievements(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.do(t, "POST", "/api/engagement/u1/events", `{"kind":"task_completed"}`)
	}

	stats := decode[StatsResponse](t, env.do(t, "GET", "/api/engagement/u1/stats", ""))
	assert.Equal(t, "u1", stats.UserID)
	assert.Equal(t, 5, stats.Stats.DayCompleted)
	assert.EqualValues(t, 10+25+30, stats.Points)

	body := decode[map[string][]AchievementView](t, env.do(t, "GET", "/api/engagement/u1/achievements", ""))
	views := body["achievements"]
	require.Len(t, views, len(engagement.AllAchievements()))

	byID := map[string]AchievementView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.True(t, byID["five_tasks"].Unlocked)
	assert.NotNil(t, byID["five_tasks"].UnlockedAt)
	assert.False(t, byID["helper_25"].Unlocked)
	assert.Equal(t, 5, byID["helper_25"].Progress)
	assert.Equal(t, "???", byID["helper_500"].Name, "locked hidden names stay secret")
}

func TestEvent_PersistsToDocumentStore(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/engagement/u1/events", `{"kind":"task_completed"}`)

	sess, ok := env.sessions.Lookup("u1")
	require.True(t, ok)
	sess.Syncer.Wait()

	ctx := context.Background()
	rec, err := env.db.GetDocument(ctx, domain.StatsKey("u1"))
	require.NoError(t, err)
	total, _ := rec.Body.Int(domain.FieldTotalCompleted)
	assert.EqualValues(t, 1, total)

	_, err = env.db.GetDocument(ctx, domain.UnlockKey("u1", "first_task"))
	assert.NoError(t, err)
}

func TestLogout_ResetsAndRepulls(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/engagement/u1/events", `{"kind":"task_completed"}`)

	resp := env.do(t, "DELETE", "/api/engagement/u1/session", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, "DELETE", "/api/engagement/u1/session", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A new session pulls the remote copy back.
	stats := decode[StatsResponse](t, env.do(t, "GET", "/api/engagement/u1/stats", ""))
	assert.Equal(t, 1, stats.Stats.TotalCompleted)
	assert.EqualValues(t, 10, stats.Points)
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification Routes
// ═══════════════════════════════════════════════════════════════════════════

func TestNotifications_ListAndMarkShown(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/engagement/u1/events", `{"kind":"task_completed"}`)

	list := decode[map[string][]domain.Notification](t, env.do(t, "GET", "/api/notifications?user=u1", ""))
	require.Len(t, list["notifications"], 1)
	n := list["notifications"][0]
	assert.Contains(t, n.Title, "First Step")

	resp := env.do(t, "POST", "/api/notifications/"+strconv.FormatInt(n.ID, 10)+"/shown", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	list = decode[map[string][]domain.Notification](t, env.do(t, "GET", "/api/notifications?user=u1", ""))
	assert.Empty(t, list["notifications"])

	assert.Equal(t, http.StatusNotFound, env.do(t, "POST", "/api/notifications/9999/shown", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", "/api/notifications/abc/shown", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/notifications?limit=-1", "").StatusCode)
}

// ═══════════════════════════════════════════════════════════════════════════
// Document Routes
// ═══════════════════════════════════════════════════════════════════════════

func TestDocs_GetPatch(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/docs/users/u9/engagement/stats", "").StatusCode)

	resp := env.do(t, "PATCH", "/api/docs/users/u9/engagement/stats", `{"streak":3,"points":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.do(t, "PATCH", "/api/docs/users/u9/engagement/stats", `{"streak":4}`)

	rec := decode[sqlite.DocumentRecord](t, env.do(t, "GET", "/api/docs/users/u9/engagement/stats", ""))
	assert.Equal(t, "users/u9/engagement/stats", rec.Key)
	streak, _ := rec.Body.Int("streak")
	points, _ := rec.Body.Int("points")
	assert.EqualValues(t, 4, streak)
	assert.EqualValues(t, 5, points)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "PATCH", "/api/docs/users/u9/x", `[1,2]`).StatusCode)
}

func TestDocs_RemoteClientDrivesRemoteEngine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A second device syncing over HTTP.
	client := remote.New(env.srv.URL)
	sess := remotesync.StartSession(ctx, remotesync.SessionConfig{
		Store:    client,
		Identity: domain.StaticIdentity("u2"),
		Location: time.UTC,
		Debounce: time.Millisecond,
		Logger:   engagement.DiscardLogger(),
	})
	sess.Engine.CheckAndAward(domain.Event{Kind: domain.EventTaskCompleted})
	sess.Close()

	// The daemon's own session for u2 pulls what the device pushed.
	stats := decode[StatsResponse](t, env.do(t, "GET", "/api/engagement/u2/stats", ""))
	assert.Equal(t, 1, stats.Stats.TotalCompleted)
	assert.EqualValues(t, 10, stats.Points)

	body := decode[map[string][]AchievementView](t, env.do(t, "GET", "/api/engagement/u2/achievements", ""))
	for _, v := range body["achievements"] {
		if v.ID == "first_task" {
			assert.True(t, v.Unlocked)
		}
	}
}
