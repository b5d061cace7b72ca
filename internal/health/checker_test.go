package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/healing"
	"github.com/kinly-app/kinly/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type failingPinger struct{}

func (failingPinger) Ping() error { return errors.New("database is locked") }

// breakerStore is a RemoteStore whose breaker the test controls.
type breakerStore struct {
	domain.RemoteStore
	b *healing.Breaker
}

func (s breakerStore) Breaker() *healing.Breaker { return s.b }

func statusByName(c *Checker) map[string]Status {
	out := map[string]Status{}
	for _, s := range c.Statuses() {
		out[s.Name] = s
	}
	return out
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestChecker_AllHealthy(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, t.TempDir(), sqlite.NewDocStore(db))
	c.RunOnce(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 3 {
		t.Fatalf("Statuses() = %d, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, t.TempDir(), sqlite.NewDocStore(db))
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before the first run")
	}
	if len(c.Statuses()) != 0 {
		t.Error("Statuses() should be empty before the first run")
	}
}

func TestChecker_DatabaseFailure(t *testing.T) {
	c := NewChecker(failingPinger{}, t.TempDir(), nil)
	c.RunOnce(context.Background())

	got := statusByName(c)
	if got["sqlite"].Healthy || !strings.Contains(got["sqlite"].Error, "locked") {
		t.Errorf("sqlite status = %+v", got["sqlite"])
	}
	if got["remote_store"].Healthy {
		t.Error("remote_store should fail without a store")
	}
	if c.IsHealthy() {
		t.Error("IsHealthy() should be false")
	}
}

func TestChecker_DataDirRecovers(t *testing.T) {
	db := newTestDB(t)
	dir := filepath.Join(t.TempDir(), "kinly")
	c := NewChecker(db, dir, sqlite.NewDocStore(db))

	c.RunOnce(context.Background())
	if statusByName(c)["data_dir"].Healthy {
		t.Fatal("missing data dir should be unhealthy")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("recovery did not create %s: %v", dir, err)
	}

	c.RunOnce(context.Background())
	if !statusByName(c)["data_dir"].Healthy {
		t.Error("data dir should be healthy after recovery")
	}
}

func TestChecker_OpenBreakerIsUnhealthy(t *testing.T) {
	db := newTestDB(t)
	b := healing.NewBreaker("remote-health", healing.Config{FailureThreshold: 1, Cooldown: time.Hour})
	c := NewChecker(db, t.TempDir(), breakerStore{b: b})

	c.RunOnce(context.Background())
	if !statusByName(c)["remote_store"].Healthy {
		t.Fatal("closed breaker should be healthy")
	}

	b.RecordFailure()
	c.RunOnce(context.Background())
	s := statusByName(c)["remote_store"]
	if s.Healthy || !strings.Contains(s.Error, "circuit breaker open") {
		t.Errorf("remote_store status = %+v", s)
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, t.TempDir(), sqlite.NewDocStore(db)).WithInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if len(c.Statuses()) != 3 {
		t.Error("Run should have recorded statuses")
	}
}
