package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/kinly-app/kinly/internal/domain"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.API.Port = 0
	cfg.Engagement.Timezone = "UTC"
	cfg.Sync.Debounce = "1ms"
	// No quiet hours so notification counts do not depend on the wall clock.
	cfg.Notifications.QuietStart = "00:00"
	cfg.Notifications.QuietEnd = "00:00"
	return cfg
}

func TestDaemon_StatePersistsAcrossRestart(t *testing.T) {
	t.Setenv("KINLY_HOME", t.TempDir())
	ctx := context.Background()

	d, err := NewWithConfig(testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	sess := d.Sessions.Session(ctx, "u1")
	for i := 0; i < 5; i++ {
		sess.Engine.CheckAndAward(domain.Event{Kind: domain.EventTaskCompleted})
	}
	if n, _ := d.Notification.TodayCount("u1"); n != 3 {
		t.Errorf("notifications today = %d, want 3 (capped)", n)
	}
	d.Close()

	d2, err := NewWithConfig(testConfig())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()

	restored := d2.Sessions.Session(ctx, "u1").Engine
	if got := restored.Stats().TotalCompleted; got != 5 {
		t.Errorf("totalCompleted after restart = %d, want 5", got)
	}
	if !restored.Achievement("five_tasks").Unlocked {
		t.Error("five_tasks should survive restart")
	}
	if got := restored.Points(); got != 65 {
		t.Errorf("points after restart = %d, want 65", got)
	}
}

func TestDaemon_ServeStopsOnCancel(t *testing.T) {
	t.Setenv("KINLY_HOME", t.TempDir())
	d, err := NewWithConfig(testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if got := len(d.Health.Statuses()); got != 3 {
		t.Errorf("health statuses = %d, want 3 after startup", got)
	}
	if !d.Health.IsHealthy() {
		t.Errorf("health = %+v, want healthy", d.Health.Statuses())
	}
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestDaemon_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("KINLY_HOME", t.TempDir())
	cfg := testConfig()
	cfg.Engagement.Timezone = "Nowhere/Atlantis"
	if _, err := NewWithConfig(cfg); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
