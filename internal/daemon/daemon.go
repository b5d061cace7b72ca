package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kinly-app/kinly/internal/api"
	"github.com/kinly-app/kinly/internal/app/engagement"
	"github.com/kinly-app/kinly/internal/app/remotesync"
	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/health"
	"github.com/kinly-app/kinly/internal/infra/remote"
	"github.com/kinly-app/kinly/internal/infra/sqlite"
)

// Daemon is the core Kinly runtime. It wires together all services.
type Daemon struct {
	Config       Config
	DB           *sqlite.DB
	Store        domain.RemoteStore
	Notification *engagement.NotificationService
	Sessions     *remotesync.Registry
	Health       *health.Checker
	Server       *api.Server

	cancel  context.CancelFunc
	logFile *os.File
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, _ := cfg.Location()

	d := &Daemon{Config: cfg}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(io.MultiWriter(os.Stderr, f))
		d.logFile = f
	}

	// Open SQLite
	db, err := sqlite.Open(kinlyHome())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	d.DB = db

	// Sessions sync to the local document table unless pointed elsewhere.
	d.Store = sqlite.NewDocStore(db)
	if cfg.Sync.RemoteURL != "" {
		d.Store = remote.New(cfg.Sync.RemoteURL, remote.WithPollInterval(cfg.PollInterval()))
		log.Printf("[daemon] syncing to %s", cfg.Sync.RemoteURL)
	}

	d.Notification = engagement.NewNotificationServiceWithPolicy(db, cfg.Policy()).WithClock(time.Now, loc)
	d.Sessions = remotesync.NewRegistry(remotesync.SessionConfig{
		Store:    d.Store,
		Location: loc,
		Debounce: cfg.Debounce(),
	}, d.Notification.ForUser)

	d.Health = health.NewChecker(db, kinlyHome(), d.Store)

	// Initialize API server
	srv := api.NewServer(db, d.Sessions, d.Notification)
	srv.SetHealth(d.Health)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go d.Health.Run(ctx)

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		// Pending stats pushes land before the database closes.
		d.Sessions.CloseAll()
		log.Printf("[daemon] shut down")
	}()

	fmt.Printf("Kinly serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		cancel()
		<-done
		return err
	}
	<-done
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Sessions != nil {
		d.Sessions.CloseAll()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.logFile != nil {
		log.SetOutput(os.Stderr)
		_ = d.logFile.Close()
	}
}
