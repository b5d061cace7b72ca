// Package daemon manages the Kinly daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/kinly-app/kinly/internal/domain"
)

// Config holds all daemon configuration. Values come from defaults, then
// $KINLY_HOME/config.toml, then KINLY_* environment variables.
type Config struct {
	API           APIConfig           `toml:"api"`
	Engagement    EngagementConfig    `toml:"engagement"`
	Sync          SyncConfig          `toml:"sync"`
	Notifications NotificationsConfig `toml:"notifications"`
	Telemetry     TelemetryConfig     `toml:"telemetry"`
	Logging       LoggingConfig       `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host" env:"KINLY_API_HOST"`
	Port int    `toml:"port" env:"KINLY_API_PORT"`
}

// EngagementConfig controls the engine.
type EngagementConfig struct {
	// Timezone is an IANA name used for day boundaries. Empty means local time.
	Timezone string `toml:"timezone" env:"KINLY_TIMEZONE"`
}

// SyncConfig controls remote sync.
type SyncConfig struct {
	Debounce     string `toml:"debounce" env:"KINLY_SYNC_DEBOUNCE"`
	PollInterval string `toml:"poll_interval" env:"KINLY_SYNC_POLL_INTERVAL"`
	// RemoteURL points sessions at another daemon's document API instead
	// of the local database.
	RemoteURL string `toml:"remote_url" env:"KINLY_REMOTE_URL"`
}

// NotificationsConfig controls the notification policy.
type NotificationsConfig struct {
	MaxPerDay  int    `toml:"max_per_day" env:"KINLY_NOTIFY_MAX_PER_DAY"`
	QuietStart string `toml:"quiet_start" env:"KINLY_NOTIFY_QUIET_START"`
	QuietEnd   string `toml:"quiet_end" env:"KINLY_NOTIFY_QUIET_END"`
}

// TelemetryConfig controls observability.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus" env:"KINLY_PROMETHEUS"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// File receives a copy of the log output when set.
	File string `toml:"file" env:"KINLY_LOG_FILE"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	policy := domain.DefaultNotificationPolicy()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 11450,
		},
		Sync: SyncConfig{
			Debounce:     "3s",
			PollInterval: "5s",
		},
		Notifications: NotificationsConfig{
			MaxPerDay:  policy.MaxPerDay,
			QuietStart: policy.QuietStart,
			QuietEnd:   policy.QuietEnd,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $KINLY_HOME/config.toml, falling back to
// defaults, then applies environment overrides.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(filepath.Join(kinlyHome(), "config.toml"))
}

// LoadConfigFrom is LoadConfig with an explicit file path.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to $KINLY_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(kinlyHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Validate checks every field that is parsed lazily.
func (c Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := parseDuration("sync.debounce", c.Sync.Debounce); err != nil {
		return err
	}
	if _, err := parseDuration("sync.poll_interval", c.Sync.PollInterval); err != nil {
		return err
	}
	if c.Notifications.MaxPerDay < 0 {
		return fmt.Errorf("notifications.max_per_day must be >= 0")
	}
	for name, v := range map[string]string{
		"notifications.quiet_start": c.Notifications.QuietStart,
		"notifications.quiet_end":   c.Notifications.QuietEnd,
	} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("%s %q: want HH:MM", name, v)
		}
	}
	return nil
}

// Location returns the configured time zone for day boundaries.
func (c Config) Location() (*time.Location, error) {
	if c.Engagement.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Engagement.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engagement.timezone: %w", err)
	}
	return loc, nil
}

// Debounce returns the stats push window.
func (c Config) Debounce() time.Duration {
	d, _ := parseDuration("sync.debounce", c.Sync.Debounce)
	return d
}

// PollInterval returns the remote change polling interval.
func (c Config) PollInterval() time.Duration {
	d, _ := parseDuration("sync.poll_interval", c.Sync.PollInterval)
	return d
}

// Policy returns the notification policy.
func (c Config) Policy() domain.NotificationPolicy {
	return domain.NotificationPolicy{
		MaxPerDay:  c.Notifications.MaxPerDay,
		QuietStart: c.Notifications.QuietStart,
		QuietEnd:   c.Notifications.QuietEnd,
	}
}

// parseDuration parses a duration string. Empty means zero, which callers
// treat as "use the default".
func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s %q: invalid duration", name, s)
	}
	return d, nil
}

// kinlyHome returns the Kinly data directory.
func kinlyHome() string {
	if env := os.Getenv("KINLY_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".kinly")
}

// KinlyHome is exported for use by other packages.
func KinlyHome() string {
	return kinlyHome()
}
