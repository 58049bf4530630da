package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used by Normalize and DefaultConfig.
const (
	DefaultAPIBaseURL     = "http://localhost:9000"
	DefaultRequestTimeout = 10 * time.Second
	DefaultTimezone       = "Asia/Seoul"
	DefaultListen         = "127.0.0.1:8080"
	DefaultRefreshCron    = "*/15 * * * *"
	DefaultImportDays     = 90
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the companion server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// File, if set, receives a rotated JSON copy of every log line.
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty" json:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" json:"max_age_days,omitempty"`
}

// Config is the top-level client configuration.
type Config struct {
	// APIBaseURL is the MeetPick backend origin, e.g. "http://localhost:9000".
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// RequestTimeout bounds every single backend call.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// Timezone is the IANA zone in which naive backend timestamps are read
	// and written (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" or "sunday" and drives week ranges.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// SessionFile stores the server-set session cookies between runs.
	SessionFile string `yaml:"session_file" json:"session_file"`

	// Listen is the companion server listen address used by `meetpick sync`.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is the cron schedule of the background refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// ExportPath, if set, receives an ICS export after every refresh.
	ExportPath string `yaml:"export_path,omitempty" json:"export_path,omitempty"`

	// ImportDays limits how far ahead recurring ICS events are expanded.
	ImportDays int `yaml:"import_days" json:"import_days"`

	Log LogConfig `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, protects every companion endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultPath returns $HOME/.config/meetpick/config.yaml, or a relative path
// when the home directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".meetpick", "config.yaml")
	}
	return filepath.Join(dir, "meetpick", "config.yaml")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		APIBaseURL:     DefaultAPIBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		Timezone:       DefaultTimezone,
		WeekStart:      "monday",
		Listen:         DefaultListen,
		RefreshCron:    DefaultRefreshCron,
		ImportDays:     DefaultImportDays,
		Log:            LogConfig{Level: "info"},
	}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(filepath.Dir(DefaultPath()), "session.json")
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.ImportDays <= 0 {
		c.ImportDays = DefaultImportDays
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = "info"
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Weekday returns the configured first day of the week.
func (c *Config) Weekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
//   - In both cases environment overrides are applied last; they are never
//     written back to disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				applyEnv(cfg)
				return cfg, err
			}
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	cfg.Normalize()

	return &cfg, nil
}

// applyEnv overrides file values with MEETPICK_* environment variables.
func applyEnv(c *Config) {
	if v := os.Getenv("MEETPICK_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("MEETPICK_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("MEETPICK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MEETPICK_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("MEETPICK_SESSION_FILE"); v != "" {
		c.SessionFile = v
	}
	c.Normalize()
}

// Save writes the given configuration to the specified path.
//
// The parent directory is created with 0700 and the file is replaced
// atomically via a temp file + rename, ending with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// Save is a convenience method on Config that delegates to Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".meetpick-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
