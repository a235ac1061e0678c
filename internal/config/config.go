package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultWeekStart   = "monday"
	defaultDriver      = "sqlite3"
	defaultDSN         = "./var/dayplan.db"
	defaultOwner       = "local"
	defaultRefreshCron = "*/15 * * * *"
	defaultLogLevel    = "info"
	defaultICSCacheDir = "./var/ics-cache"
	defaultCapturePath = "./var/calendar.png"
)

// DatabaseConfig selects the SQL driver backing the entry store.
type DatabaseConfig struct {
	// Driver is "sqlite3" (default) or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// DSN is a file path for sqlite3 or a connection string for postgres.
	DSN string `yaml:"dsn" json:"dsn"`
}

// FeedConfig describes a remote ICS feed imported into an owner's entries
// on every refresh.
type FeedConfig struct {
	ID    string `yaml:"id" json:"id"`
	URL   string `yaml:"url" json:"url"`
	Owner string `yaml:"owner" json:"owner"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and calendar page.
	Listen string `yaml:"listen" json:"listen"`

	// WeekStart controls which weekday starts a calendar week:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Owner is the default owner used by the CLI and by API requests that
	// omit ?owner=.
	Owner string `yaml:"owner" json:"owner"`

	Database DatabaseConfig `yaml:"database" json:"database"`

	// RefreshCron is the cron schedule on which cached snapshots are dropped
	// and feeds re-imported.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// ICSCacheDir stores ETag/Last-Modified metadata and bodies of feeds.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// CapturePath is where `dayplan capture` writes the PNG by default.
	CapturePath string `yaml:"capture_path" json:"capture_path"`

	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		WeekStart:   defaultWeekStart,
		Owner:       defaultOwner,
		Database:    DatabaseConfig{Driver: defaultDriver, DSN: defaultDSN},
		RefreshCron: defaultRefreshCron,
		LogLevel:    defaultLogLevel,
		ICSCacheDir: defaultICSCacheDir,
		CapturePath: defaultCapturePath,
		Feeds:       []FeedConfig{},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if c.Owner == "" {
		c.Owner = defaultOwner
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	case "sqlite":
		c.Database.Driver = "sqlite3"
	default:
		c.Database.Driver = defaultDriver
	}
	if c.Database.DSN == "" {
		c.Database.DSN = defaultDSN
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = defaultICSCacheDir
	}
	if c.CapturePath == "" {
		c.CapturePath = defaultCapturePath
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].Owner == "" {
			c.Feeds[i].Owner = c.Owner
		}
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = c.Feeds[i].URL
		}
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// FirstWeekday returns the weekday calendar weeks start on.
func (c *Config) FirstWeekday() time.Weekday {
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
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unwritable config dir is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// ApplyEnv overrides fields from DAYPLAN_* environment variables. If envFile
// exists it is loaded first; variables already set in the process win.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	overrides := map[string]*string{
		"DAYPLAN_LISTEN":     &c.Listen,
		"DAYPLAN_WEEK_START": &c.WeekStart,
		"DAYPLAN_OWNER":      &c.Owner,
		"DAYPLAN_DB_DRIVER":  &c.Database.Driver,
		"DAYPLAN_DB_DSN":     &c.Database.DSN,
		"DAYPLAN_REFRESH":    &c.RefreshCron,
		"DAYPLAN_LOG_LEVEL":  &c.LogLevel,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	c.Normalize()
	return nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dayplan-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
