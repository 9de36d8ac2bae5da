// Package config loads showroom settings from an optional YAML file,
// SHOWROOM_* environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Library  LibraryConfig  `yaml:"library"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	CORS              bool          `yaml:"cors"`
}

type LibraryConfig struct {
	Root         string        `yaml:"root"`
	ScanInterval time.Duration `yaml:"scan_interval"` // 0 disables periodic scans
	Watch        bool          `yaml:"watch"`
	Debounce     time.Duration `yaml:"debounce"`
}

type DatabaseConfig struct {
	Path        string        `yaml:"path"` // empty keeps everything in memory
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	Synchronous string        `yaml:"synchronous"`
	CacheSize   int           `yaml:"cache_size"`
	ReadOnly    bool          `yaml:"read_only"`
}

type CacheConfig struct {
	DetailSize int `yaml:"detail_size"`
}

type AdminConfig struct {
	Username        string        `yaml:"username"`
	PasswordHash    string        `yaml:"password_hash"`
	ScanMinInterval time.Duration `yaml:"scan_min_interval"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   3 * time.Second,
		},
		Library: LibraryConfig{
			Root:         "./shows",
			ScanInterval: 10 * time.Minute,
			Debounce:     2 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "./data/showroom.db",
			BusyTimeout: 5 * time.Second,
			Synchronous: "NORMAL",
			CacheSize:   -2000,
		},
		Cache: CacheConfig{
			DetailSize: 256,
		},
		Admin: AdminConfig{
			Username:        "admin",
			ScanMinInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults and applies environment
// overrides. A missing file is only an error when path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SHOWROOM_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SHOWROOM_ROOT"); v != "" {
		c.Library.Root = v
	}
	if v, ok := os.LookupEnv("SHOWROOM_DB"); ok {
		c.Database.Path = v
	}
	if v := os.Getenv("SHOWROOM_ADMIN_USER"); v != "" {
		c.Admin.Username = v
	}
	if v := os.Getenv("SHOWROOM_ADMIN_PASSWORD_HASH"); v != "" {
		c.Admin.PasswordHash = v
	}
	if v := os.Getenv("SHOWROOM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SHOWROOM_SCAN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SHOWROOM_SCAN_INTERVAL: %w", err)
		}
		c.Library.ScanInterval = d
	}
	if v := os.Getenv("SHOWROOM_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SHOWROOM_WATCH: %w", err)
		}
		c.Library.Watch = b
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if strings.TrimSpace(c.Library.Root) == "" {
		errs = append(errs, errors.New("library.root must not be empty"))
	}
	if c.Library.ScanInterval < 0 {
		errs = append(errs, errors.New("library.scan_interval must not be negative"))
	}
	if c.Library.Debounce < 0 {
		errs = append(errs, errors.New("library.debounce must not be negative"))
	}
	if c.Cache.DetailSize < 0 {
		errs = append(errs, errors.New("cache.detail_size must not be negative"))
	}
	if c.Admin.ScanMinInterval < 0 {
		errs = append(errs, errors.New("admin.scan_min_interval must not be negative"))
	}
	if c.Database.ReadOnly && c.Database.Path == "" {
		errs = append(errs, errors.New("database.read_only requires database.path"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
