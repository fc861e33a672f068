// Package config loads esgate configuration from an optional TOML file and
// ESGATE_* environment variables, in that order of precedence (env wins)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aneshas/esgate/eventstore"
)

// Duration is a time.Duration read from strings such as "12h"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds esgate settings, the env variable overriding each field is
// noted next to it
type Config struct {
	HTTPAddr     string   `toml:"http_addr"`      // ESGATE_HTTP_ADDR (default ":8080")
	SQLitePath   string   `toml:"sqlite_path"`    // ESGATE_SQLITE_PATH (default "esgate.db")
	PostgresDSN  string   `toml:"postgres_dsn"`   // ESGATE_POSTGRES_DSN (optional, takes precedence over sqlite)
	NATSURL      string   `toml:"nats_url"`       // ESGATE_NATS_URL (optional, empty = no notifications)
	MaxStreamAge Duration `toml:"max_stream_age"` // ESGATE_MAX_STREAM_AGE (default "12h")
	LogLevel     string   `toml:"log_level"`      // ESGATE_LOG_LEVEL (default "info")
	LogFormat    string   `toml:"log_format"`     // ESGATE_LOG_FORMAT ("text" or "json", default "text")
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		HTTPAddr:     ":8080",
		SQLitePath:   "esgate.db",
		MaxStreamAge: Duration{12 * time.Hour},
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads the TOML file at path (skipped when path is empty) on top of
// the defaults and applies environment overrides
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	c.HTTPAddr = envOrDefault("ESGATE_HTTP_ADDR", c.HTTPAddr)
	c.SQLitePath = envOrDefault("ESGATE_SQLITE_PATH", c.SQLitePath)
	c.PostgresDSN = envOrDefault("ESGATE_POSTGRES_DSN", c.PostgresDSN)
	c.NATSURL = envOrDefault("ESGATE_NATS_URL", c.NATSURL)
	c.LogLevel = envOrDefault("ESGATE_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("ESGATE_LOG_FORMAT", c.LogFormat)

	if v := os.Getenv("ESGATE_MAX_STREAM_AGE"); v != "" {
		if err := c.MaxStreamAge.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("ESGATE_MAX_STREAM_AGE: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.PostgresDSN == "" && c.SQLitePath == "" {
		return fmt.Errorf("either postgres_dsn or sqlite_path is required")
	}
	if c.MaxStreamAge.Duration <= 0 {
		return fmt.Errorf("max_stream_age must be positive, got %s", c.MaxStreamAge)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// StoreOptions selects the event store backend, postgres when a DSN is set
func (c *Config) StoreOptions() []eventstore.Option {
	if c.PostgresDSN != "" {
		return []eventstore.Option{eventstore.WithPostgresDB(c.PostgresDSN)}
	}
	return []eventstore.Option{eventstore.WithSQLiteDB(c.SQLitePath)}
}

// Level parses LogLevel
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
