// Package config defines process configuration and its loading order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Storage backend names accepted in Config.Storage
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config contains process configuration
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080"
	Addr string `koanf:"addr"`

	// Storage selects the backend: memory, redis, or sqlite
	Storage string `koanf:"storage"`

	// RedisURL is the redis connection URL when Storage is redis
	RedisURL string `koanf:"redis_url"`

	// RaceTTLMinutes bounds how long finished races stay in redis
	RaceTTLMinutes int `koanf:"race_ttl_minutes"`

	// SQLitePath is the database file path when Storage is sqlite
	SQLitePath string `koanf:"sqlite_path"`

	// CountdownSeconds is how long the pre-race countdown runs
	CountdownSeconds int `koanf:"countdown_seconds"`

	// MaxPlayers caps seats per race unless a created race overrides it
	MaxPlayers int `koanf:"max_players"`

	// WordFile is the word list used to build race paragraphs
	WordFile string `koanf:"word_file"`

	// WordCount is the number of words per race paragraph
	WordCount int `koanf:"word_count"`

	// SessionDurationMinutes is how long issued sessions stay valid
	SessionDurationMinutes int `koanf:"session_duration_minutes"`

	// ShutdownTimeoutSeconds bounds graceful shutdown
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		Storage:                StorageMemory,
		RedisURL:               "redis://localhost:6379/0",
		RaceTTLMinutes:         60,
		SQLitePath:             "typerush.db",
		CountdownSeconds:       3,
		MaxPlayers:             5,
		WordFile:               "data/words.txt",
		WordCount:              30,
		SessionDurationMinutes: 240,
		ShutdownTimeoutSeconds: 10,
	}
}

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) if TYPERUSH_CONFIG is set
//  3. env (prefix TYPERUSH_)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("TYPERUSH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// TYPERUSH_LOG_LEVEL -> log_level, matching the koanf struct tags
	envProvider := env.Provider("TYPERUSH_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "typerush_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	switch c.Storage {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.CountdownSeconds < 0 {
		return errors.New("countdown_seconds must not be negative")
	}
	if c.MaxPlayers < 1 {
		return errors.New("max_players must be at least 1")
	}
	if c.WordCount < 1 {
		return errors.New("word_count must be at least 1")
	}
	return nil
}

// SessionDuration returns the session lifetime as a duration
func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationMinutes) * time.Minute
}

// RaceTTL returns the redis race retention window as a duration
func (c *Config) RaceTTL() time.Duration {
	return time.Duration(c.RaceTTLMinutes) * time.Minute
}

// ShutdownTimeout returns the graceful shutdown bound as a duration
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
