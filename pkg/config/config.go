// Package config loads bridge configuration from defaults, an optional
// YAML file, and AGENTBRIDGE_-prefixed environment variables, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings for the bridge server.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `yaml:"addr" env:"ADDR"`

	// DataDir holds the contract snapshot and the event journal.
	// Relative file settings below are resolved against it.
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`

	// ContractsFile is the JSON snapshot the contract store persists to.
	ContractsFile string `yaml:"contracts_file" env:"CONTRACTS_FILE"`

	// JournalFile is the SQLite event journal. Empty disables journaling.
	JournalFile string `yaml:"journal_file" env:"JOURNAL_FILE"`

	// RingCapacity bounds the replay buffer handed to new subscribers.
	RingCapacity int `yaml:"ring_capacity" env:"RING_CAPACITY"`

	// Debounce is the delay between a contract mutation and the
	// snapshot write that persists it.
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:          "127.0.0.1:8787",
		DataDir:       ".agentbridge",
		ContractsFile: "contracts.json",
		JournalFile:   "journal.db",
		RingCapacity:  100,
		Debounce:      time.Second,
		LogLevel:      "info",
	}
}

// Load builds the effective configuration. A missing file at path is
// not an error; an empty path skips the file layer entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "AGENTBRIDGE_"}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.RingCapacity <= 0 {
		return fmt.Errorf("ring_capacity must be positive, got %d", c.RingCapacity)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// ContractsPath resolves the snapshot file against DataDir.
func (c Config) ContractsPath() string {
	return c.resolve(c.ContractsFile)
}

// JournalPath resolves the journal file against DataDir. Empty means
// journaling is disabled.
func (c Config) JournalPath() string {
	if c.JournalFile == "" {
		return ""
	}
	return c.resolve(c.JournalFile)
}

func (c Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
