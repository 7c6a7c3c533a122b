package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8787" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.RingCapacity != 100 {
		t.Fatalf("RingCapacity = %d", cfg.RingCapacity)
	}
	if cfg.Debounce != time.Second {
		t.Fatalf("Debounce = %s", cfg.Debounce)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "addr: \"0.0.0.0:9000\"\nring_capacity: 250\ndebounce: 250ms\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.RingCapacity != 250 {
		t.Fatalf("RingCapacity = %d", cfg.RingCapacity)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Fatalf("Debounce = %s", cfg.Debounce)
	}
	// Unset fields keep their defaults.
	if cfg.ContractsFile != "contracts.json" {
		t.Fatalf("ContractsFile = %q", cfg.ContractsFile)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != Default().Addr {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \"0.0.0.0:9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AGENTBRIDGE_ADDR", "127.0.0.1:7777")
	t.Setenv("AGENTBRIDGE_RING_CAPACITY", "50")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7777" {
		t.Fatalf("Addr = %q, env should win over the file", cfg.Addr)
	}
	if cfg.RingCapacity != 50 {
		t.Fatalf("RingCapacity = %d", cfg.RingCapacity)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"zero ring", func(c *Config) { c.RingCapacity = 0 }},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Second }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/var/lib/ab"
	if got := cfg.ContractsPath(); got != "/var/lib/ab/contracts.json" {
		t.Fatalf("ContractsPath = %q", got)
	}
	if got := cfg.JournalPath(); got != "/var/lib/ab/journal.db" {
		t.Fatalf("JournalPath = %q", got)
	}

	cfg.JournalFile = ""
	if got := cfg.JournalPath(); got != "" {
		t.Fatalf("JournalPath with journaling disabled = %q", got)
	}

	cfg.ContractsFile = "/tmp/elsewhere.json"
	if got := cfg.ContractsPath(); got != "/tmp/elsewhere.json" {
		t.Fatalf("absolute ContractsPath = %q", got)
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Fatalf("SlogLevel = %v", cfg.SlogLevel())
	}
}
