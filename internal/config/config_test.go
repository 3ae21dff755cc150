package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RefreshIntervalSeconds != 120 {
		t.Errorf("default refresh = %d, want 120", cfg.RefreshIntervalSeconds)
	}
	if cfg.FetchTimeout() != 0 {
		t.Errorf("default fetch timeout = %v, want none", cfg.FetchTimeout())
	}
	if cfg.DefaultPeriod != core.PeriodToday {
		t.Errorf("default period = %q, want today", cfg.DefaultPeriod)
	}
	if len(cfg.Tool.Strategies) != 3 || cfg.Tool.Strategies[0].Command != "ccusage" {
		t.Errorf("default strategies = %+v", cfg.Tool.Strategies)
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RefreshIntervalSeconds != 120 {
		t.Error("should return defaults for missing file")
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
  "refresh_interval_seconds": 60,
  "fetch_timeout_seconds": 30,
  "default_period": "5hrs",
  "tool": {
    "strategies": [
      {"name": "local", "command": "/opt/bin/ccusage"},
      {"name": "blank", "command": "  "}
    ],
    "session_active_only": true
  },
  "history": {"enabled": false}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.RefreshInterval() != time.Minute {
		t.Errorf("refresh = %v, want 1m", cfg.RefreshInterval())
	}
	if cfg.FetchTimeout() != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.FetchTimeout())
	}
	if cfg.DefaultPeriod != core.PeriodFiveHour {
		t.Errorf("period = %q, want 5h", cfg.DefaultPeriod)
	}
	if len(cfg.Tool.Strategies) != 1 || cfg.Tool.Strategies[0].Command != "/opt/bin/ccusage" {
		t.Errorf("strategies = %+v, want only the local one", cfg.Tool.Strategies)
	}
	if !cfg.ToolOptions().ActiveOnly {
		t.Error("session_active_only not applied")
	}
	if cfg.History.Enabled {
		t.Error("history should be disabled")
	}
	if cfg.Tool.MinVersion != defaultMinVersion {
		t.Errorf("min version = %q, want default", cfg.Tool.MinVersion)
	}
}

func TestLoadFrom_InvalidValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"refresh_interval_seconds": -5, "fetch_timeout_seconds": -1, "default_period": "month", "tool": {"strategies": []}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.RefreshIntervalSeconds != 120 {
		t.Errorf("refresh = %d, want default", cfg.RefreshIntervalSeconds)
	}
	if cfg.FetchTimeoutSeconds != 0 {
		t.Errorf("timeout = %d, want 0", cfg.FetchTimeoutSeconds)
	}
	if cfg.DefaultPeriod != core.PeriodToday {
		t.Errorf("period = %q, want today", cfg.DefaultPeriod)
	}
	if len(cfg.Tool.Strategies) != 3 {
		t.Errorf("strategies = %d, want defaults", len(cfg.Tool.Strategies))
	}
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if cfg.RefreshIntervalSeconds != 120 {
		t.Error("should return defaults on parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("USAGETRAY_REFRESH_INTERVAL", "5m")
	t.Setenv("USAGETRAY_FETCH_TIMEOUT", "45")
	t.Setenv("USAGETRAY_CCUSAGE", "npx -y ccusage@16")
	t.Setenv("USAGETRAY_HISTORY_PATH", "/tmp/usage.db")

	cfg := ApplyEnv(DefaultConfig())

	if cfg.RefreshIntervalSeconds != 300 {
		t.Errorf("refresh = %d, want 300", cfg.RefreshIntervalSeconds)
	}
	if cfg.FetchTimeoutSeconds != 45 {
		t.Errorf("timeout = %d, want 45", cfg.FetchTimeoutSeconds)
	}
	if len(cfg.Tool.Strategies) != 1 {
		t.Fatalf("strategies = %+v", cfg.Tool.Strategies)
	}
	s := cfg.Tool.Strategies[0]
	if s.Command != "npx" || len(s.Args) != 2 || s.Args[1] != "ccusage@16" {
		t.Errorf("strategy = %+v", s)
	}
	if cfg.History.Path != "/tmp/usage.db" {
		t.Errorf("history path = %q", cfg.History.Path)
	}
}

func TestApplyEnv_IgnoresGarbage(t *testing.T) {
	t.Setenv("USAGETRAY_REFRESH_INTERVAL", "soon")
	t.Setenv("USAGETRAY_FETCH_TIMEOUT", "")

	cfg := ApplyEnv(DefaultConfig())
	if cfg.RefreshIntervalSeconds != 120 || cfg.FetchTimeoutSeconds != 0 {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestSaveDefaultPeriodTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	if err := SaveDefaultPeriodTo(path, core.PeriodWeek); err != nil {
		t.Fatalf("SaveDefaultPeriodTo() error: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.DefaultPeriod != core.PeriodWeek {
		t.Errorf("period = %q, want week", cfg.DefaultPeriod)
	}
	if cfg.RefreshIntervalSeconds != 120 {
		t.Error("other fields should keep defaults")
	}

	if err := SaveDefaultPeriodTo(path, "month"); err == nil {
		t.Error("expected error for invalid period")
	}
}
