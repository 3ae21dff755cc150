package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/janekbaraniewski/usagetray/internal/ccusage"
	"github.com/janekbaraniewski/usagetray/internal/core"
)

const appName = "usagetray"

const (
	defaultRefreshIntervalSeconds = 120
	defaultMinVersion             = "v15.0.0"
	defaultLogMaxSizeMB           = 5
	defaultLogMaxBackups          = 3
	defaultLogMaxAgeDays          = 14
)

type ToolConfig struct {
	Strategies        []ccusage.Strategy `json:"strategies"`
	SessionActiveOnly bool               `json:"session_active_only"`
	MinVersion        string             `json:"min_version"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LogConfig struct {
	Level      string `json:"level"`
	Dir        string `json:"dir"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

type NotificationConfig struct {
	Enabled bool `json:"enabled"`
}

type Config struct {
	RefreshIntervalSeconds int                `json:"refresh_interval_seconds"`
	FetchTimeoutSeconds    int                `json:"fetch_timeout_seconds"`
	DefaultPeriod          core.Period        `json:"default_period"`
	Tool                   ToolConfig         `json:"tool"`
	History                HistoryConfig      `json:"history"`
	Log                    LogConfig          `json:"log"`
	Notifications          NotificationConfig `json:"notifications"`
}

func DefaultConfig() Config {
	return Config{
		RefreshIntervalSeconds: defaultRefreshIntervalSeconds,
		DefaultPeriod:          core.PeriodToday,
		Tool: ToolConfig{
			Strategies: ccusage.DefaultStrategies(),
			MinVersion: defaultMinVersion,
		},
		History: HistoryConfig{Enabled: true},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
		Notifications: NotificationConfig{Enabled: true},
	}
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// FetchTimeout is zero when refresh cycles are unbounded.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c Config) ToolOptions() ccusage.Options {
	return ccusage.Options{ActiveOnly: c.Tool.SessionActiveOnly}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads the config file, then applies .env files and USAGETRAY_*
// environment overrides.
func Load() (Config, error) {
	LoadDotEnv()
	cfg, err := LoadFrom(ConfigPath())
	cfg = ApplyEnv(cfg)
	return cfg, err
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	return normalize(cfg), nil
}

func normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.RefreshIntervalSeconds <= 0 {
		cfg.RefreshIntervalSeconds = def.RefreshIntervalSeconds
	}
	if cfg.FetchTimeoutSeconds < 0 {
		cfg.FetchTimeoutSeconds = 0
	}
	if p, err := core.ParsePeriod(string(cfg.DefaultPeriod)); err == nil {
		cfg.DefaultPeriod = p
	} else {
		cfg.DefaultPeriod = def.DefaultPeriod
	}

	strategies := cfg.Tool.Strategies[:0:0]
	for _, s := range cfg.Tool.Strategies {
		if strings.TrimSpace(s.Command) == "" {
			continue
		}
		strategies = append(strategies, s)
	}
	if len(strategies) == 0 {
		strategies = def.Tool.Strategies
	}
	cfg.Tool.Strategies = strategies
	if cfg.Tool.MinVersion == "" {
		cfg.Tool.MinVersion = def.Tool.MinVersion
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups < 0 {
		cfg.Log.MaxBackups = def.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays < 0 {
		cfg.Log.MaxAgeDays = def.Log.MaxAgeDays
	}
	return cfg
}

// LoadDotEnv loads the first .env found in the working directory or the
// config dir. Variables already set in the environment win.
func LoadDotEnv() {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	paths = append(paths, filepath.Join(ConfigDir(), ".env"))

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// ApplyEnv overlays USAGETRAY_* variables onto cfg.
func ApplyEnv(cfg Config) Config {
	if d, ok := envDuration("USAGETRAY_REFRESH_INTERVAL"); ok && d >= time.Second {
		cfg.RefreshIntervalSeconds = int(d / time.Second)
	}
	if d, ok := envDuration("USAGETRAY_FETCH_TIMEOUT"); ok && d >= 0 {
		cfg.FetchTimeoutSeconds = int(d / time.Second)
	}
	if v := strings.TrimSpace(os.Getenv("USAGETRAY_CCUSAGE")); v != "" {
		fields := strings.Fields(v)
		cfg.Tool.Strategies = []ccusage.Strategy{{
			Name:    "env",
			Command: fields[0],
			Args:    fields[1:],
		}}
	}
	if v := strings.TrimSpace(os.Getenv("USAGETRAY_HISTORY_PATH")); v != "" {
		cfg.History.Path = v
	}
	return cfg
}

// envDuration accepts Go durations ("90s", "2m") or bare seconds.
func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveDefaultPeriod persists the period the tray opens on (read-modify-write).
func SaveDefaultPeriod(p core.Period) error {
	return SaveDefaultPeriodTo(ConfigPath(), p)
}

func SaveDefaultPeriodTo(path string, p core.Period) error {
	if !p.Valid() {
		return fmt.Errorf("invalid period %q", p)
	}

	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.DefaultPeriod = p
	return SaveTo(path, cfg)
}
