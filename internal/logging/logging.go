// Package logging builds the process slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/janekbaraniewski/usagetray/internal/config"
)

const (
	defaultLogFileName = "usagetray.log"
	DebugEnv           = "USAGETRAY_DEBUG"
)

type Options struct {
	// Console receives colored output when debugging. Nil disables it,
	// which the tray uses while it owns the terminal.
	Console io.Writer
	Debug   bool
}

// DebugEnabled reports whether USAGETRAY_DEBUG is set to a non-empty value.
func DebugEnabled() bool {
	return strings.TrimSpace(os.Getenv(DebugEnv)) != ""
}

// New returns a logger writing to the console when debugging and to a
// rotated file when cfg.Dir is set. With neither, output is discarded.
// The returned closer releases the log file.
func New(cfg config.LogConfig, opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(cfg.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if opts.Debug && opts.Console != nil {
		writers = append(writers, opts.Console)
	}

	logDir := strings.TrimSpace(cfg.Dir)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, defaultLogFileName),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, file)
		closer = file
	}

	if len(writers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closer, nil
	}

	noColor := logDir != "" || opts.Console == nil
	logger := slog.New(tint.NewHandler(io.MultiWriter(writers...), &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		AddSource:  opts.Debug,
		NoColor:    noColor,
	}))
	return logger, closer, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
