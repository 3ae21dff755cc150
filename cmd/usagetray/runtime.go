package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/janekbaraniewski/usagetray/internal/ccusage"
	"github.com/janekbaraniewski/usagetray/internal/config"
	"github.com/janekbaraniewski/usagetray/internal/history"
	"github.com/janekbaraniewski/usagetray/internal/logging"
)

// newLogger builds the process logger. console is nil while the tray owns
// the terminal, in which case debug output goes to a file in the state dir.
func newLogger(cfg config.Config, console io.Writer) (*slog.Logger, io.Closer) {
	debug := logging.DebugEnabled()
	logCfg := cfg.Log
	if debug && console == nil && strings.TrimSpace(logCfg.Dir) == "" {
		if stateDir, err := history.DefaultStateDir(); err == nil {
			logCfg.Dir = filepath.Join(stateDir, "logs")
		}
	}

	logger, closer, err := logging.New(logCfg, logging.Options{Console: console, Debug: debug})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nopCloser{}
	}
	slog.SetDefault(logger)
	return logger, closer
}

func newClient(cfg config.Config, logger *slog.Logger) *ccusage.Client {
	return ccusage.NewClient(
		ccusage.WithStrategies(cfg.Tool.Strategies),
		ccusage.WithOptions(cfg.ToolOptions()),
		ccusage.WithLogger(logger),
	)
}

func historyPath(cfg config.Config) (string, error) {
	if p := strings.TrimSpace(cfg.History.Path); p != "" {
		return p, nil
	}
	return history.DefaultDBPath()
}

func openHistory(cfg config.Config) (*history.Store, error) {
	path, err := historyPath(cfg)
	if err != nil {
		return nil, err
	}
	return history.OpenStore(path)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
