package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"github.com/janekbaraniewski/usagetray/internal/autostart"
	"github.com/janekbaraniewski/usagetray/internal/cache"
	"github.com/janekbaraniewski/usagetray/internal/config"
	"github.com/janekbaraniewski/usagetray/internal/core"
	"github.com/janekbaraniewski/usagetray/internal/notify"
	"github.com/janekbaraniewski/usagetray/internal/scheduler"
	"github.com/janekbaraniewski/usagetray/internal/settings"
	"github.com/janekbaraniewski/usagetray/internal/tray"
)

const historyRetention = 90 * 24 * time.Hour

// runTray runs the menu until it quits. Without a terminal, or with headless
// set, it only keeps the cache, history and notifications up to date.
func runTray(cfg config.Config, headless bool) error {
	logger, closer := newLogger(cfg, nil)
	defer closer.Close()

	if !headless && !term.IsTerminal(os.Stdout.Fd()) {
		logger.Info("no terminal attached, running headless")
		headless = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	usageCache := cache.New(cfg.DefaultPeriod)
	opts := scheduler.Options{
		Interval:     cfg.RefreshInterval(),
		FetchTimeout: cfg.FetchTimeout(),
		Logger:       logger,
	}

	if cfg.History.Enabled {
		store, err := openHistory(cfg)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			defer store.Close()
			if n, err := store.Prune(ctx, historyRetention); err != nil {
				logger.Warn("history prune failed", "error", err)
			} else if n > 0 {
				logger.Debug("history pruned", "snapshots", n)
			}
			opts.Recorder = store
		}
	}

	sched := scheduler.New(newClient(cfg, logger), usageCache, opts)
	observe := outageObserver(cfg, logger)

	if headless {
		sched.OnUpdate(observe)
		sched.Run(ctx)
		return nil
	}

	prefs, err := settings.Load()
	if err != nil {
		logger.Warn("settings load failed, using defaults", "error", err)
	}

	hooks := trayHooks(ctx, sched, config.SaveDefaultPeriod, logger)
	hooks.ToggleCost = settings.ToggleCostIndicator

	autostartEnabled := false
	if manager, err := autostart.NewManager(); err == nil && manager.IsSupported() {
		autostartEnabled = manager.IsEnabled()
		hooks.ToggleAutostart = manager.Toggle
	}

	model := tray.NewModel(usageCache.Snapshot(), prefs.ShowCostIndicator, autostartEnabled, hooks)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bindProgram(sched, program, observe)

	if w, err := settings.Watch(settings.Path(), func(s settings.Settings) {
		program.Send(tray.SettingsMsg(s))
	}); err != nil {
		logger.Debug("settings watcher disabled", "error", err)
	} else {
		defer w.Close()
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(runCtx)
	}()

	_, runErr := program.Run()
	cancel()
	<-done

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("tray: %w", runErr)
	}
	return nil
}

// trayHooks connects the menu keys to the scheduler. Selections are applied
// on a separate goroutine, newest first, and saved as the default period for
// the next start.
func trayHooks(ctx context.Context, sched *scheduler.Scheduler, savePeriod func(core.Period) error, logger *slog.Logger) tray.Hooks {
	sel := newPeriodSelector()
	go sel.run(ctx, func(p core.Period) {
		if !sched.Select(ctx, p) {
			return
		}
		if savePeriod != nil {
			if err := savePeriod(p); err != nil {
				logger.Warn("saving selected period failed", "error", err)
			}
		}
	})

	return tray.Hooks{
		Refresh: func() bool { return sched.Trigger(ctx) },
		Select: func(p core.Period) bool {
			if !p.Valid() {
				return false
			}
			sel.push(p)
			return true
		},
	}
}

// periodSelector hands the latest menu selection to a worker. Pushes never
// block; selections made while the worker is busy collapse into the newest.
type periodSelector struct {
	mu      sync.Mutex
	pending core.Period
	wake    chan struct{}
}

func newPeriodSelector() *periodSelector {
	return &periodSelector{wake: make(chan struct{}, 1)}
}

func (s *periodSelector) push(p core.Period) {
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *periodSelector) take() core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = ""
	return p
}

func (s *periodSelector) run(ctx context.Context, apply func(core.Period)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			if p := s.take(); p != "" {
				apply(p)
			}
		}
	}
}

// bindProgram forwards every scheduler update to the program. Updates are
// published from scheduler and selector goroutines, never from Update, so
// Send can wait for the event loop.
func bindProgram(sched *scheduler.Scheduler, program *tea.Program, observe func(cache.Snapshot)) {
	sched.OnUpdate(func(snap cache.Snapshot) {
		program.Send(tray.SnapshotMsg(snap))
		if observe != nil {
			observe(snap)
		}
	})
}

func outageObserver(cfg config.Config, logger *slog.Logger) func(cache.Snapshot) {
	if !cfg.Notifications.Enabled {
		return nil
	}
	notifier := notify.New(nil)
	return func(snap cache.Snapshot) {
		if err := notifier.Observe(snap); err != nil {
			logger.Debug("notification failed", "error", err)
		}
	}
}
