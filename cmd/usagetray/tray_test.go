package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/janekbaraniewski/usagetray/internal/cache"
	"github.com/janekbaraniewski/usagetray/internal/core"
	"github.com/janekbaraniewski/usagetray/internal/scheduler"
	"github.com/janekbaraniewski/usagetray/internal/tray"
)

type staticFetcher struct{}

func (staticFetcher) Fetch(_ context.Context, _ core.Period) (core.AggregatedUsage, error) {
	return core.AggregatedUsage{"gpt-5": {Model: "gpt-5", CostUSD: 1.5}}, nil
}

type savedPeriods struct {
	mu      sync.Mutex
	periods []core.Period
}

func (s *savedPeriods) save(p core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods = append(s.periods, p)
	return nil
}

func (s *savedPeriods) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.periods)
}

func (s *savedPeriods) last() core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.periods) == 0 {
		return ""
	}
	return s.periods[len(s.periods)-1]
}

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestTrayProgram_MenuKeysKeepEventLoopRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	usageCache := cache.New(core.PeriodToday)
	sched := scheduler.New(staticFetcher{}, usageCache, scheduler.Options{Logger: logger})

	var (
		saved    savedPeriods
		observed sync.WaitGroup
		once     sync.Once
	)
	observed.Add(1)

	hooks := trayHooks(ctx, sched, saved.save, logger)
	model := tray.NewModel(usageCache.Snapshot(), true, false, hooks)
	program := tea.NewProgram(model,
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)
	bindProgram(sched, program, func(cache.Snapshot) { once.Do(observed.Done) })

	done := make(chan error, 1)
	go func() {
		_, err := program.Run()
		done <- err
	}()

	for _, k := range []string{"r", "1", "2", "3", "4"} {
		program.Send(key(k))
	}

	deadline := time.Now().Add(5 * time.Second)
	for usageCache.Selected() != core.PeriodWeek || saved.last() != core.PeriodWeek {
		if time.Now().After(deadline) {
			t.Fatalf("selected = %q, last saved = %q; the event loop is stuck", usageCache.Selected(), saved.last())
		}
		time.Sleep(10 * time.Millisecond)
	}
	observed.Wait()

	program.Send(key("q"))
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("program.Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("program did not quit")
	}

	cancel()
	sched.Wait()
	if n := saved.count(); n < 1 || n > 3 {
		t.Errorf("saved %d periods, want between 1 and 3", n)
	}
}

func TestTrayHooks_SelectRejectsUnknownPeriod(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	usageCache := cache.New(core.PeriodToday)
	sched := scheduler.New(staticFetcher{}, usageCache, scheduler.Options{Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var saved savedPeriods
	hooks := trayHooks(ctx, sched, saved.save, logger)
	if hooks.Select("month") {
		t.Error("Select(month) = true, want false")
	}
	if saved.count() != 0 {
		t.Error("a rejected period should not be saved")
	}
}

func TestPeriodSelector_KeepsNewest(t *testing.T) {
	sel := newPeriodSelector()
	sel.push(core.PeriodFiveHour)
	sel.push(core.PeriodOneHour)
	sel.push(core.PeriodWeek)

	if got := sel.take(); got != core.PeriodWeek {
		t.Errorf("take() = %q, want week", got)
	}
	if got := sel.take(); got != "" {
		t.Errorf("second take() = %q, want empty", got)
	}
}
