// Package scheduler refreshes the usage cache on a timer and on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/janekbaraniewski/usagetray/internal/cache"
	"github.com/janekbaraniewski/usagetray/internal/ccusage"
	"github.com/janekbaraniewski/usagetray/internal/core"
)

const DefaultInterval = 120 * time.Second

// Fetcher returns the aggregated usage of one period.
type Fetcher interface {
	Fetch(ctx context.Context, period core.Period) (core.AggregatedUsage, error)
}

// Recorder persists committed usage. It is called only after a successful cycle.
type Recorder interface {
	Record(ctx context.Context, at time.Time, usage map[core.Period]core.AggregatedUsage) error
}

type State int32

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

type Options struct {
	Interval     time.Duration
	FetchTimeout time.Duration // 0 means no bound
	Periods      []core.Period // defaults to core.AllPeriods
	Recorder     Recorder
	OnUpdate     func(cache.Snapshot)
	Logger       *slog.Logger
	Clock        func() time.Time
}

type Scheduler struct {
	fetcher  Fetcher
	cache    *cache.Cache
	periods  []core.Period
	interval time.Duration
	timeout  time.Duration
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	refreshing atomic.Bool
	inflight   sync.WaitGroup

	mu       sync.RWMutex
	onUpdate func(cache.Snapshot)
}

func New(fetcher Fetcher, c *cache.Cache, opts Options) *Scheduler {
	s := &Scheduler{
		fetcher:  fetcher,
		cache:    c,
		periods:  opts.Periods,
		interval: opts.Interval,
		timeout:  opts.FetchTimeout,
		recorder: opts.Recorder,
		onUpdate: opts.OnUpdate,
		logger:   opts.Logger,
		now:      opts.Clock,
	}
	if len(s.periods) == 0 {
		s.periods = core.AllPeriods
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.timeout < 0 {
		s.timeout = 0
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// OnUpdate replaces the callback invoked after every cycle and selection.
func (s *Scheduler) OnUpdate(fn func(cache.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

func (s *Scheduler) State() State {
	if s.refreshing.Load() {
		return StateRefreshing
	}
	return StateIdle
}

// Refresh runs one cycle synchronously. It returns false without doing
// anything when another cycle is in flight.
func (s *Scheduler) Refresh(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Debug("refresh skipped, cycle in flight")
		return false
	}
	defer s.refreshing.Store(false)
	s.cycle(ctx)
	return true
}

// Trigger starts a cycle in the background. A trigger while a cycle is in
// flight is dropped, not queued.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Debug("trigger dropped, cycle in flight")
		return false
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.refreshing.Store(false)
		s.cycle(ctx)
	}()
	return true
}

// Wait blocks until every triggered cycle has finished.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// Select records the period shown by the host and triggers a refresh.
func (s *Scheduler) Select(ctx context.Context, period core.Period) bool {
	if !s.cache.Select(period) {
		return false
	}
	s.publish()
	s.Trigger(ctx)
	return true
}

// Run refreshes once at startup and then on every tick until ctx is done.
// Ticks are skipped until a fetch has succeeded at least once.
func (s *Scheduler) Run(ctx context.Context) {
	s.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler stopping", "reason", ctx.Err())
			s.Wait()
			return
		case <-ticker.C:
			if !s.cache.HasData() {
				continue
			}
			s.Refresh(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := s.now()
	usage, err := s.fetchAll(ctx)
	if err != nil {
		available := s.cache.Snapshot().Available
		if errors.Is(err, ccusage.ErrToolInvocation) && ctx.Err() == nil {
			available = false
		}
		s.cache.Fail(err, available)
		s.logger.Warn("refresh failed", "error", err, "available", available)
		s.publish()
		return
	}

	at := s.now()
	s.cache.Commit(usage, at)
	s.logger.Debug("refresh committed", "periods", len(usage), "took", at.Sub(started))

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, at, usage); err != nil {
			s.logger.Warn("history record failed", "error", err)
		}
	}
	s.publish()
}

// fetchAll returns every configured period or the first failure. A failing
// period does not cancel its siblings; every fetch runs to completion.
func (s *Scheduler) fetchAll(ctx context.Context) (map[core.Period]core.AggregatedUsage, error) {
	results := make([]core.AggregatedUsage, len(s.periods))

	var g errgroup.Group
	for i, period := range s.periods {
		g.Go(func() error {
			usage, err := s.fetcher.Fetch(ctx, period)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", period, err)
			}
			if usage == nil {
				usage = core.AggregatedUsage{}
			}
			results[i] = usage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[core.Period]core.AggregatedUsage, len(s.periods))
	for i, period := range s.periods {
		out[period] = results[i]
	}
	return out, nil
}

func (s *Scheduler) publish() {
	s.mu.RLock()
	fn := s.onUpdate
	s.mu.RUnlock()
	if fn != nil {
		fn(s.cache.Snapshot())
	}
}
