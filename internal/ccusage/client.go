package ccusage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

const maxLoggedPayload = 2048

// Client fetches normalized usage for a period from the ccusage CLI.
type Client struct {
	runner     Runner
	strategies []Strategy
	opts       Options
	now        func() time.Time
	logger     *slog.Logger
}

type ClientOption func(*Client)

func WithRunner(r Runner) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.runner = r
		}
	}
}

func WithStrategies(strategies []Strategy) ClientOption {
	return func(c *Client) {
		if len(strategies) > 0 {
			c.strategies = slices.Clone(strategies)
		}
	}
}

func WithOptions(opts Options) ClientOption {
	return func(c *Client) { c.opts = opts }
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		runner:     ExecRunner{},
		strategies: DefaultStrategies(),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Fetch invokes ccusage for the period and returns its normalized usage. A
// successful call with no recorded usage yields an empty, non-nil aggregation.
func (c *Client) Fetch(ctx context.Context, period core.Period) (core.AggregatedUsage, error) {
	args := Args(period, c.now(), c.opts)

	out, err := c.invoke(ctx, args)
	if err != nil {
		return nil, err
	}

	resp, err := Parse(out.Stdout)
	if err != nil {
		c.logger.Warn("ccusage: unrecognized response",
			slog.String("period", string(period)),
			slog.String("payload", truncate(string(out.Stdout), maxLoggedPayload)),
		)
		return nil, err
	}

	c.logger.Debug("ccusage: fetched",
		slog.String("period", string(period)),
		slog.String("schema", string(resp.Schema)),
		slog.Int("buckets", len(resp.Buckets)),
	)
	return Select(period, resp), nil
}

// invoke tries each strategy in order and returns the first zero exit. When
// all fail it reports the first strategy that ran, or an invocation error if
// none could start.
func (c *Client) invoke(ctx context.Context, args []string) (Output, error) {
	if len(c.strategies) == 0 {
		return Output{}, &InvocationError{Err: errors.New("no invocation strategies configured")}
	}

	var (
		execErr   *ExecutionError
		startErrs []error
	)
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Output{}, &InvocationError{Err: err}
		}

		fullArgs := append(slices.Clone(s.Args), args...)
		out, err := c.runner.Run(ctx, s.Command, fullArgs)
		if err != nil {
			c.logger.Debug("ccusage: strategy unavailable", slog.String("strategy", s.label()), slog.Any("error", err))
			startErrs = append(startErrs, fmt.Errorf("%s: %w", s.label(), err))
			continue
		}
		if out.ExitCode != 0 {
			c.logger.Debug("ccusage: strategy failed", slog.String("strategy", s.label()), slog.Int("exit_code", out.ExitCode))
			if execErr == nil {
				execErr = &ExecutionError{Strategy: s.label(), ExitCode: out.ExitCode, Stderr: string(out.Stderr)}
			}
			continue
		}
		return out, nil
	}

	if execErr != nil {
		return Output{}, execErr
	}
	return Output{}, &InvocationError{Err: errors.Join(startErrs...)}
}

// Select reduces a response to the usage shown for period: the first day for
// today, every day for the week, and the first block for session periods.
// Gap blocks, the idle spans ccusage inserts between sessions, are skipped,
// so a session period shows the first block that has real usage.
func Select(period core.Period, resp Response) core.AggregatedUsage {
	switch {
	case period == core.PeriodWeek:
		return core.Aggregate(resp.Buckets)
	case period.IsSession():
		for _, bucket := range resp.Buckets {
			if bucket.Gap {
				continue
			}
			return core.Merge(sessionBreakdowns(bucket)...)
		}
		return core.AggregatedUsage{}
	default:
		if len(resp.Buckets) == 0 {
			return core.AggregatedUsage{}
		}
		return core.Merge(resp.Buckets[0].Breakdowns...)
	}
}

func sessionBreakdowns(bucket core.Bucket) []core.ModelBreakdown {
	if len(bucket.Breakdowns) > 0 {
		return bucket.Breakdowns
	}
	return core.EstimateBreakdowns(bucket)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
