package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/usagetray/internal/ccusage"
	"github.com/janekbaraniewski/usagetray/internal/config"
	"github.com/janekbaraniewski/usagetray/internal/core"
	"github.com/janekbaraniewski/usagetray/internal/tray"
)

type statusReport struct {
	Period    core.Period           `json:"period"`
	Title     string                `json:"title"`
	TotalCost float64               `json:"total_cost_usd"`
	Models    []core.ModelBreakdown `json:"models"`
	FetchedAt time.Time             `json:"fetched_at"`
}

func newStatusCommand(cfg config.Config) *cobra.Command {
	var (
		periodFlag string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch usage once and print the menu contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period := cfg.DefaultPeriod
			if periodFlag != "" {
				p, err := core.ParsePeriod(periodFlag)
				if err != nil {
					return err
				}
				period = p
			}

			logger, closer := newLogger(cfg, os.Stderr)
			defer closer.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout := cfg.FetchTimeout(); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			usage, err := newClient(cfg, logger).Fetch(ctx, period)
			if err != nil {
				if errors.Is(err, ccusage.ErrToolInvocation) {
					return fmt.Errorf("%w\nInstall ccusage CLI: %s", err, tray.InstallURL)
				}
				return err
			}

			report := statusReport{
				Period:    period,
				Title:     core.Title(usage, true),
				TotalCost: usage.TotalCost(),
				Models:    usage.Sorted(),
				FetchedAt: time.Now(),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printStatus(cmd.OutOrStdout(), report, usage)
			return nil
		},
	}

	cmd.Flags().StringVarP(&periodFlag, "period", "p", "", "period to show: today, 5h, 1h or week")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the aggregated usage as JSON")
	return cmd
}

func printStatus(out io.Writer, report statusReport, usage core.AggregatedUsage) {
	fmt.Fprintf(out, "CCUsage - %s  %s\n", report.Period.Label(), report.Title)

	lines := core.MenuLines(usage)
	if len(lines) == 0 {
		fmt.Fprintln(out, "No usage data available")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\t%s\n", l.Label, l.Detail)
	}
	w.Flush()
}
