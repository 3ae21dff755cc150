package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/usagetray/internal/config"
	"github.com/janekbaraniewski/usagetray/internal/core"
)

func newHistoryCommand(cfg config.Config) *cobra.Command {
	var (
		days       int
		limit      int
		periodFlag string
		chart      bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded usage from the local history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var period core.Period
			if periodFlag != "" {
				p, err := core.ParsePeriod(periodFlag)
				if err != nil {
					return err
				}
				period = p
			}

			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if chart {
				series, err := store.DailyCosts(ctx, days)
				if err != nil {
					return err
				}
				data := make([]float64, len(series))
				for i, p := range series {
					data[i] = p.CostUSD
				}
				caption := fmt.Sprintf("daily cost (USD) %s .. %s", series[0].Date, series[len(series)-1].Date)
				fmt.Fprintln(out, asciigraph.Plot(data,
					asciigraph.Height(10),
					asciigraph.Width(max(len(data)*3, 30)),
					asciigraph.Caption(caption),
				))
				return nil
			}

			entries, err := store.Recent(ctx, period, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RECORDED\tPERIOD\tCOST\tTOKENS\tMODELS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					e.RecordedAt.Local().Format(time.DateTime),
					e.Period.Label(),
					core.FormatCost(e.TotalCostUSD),
					core.FormatTokens(e.TotalTokens),
					e.Models,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "days covered by --chart")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of snapshots to list")
	cmd.Flags().StringVarP(&periodFlag, "period", "p", "", "only list snapshots of this period")
	cmd.Flags().BoolVar(&chart, "chart", false, "plot the daily cost of the today period")
	return cmd
}
