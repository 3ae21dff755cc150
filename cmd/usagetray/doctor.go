package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/usagetray/internal/config"
	"github.com/janekbaraniewski/usagetray/internal/detect"
	"github.com/janekbaraniewski/usagetray/internal/settings"
	"github.com/janekbaraniewski/usagetray/internal/tray"
)

func newDoctorCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ccusage can be invoked and print resolved paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			report := detect.Detect(cmd.Context(), cfg.Tool.Strategies, cfg.Tool.MinVersion, detect.Options{})

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STRATEGY\tPATH\tVERSION\tSTATUS")
			for _, p := range report.Probes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					strategyName(p),
					orDash(p.BinaryPath),
					orDash(p.Version),
					probeStatus(p, report.MinVersion),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "config   %s\n", config.ConfigPath())
			fmt.Fprintf(out, "settings %s\n", settings.Path())
			if path, err := historyPath(cfg); err == nil {
				fmt.Fprintf(out, "history  %s (enabled=%t)\n", path, cfg.History.Enabled)
			}
			fmt.Fprintf(out, "refresh  every %s, fetch timeout %s\n", cfg.RefreshInterval(), timeoutLabel(cfg))

			if usable, ok := report.Usable(); ok {
				fmt.Fprintf(out, "\nccusage will run via %s\n", strategyName(usable))
				return nil
			}
			return fmt.Errorf("no working ccusage strategy; install ccusage CLI: %s", tray.InstallURL)
		},
	}
}

func strategyName(p detect.Probe) string {
	if p.Strategy.Name != "" {
		return p.Strategy.Name
	}
	return p.Strategy.Command
}

func probeStatus(p detect.Probe, minVersion string) string {
	switch {
	case !p.Found():
		return "not installed"
	case p.Err != "":
		return "error: " + p.Err
	case p.Version == "":
		return "ok (version unknown)"
	case !p.Compatible:
		return "too old (need " + minVersion + ")"
	default:
		return "ok"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func timeoutLabel(cfg config.Config) string {
	if cfg.FetchTimeout() == 0 {
		return "none"
	}
	return cfg.FetchTimeout().String()
}
