package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/usagetray/internal/autostart"
	"github.com/janekbaraniewski/usagetray/internal/config"
	"github.com/janekbaraniewski/usagetray/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}

	var headless bool
	root := cobra.Command{
		Use:     "usagetray",
		Short:   "usagetray shows ccusage token and cost usage in a compact tray menu.",
		Version: version.String(),
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTray(cfg, headless)
		},
		SilenceUsage: true,
	}
	root.Flags().BoolVar(&headless, strings.TrimPrefix(autostart.HeadlessFlag, "--"), false, "refresh history and notifications without the menu")

	root.AddCommand(newStatusCommand(cfg))
	root.AddCommand(newHistoryCommand(cfg))
	root.AddCommand(newAutostartCommand())
	root.AddCommand(newDoctorCommand(cfg))
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
