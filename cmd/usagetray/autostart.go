package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/usagetray/internal/autostart"
)

func newAutostartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage launch at login",
		Long:  "Register or remove usagetray as a launchd LaunchAgent (macOS) or systemd user unit (Linux).",
	}

	cmd.AddCommand(newAutostartStatusCommand())
	cmd.AddCommand(newAutostartActionCommand("enable", "Launch usagetray at login", autostart.Manager.Enable))
	cmd.AddCommand(newAutostartActionCommand("disable", "Stop launching usagetray at login", autostart.Manager.Disable))
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip launch at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := supportedManager()
			if err != nil {
				return err
			}
			enabled, err := manager.Toggle()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "launch at login enabled=%t\n", enabled)
			return nil
		},
	})
	return cmd
}

func newAutostartStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether launch at login is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := autostart.NewManager()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "autostart kind=%s supported=%t enabled=%t\n", manager.Kind, manager.IsSupported(), manager.IsEnabled())
			if path := manager.UnitPath(); path != "" {
				fmt.Fprintf(out, "autostart unit_path=%s\n", path)
			}
			if hint := manager.StatusHint(); hint != "" {
				fmt.Fprintf(out, "autostart hint=%q\n", hint)
			}
			return nil
		},
	}
}

func newAutostartActionCommand(use, short string, action func(autostart.Manager) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := supportedManager()
			if err != nil {
				return err
			}
			if err := action(manager); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "launch at login enabled=%t\n", manager.IsEnabled())
			return nil
		},
	}
}

func supportedManager() (autostart.Manager, error) {
	manager, err := autostart.NewManager()
	if err != nil {
		return autostart.Manager{}, err
	}
	if !manager.IsSupported() {
		return autostart.Manager{}, fmt.Errorf("launch at login is unsupported on %s", runtime.GOOS)
	}
	return manager, nil
}
