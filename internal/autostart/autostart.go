// Package autostart registers the tray to launch at login through a launchd
// LaunchAgent on macOS or a systemd user unit on Linux.
package autostart

import (
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

const (
	LaunchdLabel = "com.usagetray.agent"
	SystemdUnit  = "usagetray.service"
	HeadlessFlag = "--headless"
)

// CommandRunner runs a service-manager command and returns its combined output.
type CommandRunner func(name string, args ...string) (string, error)

type Manager struct {
	Kind     string
	exePath  string
	unitPath string
	run      CommandRunner
}

func NewManager() (Manager, error) {
	exePath, err := os.Executable()
	if err != nil {
		return Manager{}, fmt.Errorf("resolve executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolved
	}

	kind := runtime.GOOS
	var unitPath string
	switch kind {
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return Manager{}, fmt.Errorf("resolve home dir: %w", err)
		}
		unitPath = defaultUnitPath(kind, home)
	default:
		kind = "unsupported"
	}
	return newManager(kind, exePath, unitPath, execCommand), nil
}

func newManager(kind, exePath, unitPath string, run CommandRunner) Manager {
	if run == nil {
		run = execCommand
	}
	return Manager{Kind: kind, exePath: exePath, unitPath: unitPath, run: run}
}

func defaultUnitPath(kind, home string) string {
	if kind == "darwin" {
		return filepath.Join(home, "Library", "LaunchAgents", LaunchdLabel+".plist")
	}
	return filepath.Join(home, ".config", "systemd", "user", SystemdUnit)
}

func (m Manager) IsSupported() bool {
	return m.Kind == "darwin" || m.Kind == "linux"
}

func (m Manager) UnitPath() string {
	return m.unitPath
}

func (m Manager) StatusHint() string {
	switch m.Kind {
	case "darwin":
		return "launchctl print gui/$(id -u)/" + LaunchdLabel
	case "linux":
		return "systemctl --user is-enabled " + SystemdUnit
	default:
		return ""
	}
}

// IsEnabled reports whether the login item is registered.
func (m Manager) IsEnabled() bool {
	if strings.TrimSpace(m.unitPath) == "" {
		return false
	}
	_, err := os.Stat(m.unitPath)
	return err == nil
}

// Toggle flips the registration and returns the new state.
func (m Manager) Toggle() (bool, error) {
	if m.IsEnabled() {
		if err := m.Disable(); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := m.Enable(); err != nil {
		return false, err
	}
	return true, nil
}

func (m Manager) Enable() error {
	if builtByGoRun(m.exePath) {
		return fmt.Errorf("%q is a transient executable from go run; install usagetray and enable launch at login from that binary", m.exePath)
	}

	switch m.Kind {
	case "darwin":
		return m.writeUnit(launchdPlist(m.exePath))
	case "linux":
		if err := m.writeUnit(systemdUnit(m.exePath)); err != nil {
			return err
		}
		if _, err := m.run("systemctl", "--user", "daemon-reload"); err != nil {
			return err
		}
		if _, err := m.run("systemctl", "--user", "enable", SystemdUnit); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("launch at login is unsupported on %s", runtime.GOOS)
	}
}

func (m Manager) Disable() error {
	switch m.Kind {
	case "darwin":
		return m.removeUnit()
	case "linux":
		_, _ = m.run("systemctl", "--user", "disable", SystemdUnit)
		if err := m.removeUnit(); err != nil {
			return err
		}
		_, _ = m.run("systemctl", "--user", "daemon-reload")
		return nil
	default:
		return fmt.Errorf("launch at login is unsupported on %s", runtime.GOOS)
	}
}

func (m Manager) writeUnit(content string) error {
	if err := os.MkdirAll(filepath.Dir(m.unitPath), 0o755); err != nil {
		return fmt.Errorf("create unit dir: %w", err)
	}
	if err := os.WriteFile(m.unitPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(m.unitPath), err)
	}
	return nil
}

func (m Manager) removeUnit() error {
	if err := os.Remove(m.unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", filepath.Base(m.unitPath), err)
	}
	return nil
}

func execCommand(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err == nil {
		return text, nil
	}
	cmdline := strings.Join(append([]string{name}, args...), " ")
	if text == "" {
		return "", fmt.Errorf("%s: %w", cmdline, err)
	}
	return text, fmt.Errorf("%s: %w: %s", cmdline, err, text)
}

// launchArgs is the command registered for login; the tray has no terminal
// there, so it runs headless.
func launchArgs(exePath string) []string {
	return []string{exePath, HeadlessFlag}
}

func launchdPlist(exePath string) string {
	var args strings.Builder
	for _, arg := range launchArgs(exePath) {
		args.WriteString("\t\t<string>")
		// strings.Builder writes never fail.
		_ = xml.EscapeText(&args, []byte(arg))
		args.WriteString("</string>\n")
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
%s	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>ProcessType</key>
	<string>Background</string>
</dict>
</plist>
`, LaunchdLabel, args.String())
}

func systemdUnit(exePath string) string {
	args := launchArgs(exePath)
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t\"\\") {
			args[i] = strconv.Quote(arg)
		}
	}
	return fmt.Sprintf(`[Unit]
Description=usagetray usage monitor
After=graphical-session.target

[Service]
Type=simple
ExecStart=%s
Restart=on-failure
WorkingDirectory=%%h

[Install]
WantedBy=default.target
`, strings.Join(args, " "))
}

// builtByGoRun reports whether path is a binary `go run` left in its build
// cache. Those are deleted when the command exits, so they cannot be
// registered.
func builtByGoRun(path string) bool {
	p := strings.TrimSpace(path)
	if p == "" {
		return true
	}
	parts := strings.Split(filepath.ToSlash(filepath.Clean(p)), "/")
	for i, part := range parts {
		if strings.HasPrefix(strings.ToLower(part), "go-build") && slices.Contains(parts[i+1:], "exe") {
			return true
		}
	}
	return false
}
