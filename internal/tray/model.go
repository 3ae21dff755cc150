// Package tray is the terminal menu host: a bubbletea program that renders
// the cached usage the way a menu-bar dropdown would.
package tray

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/janekbaraniewski/usagetray/internal/cache"
	"github.com/janekbaraniewski/usagetray/internal/core"
	"github.com/janekbaraniewski/usagetray/internal/settings"
)

const (
	InstallURL   = "https://github.com/ryoppippi/ccusage"
	defaultWidth = 60
	labelWidth   = 18
)

// SnapshotMsg carries a fresh cache snapshot from the scheduler.
type SnapshotMsg cache.Snapshot

// SettingsMsg carries settings reloaded from disk.
type SettingsMsg settings.Settings

type costToggledMsg struct {
	show bool
	err  error
}

type autostartToggledMsg struct {
	enabled bool
	err     error
}

// Hooks connect menu actions to the rest of the process. Nil hooks disable
// the matching key. Refresh and Select run inside Update and must not block or
// send to the program; the toggles run as commands.
type Hooks struct {
	Refresh         func() bool
	Select          func(core.Period) bool
	ToggleCost      func() (bool, error)
	ToggleAutostart func() (bool, error)
}

type Model struct {
	snap       cache.Snapshot
	showCost   bool
	autostart  bool
	refreshing bool
	status     string
	width      int
	hooks      Hooks
}

func NewModel(snap cache.Snapshot, showCost, autostart bool, hooks Hooks) Model {
	return Model{
		snap:       snap,
		showCost:   showCost,
		autostart:  autostart,
		refreshing: !snap.HasData() && snap.LastError == "",
		width:      defaultWidth,
		hooks:      hooks,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		snap := cache.Snapshot(msg)
		if snap.Cycles != m.snap.Cycles {
			m.refreshing = false
		}
		m.snap = snap
		return m, nil
	case SettingsMsg:
		m.showCost = msg.ShowCostIndicator
		return m, nil
	case costToggledMsg:
		if msg.err != nil {
			m.status = "saving setting failed: " + msg.err.Error()
			return m, nil
		}
		m.showCost = msg.show
		m.status = ""
		return m, nil
	case autostartToggledMsg:
		if msg.err != nil {
			m.status = "launch on startup: " + msg.err.Error()
			return m, nil
		}
		m.autostart = msg.enabled
		m.status = ""
		return m, nil
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "r":
		if m.hooks.Refresh == nil {
			return m, nil
		}
		if m.hooks.Refresh() {
			m.refreshing = true
			m.status = ""
		} else {
			m.status = "refresh already in progress"
		}
		return m, nil
	case "1", "2", "3", "4":
		period := core.AllPeriods[int(key[0]-'1')]
		if m.hooks.Select == nil || period == m.snap.Selected {
			return m, nil
		}
		if !m.hooks.Select(period) {
			m.status = "could not select " + period.Label()
			return m, nil
		}
		m.snap.Selected = period
		m.refreshing = true
		m.status = ""
		return m, nil
	case "c":
		if m.hooks.ToggleCost == nil {
			return m, nil
		}
		toggle := m.hooks.ToggleCost
		return m, func() tea.Msg {
			show, err := toggle()
			return costToggledMsg{show: show, err: err}
		}
	case "a":
		if m.hooks.ToggleAutostart == nil {
			return m, nil
		}
		toggle := m.hooks.ToggleAutostart
		return m, func() tea.Msg {
			enabled, err := toggle()
			return autostartToggledMsg{enabled: enabled, err: err}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	sep := dimStyle.Render(strings.Repeat("─", max(10, min(m.width, defaultWidth))))

	b.WriteString(m.line(m.renderHeader()))
	b.WriteString(m.line(sep))
	for _, l := range m.renderBody() {
		b.WriteString(m.line(l))
	}
	b.WriteString(m.line(sep))
	b.WriteString(m.line(m.renderPeriods()))
	b.WriteString(m.line(renderCheck(m.showCost, "Show cost in title", "c")))
	if m.hooks.ToggleAutostart != nil {
		b.WriteString(m.line(renderCheck(m.autostart, "Launch on startup", "a")))
	}
	b.WriteString(m.line(sep))
	b.WriteString(m.line(m.renderStatus()))
	b.WriteString(m.line(renderHelp()))
	return b.String()
}

func (m Model) line(s string) string {
	return ansi.Truncate(s, m.width, "…") + "\n"
}

func (m Model) renderHeader() string {
	header := headerStyle.Render("CCUsage - " + m.snap.Selected.Label())
	if title := core.Title(m.snap.Current(), m.showCost); title != "" {
		header += "  " + badgeStyle.Render(title)
	}
	return header
}

func (m Model) renderBody() []string {
	if !m.snap.HasData() {
		switch {
		case !m.snap.Available:
			return []string{
				warnStyle.Render("Install ccusage CLI"),
				dimStyle.Render("  " + InstallURL),
			}
		case m.snap.LastError != "":
			return []string{
				labelStyle.Render("No usage data available"),
				errorStyle.Render("  " + m.snap.LastError),
			}
		default:
			return []string{dimStyle.Render("Loading usage…")}
		}
	}

	lines := core.MenuLines(m.snap.Current())
	if len(lines) == 0 {
		return []string{labelStyle.Render("No usage data available")}
	}

	out := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		label := labelStyle.Render(padRight(l.Label, labelWidth))
		out = append(out, "  "+label+" "+detailStyle.Render(l.Detail))
	}
	if !m.snap.Available {
		out = append(out, warnStyle.Render("ccusage unavailable, showing cached data"))
	}
	return out
}

func (m Model) renderPeriods() string {
	parts := make([]string, 0, len(core.AllPeriods))
	for i, p := range core.AllPeriods {
		text := fmt.Sprintf("%d %s", i+1, p.Label())
		if p == m.snap.Selected {
			parts = append(parts, selectedStyle.Render("["+text+"]"))
		} else {
			parts = append(parts, dimStyle.Render(" "+text+" "))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) renderStatus() string {
	var parts []string
	if m.snap.UpdatedAt.IsZero() {
		parts = append(parts, "Never updated")
	} else {
		parts = append(parts, "Updated "+m.snap.UpdatedAt.Local().Format(time.TimeOnly))
	}
	if m.refreshing {
		parts = append(parts, "refreshing…")
	}
	text := dimStyle.Render(strings.Join(parts, " · "))
	if m.status != "" {
		text += "  " + warnStyle.Render(m.status)
	}
	return text
}

func renderCheck(on bool, label, key string) string {
	box := "[ ]"
	if on {
		box = "[x]"
	}
	return labelStyle.Render(box+" "+label) + " " + keyStyle.Render(key)
}

func renderHelp() string {
	keys := []struct{ key, desc string }{
		{"1-4", "period"},
		{"r", "refresh"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, keyStyle.Render(k.key)+" "+dimStyle.Render(k.desc))
	}
	return strings.Join(parts, dimStyle.Render(" · "))
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return ansi.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", width-w)
}
