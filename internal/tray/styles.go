package tray

import "github.com/charmbracelet/lipgloss"

var (
	colorText     = lipgloss.Color("#CDD6F4")
	colorSubtext  = lipgloss.Color("#A6ADC8")
	colorDim      = lipgloss.Color("#585B70")
	colorAccent   = lipgloss.Color("#CBA6F7")
	colorLavender = lipgloss.Color("#B4BEFE")
	colorSapphire = lipgloss.Color("#74C7EC")
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorRed      = lipgloss.Color("#F38BA8")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorText)

	detailStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	keyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSapphire)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)
