package tui

import "github.com/charmbracelet/lipgloss"

// Colors are named for what they mean in the dashboard, not for their hue.
var (
	colorAccent = lipgloss.Color("212")
	colorGood   = lipgloss.Color("86")
	colorWarn   = lipgloss.Color("214")
	colorMuted  = lipgloss.Color("244")
	colorBorder = lipgloss.Color("240")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			Padding(0, 1)

	idleStyle = lipgloss.NewStyle().Foreground(colorGood)
	busyStyle = lipgloss.NewStyle().Foreground(colorWarn)

	helpStyle = lipgloss.NewStyle().Foreground(colorMuted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)
)
