package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent    = lipgloss.Color("#C9A227")
	sepia     = lipgloss.Color("#8B5E3C")
	green     = lipgloss.Color("#3FB950")
	orange    = lipgloss.Color("#F0883E")
	red       = lipgloss.Color("#F85149")
	dimWhite  = lipgloss.Color("#B0B0B0")
	darkPanel = lipgloss.Color("#1C1A17")

	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(sepia).
			Background(darkPanel).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Background(sepia).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().Foreground(green)
	warningStyle = lipgloss.NewStyle().Foreground(orange)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)

	eventTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 1)
)

// levelStyle colors an event by level
func levelStyle(level string) lipgloss.Style {
	switch level {
	case levelSuccess:
		return successStyle
	case levelWarn:
		return warningStyle
	case levelError:
		return errorStyle
	default:
		return lipgloss.NewStyle().Foreground(dimWhite)
	}
}
