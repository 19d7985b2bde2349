package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	defaultWidth  = 80
	visibleEvents = 10
)

// View renders the dashboard
func (m *Model) View() string {
	width := m.width
	if width == 0 {
		width = defaultWidth
	}

	sections := []string{
		headerStyle.Render("artscraper · gallery run"),
		m.renderStatus(),
		m.renderStats(width),
		m.renderEvents(width),
	}

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q quit · ? help"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderStatus() string {
	var line string
	switch {
	case m.phase == PhaseDone && m.err != nil:
		line = errorStyle.Render("Run failed: " + m.err.Error())
	case m.phase == PhaseDone:
		line = successStyle.Render("Finished in " + formatDuration(m.elapsed()))
	default:
		line = m.spinner.View() + " " + m.phase.String()
	}
	return " " + line + "\n " + m.progress.View()
}

func (m *Model) renderStats(width int) string {
	s := m.stats
	rows := []string{
		stat("Pages", fmt.Sprintf("%d/%d (%d failed)", s.PagesDone, s.Pages, s.PagesFailed)),
		stat("Artworks", fmt.Sprintf("%d (%d duplicate titles)", s.Artworks, s.Duplicates)),
		stat("Downloaded", fmt.Sprintf("%d (%s)", s.Downloaded, humanize.IBytes(uint64(s.Bytes)))),
		stat("Skipped", fmt.Sprint(s.Skipped)),
		stat("Failed", fmt.Sprint(s.Failed)),
		stat("Elapsed", formatDuration(m.elapsed())),
	}
	if m.dir != "" {
		rows = append(rows, stat("Directory", m.dir))
	}
	if m.manifest != "" {
		rows = append(rows, stat("Manifest", m.manifest))
	}

	return panelStyle.Width(width - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" RUN "), strings.Join(rows, "\n")),
	)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-11s", label+":")), valueStyle.Render(value))
}

func (m *Model) renderEvents(width int) string {
	start := len(m.events) - visibleEvents
	if start < 0 {
		start = 0
	}

	maxLen := width - 20
	var lines []string
	for _, ev := range m.events[start:] {
		msg := ev.Message
		if maxLen > 3 && len(msg) > maxLen {
			msg = msg[:maxLen-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s",
			eventTimeStyle.Render(ev.Time.Format("15:04:05")),
			levelStyle(ev.Level).Render(msg),
		))
	}

	content := strings.Join(lines, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the first page...")
	}
	return panelStyle.Width(width - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" ACTIVITY "), content),
	)
}

func (m *Model) renderHelp() string {
	return helpStyle.Render(strings.Join([]string{
		"q, esc, ctrl+c  quit (cancels a running download)",
		"ctrl+l          clear the activity panel",
		"?               toggle this help",
	}, "\n"))
}

// formatDuration renders d as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
