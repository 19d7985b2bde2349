package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

type extractionStartedMsg struct{ pages int }

type pageStartedMsg struct {
	number int
	url    string
}

type pageFoundMsg struct{ number, images int }

type pageFailedMsg struct {
	number int
	url    string
	err    error
}

type containerMissingMsg struct{ number int }

type duplicateMsg struct{ title, kept, policy string }

type extractionFinishedMsg struct{ total int }

type acquireStartedMsg struct {
	dir   string
	total int
}

type itemMsg struct {
	index, total int
	name         string
	bytes        int64
	action       string
	err          error
}

type acquireFinishedMsg struct{ successful, failed, total int }

type manifestSavedMsg struct {
	path    string
	entries int
}

// DoneMsg ends the run; Err is the error returned by the scraper
type DoneMsg struct {
	Err error
}

const (
	actionDownloaded = "downloaded"
	actionSkipped    = "skipped"
	actionFailed     = "failed"
)

// Update applies one message to the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = barWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.progress.Update(msg)
		if p, ok := updated.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd

	case extractionStartedMsg:
		m.phase = PhaseExtracting
		m.stats.Pages = msg.pages
		m.addEvent(levelInfo, "Extracting %d pages", msg.pages)

	case pageStartedMsg:
		m.addEvent(levelInfo, "Fetching page %d", msg.number)

	case pageFoundMsg:
		m.stats.PagesDone++
		m.addEvent(levelInfo, "Found %d images on page %d", msg.images, msg.number)

	case pageFailedMsg:
		m.stats.PagesDone++
		m.stats.PagesFailed++
		m.addEvent(levelError, "Page %d failed: %v", msg.number, msg.err)

	case containerMissingMsg:
		m.stats.PagesDone++
		m.addEvent(levelWarn, "No gallery container on page %d", msg.number)

	case duplicateMsg:
		m.stats.Duplicates++
		m.addEvent(levelWarn, "Duplicate title %q (%s keeps %s)", msg.title, msg.policy, msg.kept)

	case extractionFinishedMsg:
		m.stats.Artworks = msg.total
		m.addEvent(levelSuccess, "Extracted %d artworks", msg.total)

	case acquireStartedMsg:
		m.phase = PhaseDownloading
		m.dir = msg.dir
		m.stats.Total = msg.total

	case itemMsg:
		switch msg.action {
		case actionDownloaded:
			m.stats.Downloaded++
			m.stats.Bytes += msg.bytes
			m.addEvent(levelSuccess, "[%d/%d] %s (%s)", msg.index, msg.total, msg.name, humanize.IBytes(uint64(msg.bytes)))
		case actionSkipped:
			m.stats.Skipped++
			m.addEvent(levelInfo, "[%d/%d] %s already present", msg.index, msg.total, msg.name)
		case actionFailed:
			m.stats.Failed++
			m.addEvent(levelError, "[%d/%d] %s: %v", msg.index, msg.total, msg.name, msg.err)
		}
		return m, m.progress.SetPercent(m.Percent())

	case acquireFinishedMsg:
		m.addEvent(levelSuccess, "%d of %d artworks saved, %d failed", msg.successful, msg.total, msg.failed)

	case manifestSavedMsg:
		m.manifest = msg.path
		m.addEvent(levelSuccess, "Manifest saved: %s (%d rows)", msg.path, msg.entries)

	case DoneMsg:
		m.phase = PhaseDone
		m.err = msg.Err
		m.endTime = m.now()
		if msg.Err != nil {
			m.addEvent(levelError, "Run failed: %v", msg.Err)
		} else {
			m.addEvent(levelSuccess, "Done. Press q to exit")
		}
		return m, m.progress.SetPercent(m.Percent())
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		if m.phase != PhaseDone && m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp

	case "ctrl+l":
		m.events = nil
	}
	return m, nil
}

func barWidth(termWidth int) int {
	w := termWidth - 20
	if w > 60 {
		w = 60
	}
	if w < 10 {
		w = 10
	}
	return w
}
