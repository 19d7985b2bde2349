package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Phase is the stage a gallery run is in
type Phase int

const (
	PhaseExtracting Phase = iota
	PhaseDownloading
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseExtracting:
		return "Extracting gallery pages"
	case PhaseDownloading:
		return "Downloading artworks"
	default:
		return "Finished"
	}
}

const (
	levelInfo    = "INFO"
	levelSuccess = "OK"
	levelWarn    = "WARN"
	levelError   = "ERROR"

	maxEvents = 200
)

// Event is one line of the activity panel
type Event struct {
	Time    time.Time
	Level   string
	Message string
}

// Stats are the counters shown in the dashboard
type Stats struct {
	Pages       int
	PagesDone   int
	PagesFailed int
	Artworks    int
	Duplicates  int
	Total       int
	Downloaded  int
	Skipped     int
	Failed      int
	Bytes       int64
}

// Processed counts artworks the pipeline is done with
func (s Stats) Processed() int {
	return s.Downloaded + s.Skipped + s.Failed
}

// Model is the bubbletea model of the gallery run dashboard
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	phase     Phase
	stats     Stats
	events    []Event
	dir       string
	manifest  string
	err       error
	startTime time.Time
	endTime   time.Time

	cancel   context.CancelFunc
	width    int
	height   int
	showHelp bool
	now      func() time.Time
}

// NewModel creates a model for a run over the given number of pages.
// cancel is called when the user quits before the run is done.
func NewModel(pages int, cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return &Model{
		spinner:   s,
		progress:  p,
		stats:     Stats{Pages: pages},
		cancel:    cancel,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Phase returns the current stage
func (m *Model) Phase() Phase {
	return m.phase
}

// Stats returns a copy of the counters
func (m *Model) Stats() Stats {
	return m.stats
}

// Events returns the activity lines, oldest first
func (m *Model) Events() []Event {
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Err is the run error reported with DoneMsg
func (m *Model) Err() error {
	return m.err
}

// Percent is the share of artworks processed, 0 while extracting
func (m *Model) Percent() float64 {
	if m.stats.Total == 0 {
		if m.phase == PhaseDone {
			return 1
		}
		return 0
	}
	return float64(m.stats.Processed()) / float64(m.stats.Total)
}

func (m *Model) elapsed() time.Duration {
	if !m.endTime.IsZero() {
		return m.endTime.Sub(m.startTime)
	}
	return m.now().Sub(m.startTime)
}

func (m *Model) addEvent(level, format string, args ...interface{}) {
	m.events = append(m.events, Event{
		Time:    m.now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}
