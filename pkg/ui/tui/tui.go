// Package tui renders a gallery run as a full-screen bubbletea dashboard.
package tui

import (
	"context"

	"artscraper/pkg/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Dashboard forwards run progress to a bubbletea program. It satisfies the
// scraper's Progress interface; every method is safe to call from the run
// goroutine.
type Dashboard struct {
	program *tea.Program
	model   *Model
}

// NewDashboard creates a dashboard for a run over pages listing pages.
// cancel stops the run when the user quits early.
func NewDashboard(pages int, cancel context.CancelFunc, opts ...tea.ProgramOption) *Dashboard {
	model := NewModel(pages, cancel)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &Dashboard{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run blocks until the user quits
func (d *Dashboard) Run() error {
	_, err := d.program.Run()
	return err
}

// Model returns the dashboard state
func (d *Dashboard) Model() *Model {
	return d.model
}

// Finish marks the run done with its result
func (d *Dashboard) Finish(err error) {
	d.program.Send(DoneMsg{Err: err})
}

func (d *Dashboard) ExtractionStarted(pages int) {
	d.program.Send(extractionStartedMsg{pages: pages})
}

func (d *Dashboard) PageStarted(number int, url string) {
	d.program.Send(pageStartedMsg{number: number, url: url})
}

func (d *Dashboard) PageFound(number, images int) {
	d.program.Send(pageFoundMsg{number: number, images: images})
}

func (d *Dashboard) PageFailed(number int, url string, err error) {
	d.program.Send(pageFailedMsg{number: number, url: url, err: err})
}

func (d *Dashboard) ContainerMissing(number int) {
	d.program.Send(containerMissingMsg{number: number})
}

func (d *Dashboard) DuplicateTitle(title, earlierURL, laterURL, policy string) {
	d.program.Send(duplicateMsg{title: title, kept: ui.KeptURL(policy, earlierURL, laterURL), policy: policy})
}

func (d *Dashboard) ExtractionFinished(total int) {
	d.program.Send(extractionFinishedMsg{total: total})
}

func (d *Dashboard) AcquireStarted(dir string, total int) {
	d.program.Send(acquireStartedMsg{dir: dir, total: total})
}

func (d *Dashboard) Skipped(index, total int, name string) {
	d.program.Send(itemMsg{index: index, total: total, name: name, action: actionSkipped})
}

func (d *Dashboard) Downloaded(index, total int, name string, bytes int64) {
	d.program.Send(itemMsg{index: index, total: total, name: name, bytes: bytes, action: actionDownloaded})
}

func (d *Dashboard) Failed(index, total int, name string, err error) {
	d.program.Send(itemMsg{index: index, total: total, name: name, err: err, action: actionFailed})
}

func (d *Dashboard) AcquireFinished(successful, failed, total int, dir string) {
	d.program.Send(acquireFinishedMsg{successful: successful, failed: failed, total: total})
}

func (d *Dashboard) ManifestSaved(path string, entries int) {
	d.program.Send(manifestSavedMsg{path: path, entries: entries})
}
