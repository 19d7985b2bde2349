// Package acquire downloads the image of every artwork in a collection into
// the target directory and produces one manifest entry per artwork.
package acquire

import (
	"bytes"
	"context"
	"io"
	"time"

	"artscraper/pkg/errors"
	"artscraper/pkg/fetch"
	"artscraper/pkg/logger"
	"artscraper/pkg/manifest"
	"artscraper/pkg/models"
	"artscraper/pkg/naming"
)

// Fetcher performs the image GET requests
type Fetcher interface {
	Get(ctx context.Context, url string, opts ...fetch.RequestOption) *fetch.Result
}

// Store holds the downloaded files
type Store interface {
	Exists(name string) bool
	Save(r io.Reader, name string) (int64, error)
	Dir() string
}

// Progress receives user-facing progress events
type Progress interface {
	AcquireStarted(dir string, total int)
	Skipped(index, total int, name string)
	Downloaded(index, total int, name string, bytes int64)
	Failed(index, total int, name string, err error)
	AcquireFinished(successful, failed, total int, dir string)
}

// Observer receives one call per artwork, for metrics
type Observer interface {
	ObserveImage(status string, bytes int64)
}

// Action is what the pipeline did for one artwork
type Action string

const (
	ActionDownloaded Action = "downloaded"
	ActionSkipped    Action = "skipped"
	ActionFailed     Action = "failed"
)

// Item details the handling of one artwork beyond its manifest entry
type Item struct {
	ID        int64
	Filename  string
	Action    Action
	Bytes     int64
	Duration  time.Duration
	ErrorType errors.ErrorType
}

// Summary counts the outcomes of a run
type Summary struct {
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
	Duration   time.Duration
}

// Successful counts entries whose status is success
func (s Summary) Successful() int {
	return s.Downloaded + s.Skipped
}

// Report is the result of Run. Entries and Items are parallel, one per input
// artwork, in input order.
type Report struct {
	Entries []manifest.Entry
	Items   []Item
	Summary Summary
}

// Pipeline fetches artworks sequentially into a Store
type Pipeline struct {
	fetcher  Fetcher
	store    Store
	logger   logger.Logger
	progress Progress
	observer Observer
}

// NewPipeline creates a pipeline writing into store
func NewPipeline(fetcher Fetcher, store Store, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		logger:  log.WithField("component", "acquire"),
	}
}

// SetProgress attaches a progress reporter
func (p *Pipeline) SetProgress(progress Progress) {
	p.progress = progress
}

// SetObserver attaches a metrics observer
func (p *Pipeline) SetObserver(o Observer) {
	p.observer = o
}

// Run handles every artwork in order. It never fails: per-item problems,
// including cancellation of ctx, become failed entries, so the returned
// report always holds exactly len(artworks) entries.
func (p *Pipeline) Run(ctx context.Context, artworks []models.Artwork) *Report {
	total := len(artworks)
	report := &Report{
		Entries: make([]manifest.Entry, 0, total),
		Items:   make([]Item, 0, total),
		Summary: Summary{Total: total},
	}
	start := time.Now()

	logger.LogComponentStart(p.logger, "acquire", map[string]interface{}{
		"dir":      p.store.Dir(),
		"artworks": total,
	})
	if p.progress != nil {
		p.progress.AcquireStarted(p.store.Dir(), total)
	}

	for i, art := range artworks {
		index := i + 1
		entry, item := p.acquireOne(ctx, index, total, art)
		report.Entries = append(report.Entries, entry)
		report.Items = append(report.Items, item)

		switch item.Action {
		case ActionDownloaded:
			report.Summary.Downloaded++
			report.Summary.Bytes += item.Bytes
		case ActionSkipped:
			report.Summary.Skipped++
		case ActionFailed:
			report.Summary.Failed++
		}
	}

	report.Summary.Duration = time.Since(start)
	if p.progress != nil {
		p.progress.AcquireFinished(report.Summary.Successful(), report.Summary.Failed, total, p.store.Dir())
	}
	logger.LogMetrics(p.logger, "acquisition", map[string]interface{}{
		"downloaded": report.Summary.Downloaded,
		"skipped":    report.Summary.Skipped,
		"failed":     report.Summary.Failed,
		"bytes":      report.Summary.Bytes,
		"duration":   report.Summary.Duration,
	})

	return report
}

func (p *Pipeline) acquireOne(ctx context.Context, index, total int, art models.Artwork) (manifest.Entry, Item) {
	safeTitle := naming.Sanitize(art.Title)
	filename := safeTitle + naming.Extension(art.SourceURL)

	entry := manifest.Entry{
		ID:            int64(index),
		Filename:      filename,
		OriginalTitle: art.Title,
		URL:           art.SourceURL,
	}
	item := Item{ID: entry.ID, Filename: filename}
	start := time.Now()

	if p.store.Exists(filename) {
		entry.Status = manifest.StatusSuccess
		item.Action = ActionSkipped
		p.report(index, total, safeTitle, &item, nil)
		return entry, item
	}

	fail := func(err error) (manifest.Entry, Item) {
		entry.Status = manifest.StatusFailed
		entry.Error = err.Error()
		item.Action = ActionFailed
		item.ErrorType = errors.TypeOf(err)
		item.Duration = time.Since(start)
		p.report(index, total, safeTitle, &item, err)
		return entry, item
	}

	if err := ctx.Err(); err != nil {
		return fail(errors.New(errors.ErrorTypeCanceled, 0, "run canceled before download: %v", err))
	}

	res := p.fetcher.Get(ctx, art.SourceURL)
	if !res.OK() {
		return fail(res.Error())
	}

	n, err := p.store.Save(bytes.NewReader(res.Body), filename)
	if err != nil {
		return fail(err)
	}

	entry.Status = manifest.StatusSuccess
	item.Action = ActionDownloaded
	item.Bytes = n
	item.Duration = time.Since(start)
	p.report(index, total, safeTitle, &item, nil)
	return entry, item
}

func (p *Pipeline) report(index, total int, name string, item *Item, err error) {
	logger.LogDownload(p.logger, name, item.Filename, string(item.Action), err)

	if p.observer != nil {
		p.observer.ObserveImage(string(item.Action), item.Bytes)
	}
	if p.progress == nil {
		return
	}
	switch item.Action {
	case ActionSkipped:
		p.progress.Skipped(index, total, name)
	case ActionDownloaded:
		p.progress.Downloaded(index, total, name, item.Bytes)
	case ActionFailed:
		p.progress.Failed(index, total, name, err)
	}
}
