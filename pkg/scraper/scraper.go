package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"artscraper/pkg/acquire"
	"artscraper/pkg/config"
	"artscraper/pkg/fetch"
	"artscraper/pkg/gallery"
	"artscraper/pkg/logger"
	"artscraper/pkg/manifest"
	"artscraper/pkg/metrics"
	"artscraper/pkg/models"
	"artscraper/pkg/ratelimit"
	"artscraper/pkg/storage"
	"artscraper/pkg/ui"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Scraper orchestrates one gallery run: extraction, acquisition and the
// manifest
type Scraper struct {
	config     *config.Config
	fs         afero.Fs
	client     *fetch.Client
	extractor  *gallery.Extractor
	console    *ui.Console
	progress   Progress
	recorder   *metrics.Recorder
	logger     logger.Logger
	httpClient *http.Client
	out        io.Writer
}

// Progress receives every user-facing event of a run. ui.Console is the
// line-oriented implementation.
type Progress interface {
	gallery.Progress
	acquire.Progress
	ExtractionStarted(pages int)
	ExtractionFinished(total int)
	ManifestSaved(path string, entries int)
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithFs sets the filesystem images and the manifest are written to
func WithFs(fs afero.Fs) Option {
	return func(s *Scraper) { s.fs = fs }
}

// WithOutput sets the writer for progress lines
func WithOutput(w io.Writer) Option {
	return func(s *Scraper) { s.out = w }
}

// WithProgress routes progress events to p instead of the console
func WithProgress(p Progress) Option {
	return func(s *Scraper) { s.progress = p }
}

// WithLogger sets the diagnostic logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithRecorder attaches a metrics recorder
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Scraper) { s.recorder = r }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) { s.httpClient = hc }
}

// Report is the outcome of Run
type Report struct {
	RunID        uuid.UUID
	StartedAt    time.Time
	Collection   *models.Collection
	Pages        []gallery.PageReport
	Entries      []manifest.Entry
	Items        []acquire.Item
	Summary      acquire.Summary
	ManifestPath string
}

// New creates a Scraper from a validated configuration
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Scraper{
		config: cfg,
		fs:     afero.NewOsFs(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}

	policy, err := models.ParseDuplicatePolicy(cfg.Gallery.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	s.client = fetch.NewClient(cfg.HTTP.Timeout, s.logger)
	if s.httpClient != nil {
		s.client.SetHTTPClient(s.httpClient)
	}
	if cfg.HTTP.UserAgent != "" {
		s.client.SetHeader("User-Agent", cfg.HTTP.UserAgent)
	}
	if s.recorder != nil {
		s.client.SetObserver(s.recorder)
	}
	if limiter := ratelimit.PerMinute(cfg.HTTP.RequestsPerMinute); limiter != nil {
		s.client.SetLimiter(limiter)
	}

	s.extractor, err = gallery.NewExtractor(s.client, gallery.Options{
		BaseURL:        cfg.Gallery.BaseURL,
		PageURLs:       cfg.Gallery.PageURLs,
		ContainerClass: cfg.Gallery.ContainerClass,
		Policy:         policy,
	}, s.logger)
	if err != nil {
		return nil, err
	}

	s.console = ui.NewConsole(s.out)
	if s.progress == nil {
		s.progress = s.console
	}
	s.extractor.SetProgress(s.progress)
	if s.recorder != nil {
		s.extractor.SetObserver(s.recorder)
	}

	return s, nil
}

// Console returns the progress console, e.g. to silence it
func (s *Scraper) Console() *ui.Console {
	return s.console
}

// Run extracts the gallery, downloads every artwork and writes the manifest.
// Per-artwork failures only show up as failed manifest rows; the returned
// error is reserved for a malformed page URL, cancellation during
// extraction, and filesystem failures on the output directory or manifest.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	log := s.logger.WithField("run_id", report.RunID.String())

	logger.LogComponentStart(log, "scraper", map[string]interface{}{
		"pages":            len(s.config.Gallery.PageURLs),
		"output_dir":       s.config.Output.Directory,
		"duplicate_policy": s.config.Gallery.DuplicatePolicy,
		"timeout":          s.config.HTTP.Timeout.String(),
	})

	s.progress.ExtractionStarted(len(s.config.Gallery.PageURLs))
	collection, pages, err := s.extractor.Extract(ctx)
	report.Collection = collection
	report.Pages = pages
	if err != nil {
		log.WithError(err).Error("Extraction aborted")
		return report, fmt.Errorf("extraction failed: %w", err)
	}
	s.progress.ExtractionFinished(collection.Len())

	store, err := storage.NewManager(s.fs, s.config.Output.Directory)
	if err != nil {
		return report, err
	}

	pipeline := acquire.NewPipeline(s.client, store, log)
	pipeline.SetProgress(s.progress)
	if s.recorder != nil {
		pipeline.SetObserver(s.recorder)
	}
	acquired := pipeline.Run(ctx, collection.Artworks())
	report.Entries = acquired.Entries
	report.Items = acquired.Items
	report.Summary = acquired.Summary

	path, err := manifest.Write(s.fs, s.config.Output.Directory, s.config.Output.ManifestFile, acquired.Entries)
	if err != nil {
		log.WithError(err).Error("Failed to save manifest")
		return report, err
	}
	report.ManifestPath = path
	s.progress.ManifestSaved(path, len(acquired.Entries))

	s.writeMetrics(log)

	logger.LogMetrics(log, "run", map[string]interface{}{
		"artworks":   collection.Len(),
		"duplicates": len(collection.Duplicates()),
		"successful": acquired.Summary.Successful(),
		"failed":     acquired.Summary.Failed,
		"manifest":   path,
		"elapsed":    time.Since(report.StartedAt).String(),
	})

	return report, nil
}

// writeMetrics writes the textfile when configured. A failure here never
// fails the run.
func (s *Scraper) writeMetrics(log logger.Logger) {
	path := s.config.Metrics.Textfile
	if path == "" || s.recorder == nil {
		return
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.WithError(err).Warn("Failed to create metrics directory")
			return
		}
	}
	if err := s.recorder.WriteTextfile(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to write metrics textfile")
		return
	}
	log.DebugWithFields("Metrics textfile written", map[string]interface{}{"path": path})
}
