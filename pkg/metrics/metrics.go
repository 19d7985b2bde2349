// Package metrics records run counters for a single scraper invocation.
//
// The scraper is a batch job, so metrics live on a private registry and are
// flushed once to a node-exporter textfile instead of being served.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Image outcomes used as the status label of artscraper_images_total
const (
	ImageDownloaded = "downloaded"
	ImageSkipped    = "skipped"
	ImageFailed     = "failed"
)

// Recorder holds all Prometheus metrics for one run
type Recorder struct {
	registry *prometheus.Registry

	PagesTotal          *prometheus.CounterVec
	ArtworksExtracted   prometheus.Counter
	DuplicateTitles     prometheus.Counter
	ImagesTotal         *prometheus.CounterVec
	ImageBytes          prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	LastRunTimestamp    prometheus.Gauge
}

// NewRecorder registers every metric on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artscraper_pages_total",
			Help: "Gallery listing pages processed, by outcome.",
		}, []string{"outcome"}),
		ArtworksExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "artscraper_artworks_extracted_total",
			Help: "Artwork entries added to the collection.",
		}),
		DuplicateTitles: factory.NewCounter(prometheus.CounterOpts{
			Name: "artscraper_duplicate_titles_total",
			Help: "Titles seen more than once across listing pages.",
		}),
		ImagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artscraper_images_total",
			Help: "Artwork images processed, by status.",
		}, []string{"status"}),
		ImageBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "artscraper_image_bytes_total",
			Help: "Bytes of image data written to disk.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artscraper_http_requests_total",
			Help: "Outbound HTTP requests, by method and outcome.",
		}, []string{"method", "outcome"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artscraper_http_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "artscraper_last_run_timestamp_seconds",
			Help: "Unix time the metrics file was written.",
		}),
	}
}

// Registry exposes the private registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRequest records one outbound HTTP request. All Observe methods are
// safe on a nil Recorder.
func (r *Recorder) ObserveRequest(method, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, outcome).Inc()
	r.HTTPRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObservePage records one listing page. outcome is "ok" or an error type.
func (r *Recorder) ObservePage(outcome string, added int) {
	if r == nil {
		return
	}
	r.PagesTotal.WithLabelValues(outcome).Inc()
	r.ArtworksExtracted.Add(float64(added))
}

// ObserveDuplicate counts a repeated title
func (r *Recorder) ObserveDuplicate() {
	if r == nil {
		return
	}
	r.DuplicateTitles.Inc()
}

// ObserveImage records one acquisition outcome
func (r *Recorder) ObserveImage(status string, bytes int64) {
	if r == nil {
		return
	}
	r.ImagesTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		r.ImageBytes.Add(float64(bytes))
	}
}

// WriteTextfile writes every metric in the Prometheus text format. The file is
// replaced atomically so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	r.LastRunTimestamp.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
