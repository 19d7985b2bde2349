package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"artscraper/pkg/config"
	"artscraper/pkg/errors"
	"artscraper/pkg/gallery"
	"artscraper/pkg/logger"
	"artscraper/pkg/manifest"
	"artscraper/pkg/metrics"
	"artscraper/pkg/ui"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGallery serves two listing pages and the images they reference
type mockGallery struct {
	server     *httptest.Server
	imageCalls int32
}

func newMockGallery(t *testing.T) *mockGallery {
	t.Helper()
	m := &mockGallery{}

	page := func(images string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><body><div class="row items-list-wrapper">%s</div></body></html>`, images)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/works.html", page(`
		<img alt="Mona Lisa" src="/img/mona.jpg">
		<img alt="The Last Supper" src="/img/ls.png?size=large">
		<img alt="Salvator Mundi" src="/img/sm-old.jpg">`))
	mux.Handle("/works-2.html", page(`
		<img alt="Salvator Mundi" src="/img/sm.jpg">
		<img alt="Lost Portrait" src="/img/missing.jpg">`))
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.imageCalls, 1)
		if r.URL.Path == "/img/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("image:" + r.URL.Path))
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockGallery) config(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Gallery.BaseURL = m.server.URL
	cfg.Gallery.PageURLs = []string{
		m.server.URL + "/works.html",
		m.server.URL + "/works-2.html",
	}
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Output.Directory = "data/da-vinci-works"
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	m := newMockGallery(t)
	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	recorder := metrics.NewRecorder()

	s, err := New(m.config(t), WithFs(fs), WithOutput(&out), WithLogger(logger.NewNopLogger()), WithRecorder(recorder))
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, [16]byte{}, [16]byte(report.RunID))
	require.Equal(t, 4, report.Collection.Len())
	assert.Equal(t, m.server.URL+"/img/sm.jpg", report.Collection.URL("Salvator Mundi"))

	require.Len(t, report.Entries, 4)
	assert.Equal(t, "Mona-Lisa.jpg", report.Entries[0].Filename)
	assert.Equal(t, "The-Last-Supper.png", report.Entries[1].Filename)
	assert.Equal(t, manifest.StatusFailed, report.Entries[3].Status)
	assert.Equal(t, 3, report.Summary.Successful())
	assert.Equal(t, 1, report.Summary.Failed)

	data, err := afero.ReadFile(fs, "data/da-vinci-works/Salvator-Mundi.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image:/img/sm.jpg", string(data))

	assert.Equal(t, filepath.Join("data/da-vinci-works", "manifest.parquet"), report.ManifestPath)
	stored, err := manifest.Read(fs, report.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, report.Entries, stored)

	printed := out.String()
	assert.Contains(t, printed, "Total artworks found: 4")
	assert.Contains(t, printed, "[2/4] Downloaded: The-Last-Supper")
	assert.Contains(t, printed, "[4/4] Failed to download Lost-Portrait")
	assert.Contains(t, printed, "Successful: 3/4")
	assert.Contains(t, printed, "Manifest saved to:")

	assert.Equal(t, float64(4), testutil.ToFloat64(recorder.ArtworksExtracted))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.DuplicateTitles))
	assert.Equal(t, float64(3), testutil.ToFloat64(recorder.ImagesTotal.WithLabelValues(metrics.ImageDownloaded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.ImagesTotal.WithLabelValues(metrics.ImageFailed)))
}

func TestRerunSkipsExistingFiles(t *testing.T) {
	m := newMockGallery(t)
	fs := afero.NewMemMapFs()
	cfg := m.config(t)

	first, err := New(cfg, WithFs(fs), WithOutput(&bytes.Buffer{}), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	_, err = first.Run(context.Background())
	require.NoError(t, err)
	callsAfterFirst := atomic.LoadInt32(&m.imageCalls)

	var out bytes.Buffer
	second, err := New(cfg, WithFs(fs), WithOutput(&out), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	report, err := second.Run(context.Background())
	require.NoError(t, err)

	// only the missing image is requested again
	assert.Equal(t, callsAfterFirst+1, atomic.LoadInt32(&m.imageCalls))
	assert.Equal(t, 3, report.Summary.Skipped)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Contains(t, out.String(), "[1/4] Skipping (already exists): Mona-Lisa")

	stored, err := manifest.Read(fs, report.ManifestPath)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestRunAbortsOnMalformedPageURL(t *testing.T) {
	m := newMockGallery(t)
	fs := afero.NewMemMapFs()
	cfg := m.config(t)
	s, err := New(cfg, WithFs(fs), WithOutput(&bytes.Buffer{}), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	// bypasses Validate, which would reject it up front
	s.extractor, err = gallery.NewExtractor(s.client, gallery.Options{
		BaseURL:        cfg.Gallery.BaseURL,
		PageURLs:       []string{m.server.URL + "/works.html", "works-2.html"},
		ContainerClass: cfg.Gallery.ContainerClass,
	}, logger.NewNopLogger())
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsPermanent(err))
	assert.Len(t, report.Pages, 2)
	assert.Zero(t, atomic.LoadInt32(&m.imageCalls))

	exists, _ := afero.Exists(fs, filepath.Join(cfg.Output.Directory, cfg.Output.ManifestFile))
	assert.False(t, exists)
}

func TestRunFailsWhenOutputIsNotWritable(t *testing.T) {
	m := newMockGallery(t)
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	s, err := New(m.config(t), WithFs(fs), WithOutput(&bytes.Buffer{}), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&m.imageCalls))
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	m := newMockGallery(t)
	cfg := m.config(t)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "textfile", "artscraper.prom")

	s, err := New(cfg, WithFs(afero.NewMemMapFs()), WithOutput(&bytes.Buffer{}),
		WithLogger(logger.NewNopLogger()), WithRecorder(metrics.NewRecorder()))
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "artscraper_images_total")
	assert.Contains(t, string(data), "artscraper_pages_total")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Gallery.PageURLs = []string{"not a url"}
	cfg.HTTP.Timeout = 0

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestUserAgentIsSent(t *testing.T) {
	var seen atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("User-Agent"))
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Gallery.BaseURL = server.URL
	cfg.Gallery.PageURLs = []string{server.URL + "/works.html"}
	cfg.HTTP.UserAgent = "artscraper-test/1.0"

	s, err := New(cfg, WithFs(afero.NewMemMapFs()), WithOutput(&bytes.Buffer{}),
		WithLogger(logger.NewNopLogger()), WithHTTPClient(&http.Client{}))
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "artscraper-test/1.0", seen.Load())
	assert.Zero(t, report.Collection.Len())
	assert.Empty(t, report.Entries)
}

// recordingProgress keeps the console's behavior but remembers a few events
type recordingProgress struct {
	*ui.Console
	duplicates []string
	manifest   string
	entries    int
}

func (p *recordingProgress) DuplicateTitle(title, earlierURL, laterURL, policy string) {
	p.duplicates = append(p.duplicates, title+"|"+policy)
}

func (p *recordingProgress) ManifestSaved(path string, entries int) {
	p.manifest = path
	p.entries = entries
}

func TestWithProgressReplacesConsole(t *testing.T) {
	m := newMockGallery(t)
	var out, progressOut bytes.Buffer
	progress := &recordingProgress{Console: ui.NewConsole(&progressOut)}

	cfg := m.config(t)
	cfg.Gallery.DuplicatePolicy = "first-wins"
	s, err := New(cfg, WithFs(afero.NewMemMapFs()), WithOutput(&out),
		WithLogger(logger.NewNopLogger()), WithProgress(progress))
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, out.String())
	assert.Contains(t, progressOut.String(), "Total artworks found: 4")
	assert.Equal(t, []string{"Salvator Mundi|first-wins"}, progress.duplicates)
	assert.Equal(t, report.ManifestPath, progress.manifest)
	assert.Equal(t, 4, progress.entries)
	assert.Equal(t, m.server.URL+"/img/sm-old.jpg", report.Collection.URL("Salvator Mundi"))
}
