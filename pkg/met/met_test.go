package met

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"artscraper/pkg/fetch"
	"artscraper/pkg/logger"
	"artscraper/pkg/manifest"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogCSV = "\xEF\xBB\xBF" + `Object Number,Is Highlight,Is Timeline Work,Is Public Domain,Object ID,Title,Artist Display Name
1979.486.1,False,False,False,1,One-dollar Coin,James Barton Longacre
29.100.5,True,False,False,2,Wheat Field with Cypresses,Vincent van Gogh
19.164,True,False,True,3,"Study of a Head, with a comma",Leonardo da Vinci
49.7.25,False,False,True,4,The Harvesters,Pieter Bruegel the Elder
bad,False,False,True,not-a-number,Broken Row,Unknown
07.225.1,True,False,True,6,Madonna and Child,Duccio
`

func writeCatalog(t *testing.T, fs afero.Fs) string {
	t.Helper()
	path := filepath.Join("data", "met-museum", "MetObjects.csv")
	require.NoError(t, afero.WriteFile(fs, path, []byte(catalogCSV), 0644))
	return path
}

func TestScanObjects(t *testing.T) {
	var seen []Object
	rows, err := ScanObjects(strings.NewReader(catalogCSV), func(obj Object) error {
		seen = append(seen, obj)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 6, rows)
	require.Len(t, seen, 5)
	assert.Equal(t, Object{ID: 3, Title: "Study of a Head, with a comma", Artist: "Leonardo da Vinci", IsHighlight: true, PublicDomain: true}, seen[2])
}

func TestScanObjectsStops(t *testing.T) {
	calls := 0
	_, err := ScanObjects(strings.NewReader(catalogCSV), func(obj Object) error {
		calls++
		return ErrStopScan
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestScanObjectsMissingColumn(t *testing.T) {
	_, err := ScanObjects(strings.NewReader("Object ID,Title\n1,A\n"), func(Object) error { return nil })
	assert.ErrorContains(t, err, "Is Highlight")
}

func TestLoadCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()
	catalog, err := LoadCatalog(fs, writeCatalog(t, fs))
	require.NoError(t, err)

	assert.Equal(t, 6, catalog.Total)
	assert.Equal(t, []int64{3, 4, 6}, catalog.PublicDomainIDs)
	assert.InDelta(t, 0.5, catalog.PublicDomainShare(), 1e-9)

	_, err = LoadCatalog(fs, "missing.csv")
	assert.Error(t, err)
}

// mockAPI serves object records and images; sizes maps object IDs to image
// sizes, 0 meaning no primary image
type mockAPI struct {
	server *httptest.Server
	sizes  map[int64]int
	broken map[int64]bool
}

func newMockAPI(t *testing.T, sizes map[int64]int, broken map[int64]bool) *mockAPI {
	t.Helper()
	m := &mockAPI{sizes: sizes, broken: broken}
	mux := http.NewServeMux()
	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/objects/"), 10, 64)
		size, known := m.sizes[id]
		if err != nil || !known {
			http.NotFound(w, r)
			return
		}
		details := ObjectDetails{
			ObjectID:       id,
			Title:          fmt.Sprintf("Object %d", id),
			ObjectDate:     "ca. 1490",
			Medium:         "Oil on panel",
			Department:     "European Paintings",
			IsPublicDomain: true,
		}
		if size > 0 {
			details.PrimaryImage = fmt.Sprintf("%s/images/%d.jpg", m.server.URL, id)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(details)
	})
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/images/"), ".jpg"), 10, 64)
		if m.broken[id] {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		body := make([]byte, m.sizes[id])
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(body)
	})
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func newFetcher() *fetch.Client {
	return fetch.NewClient(5*time.Second, logger.NewNopLogger())
}

type estimateEvents struct {
	sized, noImage, failed []int64
}

func (e *estimateEvents) SampleStarted(sampled, publicDomain, total int) {}
func (e *estimateEvents) ObjectSized(index, total int, id, size int64, title string) {
	e.sized = append(e.sized, id)
}
func (e *estimateEvents) ObjectWithoutImage(index, total int, id int64) {
	e.noImage = append(e.noImage, id)
}
func (e *estimateEvents) ObjectFailed(index, total int, id int64, err error) {
	e.failed = append(e.failed, id)
}

func TestEstimate(t *testing.T) {
	api := newMockAPI(t, map[int64]int{
		10: 1000,
		11: 3000,
		12: 2000,
		13: 0,
		14: 5000,
	}, map[int64]bool{14: true})

	catalog := &Catalog{Total: 12, PublicDomainIDs: []int64{10, 11, 12, 13, 14, 15}}
	events := &estimateEvents{}
	estimator := NewEstimator(newFetcher(), api.server.URL, 42, logger.NewNopLogger())
	estimator.SetProgress(events)

	est, err := estimator.Estimate(context.Background(), catalog, 50)
	require.NoError(t, err)

	assert.Equal(t, 6, est.Sampled)
	assert.Equal(t, 3, est.WithImages)
	assert.Equal(t, []int64{1000, 2000, 3000}, est.Sizes)
	assert.InDelta(t, 0.5, est.AvailabilityRate(), 1e-9)
	assert.InDelta(t, 2000, est.Average(), 1e-9)
	assert.Equal(t, int64(2000), est.Median())
	assert.Equal(t, int64(1000), est.Min())
	assert.Equal(t, int64(3000), est.Max())
	assert.InDelta(t, 3, est.EstimatedImages(), 1e-9)
	assert.InDelta(t, 6000, est.EstimatedBytes(), 1e-9)

	assert.ElementsMatch(t, []int64{10, 11, 12}, events.sized)
	assert.Equal(t, []int64{13}, events.noImage)
	assert.ElementsMatch(t, []int64{14, 15}, events.failed)
}

func TestEstimateTransferTime(t *testing.T) {
	est := &Estimate{PublicDomain: 1000, Sampled: 10, WithImages: 5, TotalSampled: 5 * 20 * 1024 * 1024}

	// 500 images of 20 MiB
	assert.Equal(t, 1000*time.Second, est.TransferTime(SlowRate))
	assert.Equal(t, 200*time.Second, est.TransferTime(FastRate))
	assert.Zero(t, (&Estimate{}).TransferTime(SlowRate))
}

func TestSampleIsSeeded(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	a := NewEstimator(nil, "", 7, logger.NewNopLogger()).Sample(ids, 4)
	b := NewEstimator(nil, "", 7, logger.NewNopLogger()).Sample(ids, 4)

	assert.Equal(t, a, b)
	assert.Len(t, a, 4)
	assert.Len(t, NewEstimator(nil, "", 7, nil).Sample(ids, 50), 10)
	assert.Empty(t, NewEstimator(nil, "", 7, nil).Sample(nil, 5))
}

func TestEstimateCanceled(t *testing.T) {
	api := newMockAPI(t, map[int64]int{1: 10}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEstimator(newFetcher(), api.server.URL, 1, nil).
		Estimate(ctx, &Catalog{Total: 1, PublicDomainIDs: []int64{1}}, 5)
	assert.Error(t, err)
}

func TestSampleDownload(t *testing.T) {
	// object 3 is the first highlighted public-domain row but has no image
	api := newMockAPI(t, map[int64]int{3: 0, 6: 2048}, nil)
	fs := afero.NewMemMapFs()
	catalogPath := writeCatalog(t, fs)
	dir := filepath.Join("data", "met-museum", "test")

	result, err := NewSampler(newFetcher(), api.server.URL, fs, logger.NewNopLogger()).
		Download(context.Background(), catalogPath, dir)
	require.NoError(t, err)

	assert.Equal(t, int64(6), result.Object.ID)
	assert.Equal(t, filepath.Join(dir, "test_object_6.jpg"), result.Path)
	assert.Equal(t, int64(2048), result.Bytes)

	data, err := afero.ReadFile(fs, result.Path)
	require.NoError(t, err)
	assert.Len(t, data, 2048)

	entry := result.Entry
	assert.Equal(t, int64(6), entry.ID)
	assert.Equal(t, "test_object_6.jpg", entry.Filename)
	assert.Equal(t, manifest.StatusSuccess, entry.Status)
	require.NotNil(t, entry.Metadata.Source)
	assert.Equal(t, Source, *entry.Metadata.Source)
	assert.Equal(t, "ca. 1490", *entry.Metadata.Year)
	assert.Equal(t, "European Paintings", *entry.Metadata.Location)
	assert.Nil(t, entry.Metadata.Dimensions)
	assert.Nil(t, entry.Metadata.Notes)
}

func TestSampleDownloadSkipsFailingCandidates(t *testing.T) {
	api := newMockAPI(t, map[int64]int{3: 100, 6: 200}, map[int64]bool{3: true})
	fs := afero.NewMemMapFs()

	result, err := NewSampler(newFetcher(), api.server.URL, fs, logger.NewNopLogger()).
		Download(context.Background(), writeCatalog(t, fs), "test")
	require.NoError(t, err)
	assert.Equal(t, int64(6), result.Object.ID)
}

func TestSampleDownloadNothingSuitable(t *testing.T) {
	api := newMockAPI(t, map[int64]int{3: 0, 6: 0}, nil)
	fs := afero.NewMemMapFs()

	_, err := NewSampler(newFetcher(), api.server.URL, fs, logger.NewNopLogger()).
		Download(context.Background(), writeCatalog(t, fs), "test")
	assert.ErrorIs(t, err, ErrNoSample)

	exists, _ := afero.DirExists(fs, "test")
	assert.False(t, exists)
}
