package met

import (
	"context"
	"math/rand"
	"net/http"
	"sort"
	"time"

	"artscraper/pkg/errors"
	"artscraper/pkg/logger"
)

// Reference transfer rates for the time estimate, in bytes per second
const (
	SlowRate = 10 * 1024 * 1024
	FastRate = 50 * 1024 * 1024
)

// EstimateProgress receives one event per sampled object
type EstimateProgress interface {
	SampleStarted(sampled, publicDomain, total int)
	ObjectSized(index, total int, id, size int64, title string)
	ObjectWithoutImage(index, total int, id int64)
	ObjectFailed(index, total int, id int64, err error)
}

// Estimate extrapolates the size of all public-domain images from a sample
type Estimate struct {
	TotalObjects int
	PublicDomain int
	Sampled      int
	WithImages   int
	Sizes        []int64 // ascending
	TotalSampled int64
}

// AvailabilityRate is the share of sampled objects with a sized image
func (e *Estimate) AvailabilityRate() float64 {
	if e.Sampled == 0 {
		return 0
	}
	return float64(e.WithImages) / float64(e.Sampled)
}

// Average is the mean image size in bytes
func (e *Estimate) Average() float64 {
	if e.WithImages == 0 {
		return 0
	}
	return float64(e.TotalSampled) / float64(e.WithImages)
}

// Median is the upper median of the sampled sizes
func (e *Estimate) Median() int64 {
	if len(e.Sizes) == 0 {
		return 0
	}
	return e.Sizes[len(e.Sizes)/2]
}

// Min is the smallest sampled size
func (e *Estimate) Min() int64 {
	if len(e.Sizes) == 0 {
		return 0
	}
	return e.Sizes[0]
}

// Max is the largest sampled size
func (e *Estimate) Max() int64 {
	if len(e.Sizes) == 0 {
		return 0
	}
	return e.Sizes[len(e.Sizes)-1]
}

// EstimatedImages is the expected number of downloadable images
func (e *Estimate) EstimatedImages() float64 {
	return float64(e.PublicDomain) * e.AvailabilityRate()
}

// EstimatedBytes is the expected total download size
func (e *Estimate) EstimatedBytes() float64 {
	return e.EstimatedImages() * e.Average()
}

// TransferTime is the time to download EstimatedBytes at rate bytes/s
func (e *Estimate) TransferTime(rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(e.EstimatedBytes() / rate * float64(time.Second))
}

// Estimator samples public-domain objects and measures their image sizes
type Estimator struct {
	client   *Client
	fetcher  Fetcher
	logger   logger.Logger
	progress EstimateProgress
	rand     *rand.Rand
}

// NewEstimator creates an estimator. A seed of 0 seeds from the clock.
func NewEstimator(fetcher Fetcher, apiBaseURL string, seed int64, log logger.Logger) *Estimator {
	if log == nil {
		log = logger.GetLogger()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Estimator{
		client:  NewClient(fetcher, apiBaseURL),
		fetcher: fetcher,
		logger:  log.WithField("component", "met_estimate"),
		rand:    rand.New(rand.NewSource(seed)),
	}
}

// SetProgress attaches a progress reporter
func (e *Estimator) SetProgress(p EstimateProgress) {
	e.progress = p
}

// Sample picks up to n distinct IDs without replacement
func (e *Estimator) Sample(ids []int64, n int) []int64 {
	if n > len(ids) {
		n = len(ids)
	}
	if n <= 0 {
		return nil
	}
	picked := make([]int64, 0, n)
	for _, i := range e.rand.Perm(len(ids))[:n] {
		picked = append(picked, ids[i])
	}
	return picked
}

// Estimate samples up to sampleSize public-domain objects of catalog. Objects
// that fail are reported and left out of the statistics; only a canceled ctx
// ends the estimate early with an error.
func (e *Estimator) Estimate(ctx context.Context, catalog *Catalog, sampleSize int) (*Estimate, error) {
	sample := e.Sample(catalog.PublicDomainIDs, sampleSize)
	est := &Estimate{
		TotalObjects: catalog.Total,
		PublicDomain: len(catalog.PublicDomainIDs),
		Sampled:      len(sample),
	}

	logger.LogComponentStart(e.logger, "met_estimate", map[string]interface{}{
		"catalog_rows":  catalog.Total,
		"public_domain": est.PublicDomain,
		"sample_size":   len(sample),
	})
	if e.progress != nil {
		e.progress.SampleStarted(len(sample), est.PublicDomain, catalog.Total)
	}

	for i, id := range sample {
		if err := ctx.Err(); err != nil {
			return est, errors.New(errors.ErrorTypeCanceled, 0, "estimate canceled after %d objects: %v", i, err)
		}
		e.measure(ctx, i+1, len(sample), id, est)
	}

	sort.Slice(est.Sizes, func(a, b int) bool { return est.Sizes[a] < est.Sizes[b] })

	logger.LogMetrics(e.logger, "met_estimate", map[string]interface{}{
		"sampled":         est.Sampled,
		"with_images":     est.WithImages,
		"estimated_bytes": est.EstimatedBytes(),
	})
	return est, nil
}

func (e *Estimator) measure(ctx context.Context, index, total int, id int64, est *Estimate) {
	details, err := e.client.Object(ctx, id)
	if err != nil {
		e.logger.WithError(err).WithField("object_id", id).Warn("Failed to fetch object record")
		if e.progress != nil {
			e.progress.ObjectFailed(index, total, id, err)
		}
		return
	}

	if details.PrimaryImage == "" {
		if e.progress != nil {
			e.progress.ObjectWithoutImage(index, total, id)
		}
		return
	}

	res := e.fetcher.Head(ctx, details.PrimaryImage)
	if !res.OK() {
		e.logger.WithError(res.Error()).WithField("object_id", id).Warn("Failed to size image")
		if e.progress != nil {
			e.progress.ObjectFailed(index, total, id, res.Error())
		}
		return
	}
	if res.StatusCode != http.StatusOK || res.ContentLength < 0 {
		e.logger.DebugWithFields("image size not advertised", map[string]interface{}{
			"object_id": id,
			"status":    res.StatusCode,
			"url":       details.PrimaryImage,
		})
		return
	}

	est.WithImages++
	est.TotalSampled += res.ContentLength
	est.Sizes = append(est.Sizes, res.ContentLength)
	if e.progress != nil {
		e.progress.ObjectSized(index, total, id, res.ContentLength, details.Title)
	}
}
