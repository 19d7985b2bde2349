package met

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"artscraper/pkg/logger"
	"artscraper/pkg/manifest"
	"artscraper/pkg/storage"

	"github.com/spf13/afero"
)

// Source is recorded in the metadata of every downloaded Met object
const Source = "The Metropolitan Museum of Art"

// ErrNoSample means no highlighted public-domain object had a downloadable
// image
var ErrNoSample = stderrors.New("no suitable objects found")

// SampleProgress receives one event per candidate object
type SampleProgress interface {
	CandidateFound(id int64, title, artist string)
	CandidateWithoutImage(id int64)
	CandidateFailed(id int64, err error)
}

// SampleResult describes the downloaded object
type SampleResult struct {
	Object  Object
	Details *ObjectDetails
	Path    string
	Bytes   int64
	Entry   manifest.Entry
}

// Sampler downloads the image of the first highlighted public-domain object
type Sampler struct {
	client   *Client
	fetcher  Fetcher
	fs       afero.Fs
	logger   logger.Logger
	progress SampleProgress
}

// NewSampler creates a sampler writing through fs
func NewSampler(fetcher Fetcher, apiBaseURL string, fs afero.Fs, log logger.Logger) *Sampler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Sampler{
		client:  NewClient(fetcher, apiBaseURL),
		fetcher: fetcher,
		fs:      fs,
		logger:  log.WithField("component", "met_sample"),
	}
}

// SetProgress attaches a progress reporter
func (s *Sampler) SetProgress(p SampleProgress) {
	s.progress = p
}

// SampleFilename is the file name of a downloaded sample object
func SampleFilename(id int64) string {
	return fmt.Sprintf("test_object_%d.jpg", id)
}

// Download walks the catalog at catalogPath in order and saves the primary
// image of the first highlighted public-domain object that has one into dir.
// Candidates whose record or image cannot be fetched are skipped.
func (s *Sampler) Download(ctx context.Context, catalogPath, dir string) (*SampleResult, error) {
	f, err := s.fs.Open(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	var (
		result *SampleResult
		store  *storage.Manager
	)
	_, err = ScanObjects(f, func(obj Object) error {
		if !obj.IsHighlight || !obj.PublicDomain {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.progress != nil {
			s.progress.CandidateFound(obj.ID, obj.Title, obj.Artist)
		}

		details, err := s.client.Object(ctx, obj.ID)
		if err != nil {
			s.skip(obj.ID, err)
			return nil
		}
		if details.PrimaryImage == "" {
			if s.progress != nil {
				s.progress.CandidateWithoutImage(obj.ID)
			}
			return nil
		}

		res := s.fetcher.Get(ctx, details.PrimaryImage)
		if !res.OK() {
			s.skip(obj.ID, res.Error())
			return nil
		}

		if store == nil {
			if store, err = storage.NewManager(s.fs, dir); err != nil {
				return err
			}
		}
		name := SampleFilename(obj.ID)
		n, err := store.Save(bytes.NewReader(res.Body), name)
		if err != nil {
			return err
		}

		result = &SampleResult{
			Object:  obj,
			Details: details,
			Path:    store.Path(name),
			Bytes:   n,
			Entry:   entryFor(obj, details, name),
		}
		return ErrStopScan
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrNoSample
	}

	s.logger.InfoWithFields("Sample object downloaded", map[string]interface{}{
		"object_id": result.Object.ID,
		"path":      result.Path,
		"bytes":     result.Bytes,
	})
	return result, nil
}

func (s *Sampler) skip(id int64, err error) {
	s.logger.WithError(err).WithField("object_id", id).Warn("Skipping sample candidate")
	if s.progress != nil {
		s.progress.CandidateFailed(id, err)
	}
}

func entryFor(obj Object, details *ObjectDetails, filename string) manifest.Entry {
	title := details.Title
	if title == "" {
		title = obj.Title
	}
	return manifest.Entry{
		ID:            obj.ID,
		Filename:      filename,
		OriginalTitle: title,
		URL:           details.PrimaryImage,
		Status:        manifest.StatusSuccess,
		Metadata: manifest.Metadata{
			Year:       manifest.Optional(details.ObjectDate),
			Source:     manifest.Optional(Source),
			Medium:     manifest.Optional(details.Medium),
			Dimensions: manifest.Optional(details.Dimensions),
			Location:   manifest.Optional(details.Department),
		},
	}
}
