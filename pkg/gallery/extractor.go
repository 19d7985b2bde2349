// Package gallery extracts artwork titles and image URLs from the paginated
// listing pages of a static gallery site.
package gallery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"artscraper/pkg/errors"
	"artscraper/pkg/fetch"
	"artscraper/pkg/logger"
	"artscraper/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// DefaultContainerTag is the element type holding the listing
const DefaultContainerTag = "div"

// Fetcher performs the page GET requests
type Fetcher interface {
	Get(ctx context.Context, url string, opts ...fetch.RequestOption) *fetch.Result
}

// Progress receives user-facing progress events
type Progress interface {
	PageStarted(number int, url string)
	PageFound(number, images int)
	PageFailed(number int, url string, err error)
	ContainerMissing(number int)
	DuplicateTitle(title, earlierURL, laterURL, policy string)
}

// Observer receives per-page counts, for metrics
type Observer interface {
	ObservePage(outcome string, added int)
	ObserveDuplicate()
}

// Options configures an Extractor
type Options struct {
	BaseURL        string
	PageURLs       []string
	ContainerClass string
	ContainerTag   string
	Policy         models.DuplicatePolicy
}

// PageReport describes what happened on one listing page
type PageReport struct {
	Number         int
	URL            string
	ContainerFound bool
	Images         int // img elements inside the container
	Added          int // new collection entries
	Dropped        int // img elements without a usable alt or src
	Err            error
}

// Outcome is the metrics label for the page
func (r PageReport) Outcome() string {
	switch {
	case r.Err != nil:
		return string(errors.TypeOf(r.Err))
	case !r.ContainerFound:
		return "no_container"
	default:
		return "ok"
	}
}

// Extractor walks the configured pages in order
type Extractor struct {
	fetcher  Fetcher
	opts     Options
	base     *url.URL
	logger   logger.Logger
	progress Progress
	observer Observer
}

// NewExtractor validates opts and creates an extractor. An unusable base URL
// is a configuration error.
func NewExtractor(fetcher Fetcher, opts Options, log logger.Logger) (*Extractor, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := fetch.ValidateURL(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("gallery base URL: %w", err)
	}
	base, _ := url.Parse(opts.BaseURL)

	if opts.ContainerTag == "" {
		opts.ContainerTag = DefaultContainerTag
	}
	if opts.Policy == "" {
		opts.Policy = models.LastWins
	}

	return &Extractor{
		fetcher: fetcher,
		opts:    opts,
		base:    base,
		logger:  log.WithField("component", "gallery"),
	}, nil
}

// SetProgress attaches a progress reporter
func (e *Extractor) SetProgress(p Progress) {
	e.progress = p
}

// SetObserver attaches a metrics observer
func (e *Extractor) SetObserver(o Observer) {
	e.observer = o
}

// Extract fetches every page sequentially and collects title to URL pairs in
// document order. Unreachable pages and pages without the container are
// skipped. A malformed page URL or a canceled ctx stops extraction with an
// error; the pages handled so far are still reported.
func (e *Extractor) Extract(ctx context.Context) (*models.Collection, []PageReport, error) {
	collection := models.NewCollection(e.opts.Policy)
	reports := make([]PageReport, 0, len(e.opts.PageURLs))

	for i, pageURL := range e.opts.PageURLs {
		report := e.extractPage(ctx, i+1, pageURL, collection)
		reports = append(reports, report)

		if e.observer != nil {
			e.observer.ObservePage(report.Outcome(), report.Added)
		}
		logger.LogPage(e.logger, pageURL, report.Number, report.Images, report.Added, report.Err)

		if report.Err == nil {
			continue
		}
		if errors.IsPermanent(report.Err) {
			return collection, reports, fmt.Errorf("page %d: %w", report.Number, report.Err)
		}
		if errors.TypeOf(report.Err) == errors.ErrorTypeCanceled || ctx.Err() != nil {
			return collection, reports, fmt.Errorf("extraction interrupted at page %d: %w", report.Number, report.Err)
		}
	}

	return collection, reports, nil
}

func (e *Extractor) extractPage(ctx context.Context, number int, pageURL string, collection *models.Collection) PageReport {
	report := PageReport{Number: number, URL: pageURL}
	if e.progress != nil {
		e.progress.PageStarted(number, pageURL)
	}

	res := e.fetcher.Get(ctx, pageURL)
	if !res.OK() {
		report.Err = res.Error()
		if e.progress != nil {
			e.progress.PageFailed(number, pageURL, report.Err)
		}
		return report
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		report.Err = errors.New(errors.ErrorTypeParsing, 0, "failed to parse page %d: %v", number, err)
		if e.progress != nil {
			e.progress.PageFailed(number, pageURL, report.Err)
		}
		return report
	}

	container := e.findContainer(doc)
	if container.Length() == 0 {
		e.logger.WarnWithFields("gallery container not found", map[string]interface{}{
			"page":  number,
			"url":   pageURL,
			"class": e.opts.ContainerClass,
		})
		if e.progress != nil {
			e.progress.ContainerMissing(number)
		}
		return report
	}
	report.ContainerFound = true

	images := container.Find("img")
	report.Images = images.Length()
	if e.progress != nil {
		e.progress.PageFound(number, report.Images)
	}

	images.Each(func(_ int, img *goquery.Selection) {
		artwork, ok := e.artworkFrom(img, number)
		if !ok {
			report.Dropped++
			return
		}

		added, dup := collection.Insert(artwork)
		if added {
			report.Added++
		}
		if dup != nil {
			e.reportDuplicate(*dup, collection.Policy())
		}
	})

	return report
}

// findContainer returns the first element whose class attribute is exactly
// the configured class string
func (e *Extractor) findContainer(doc *goquery.Document) *goquery.Selection {
	return doc.Find(e.opts.ContainerTag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		return ok && class == e.opts.ContainerClass
	}).First()
}

func (e *Extractor) artworkFrom(img *goquery.Selection, page int) (models.Artwork, bool) {
	alt, _ := img.Attr("alt")
	src, _ := img.Attr("src")
	title := strings.TrimSpace(alt)
	src = strings.TrimSpace(src)

	if title == "" || src == "" {
		e.logger.DebugWithFields("dropping image without alt or src", map[string]interface{}{
			"page": page,
			"alt":  alt,
			"src":  src,
		})
		return models.Artwork{}, false
	}

	ref, err := url.Parse(src)
	if err != nil {
		e.logger.DebugWithFields("dropping image with malformed src", map[string]interface{}{
			"page":  page,
			"src":   src,
			"error": err.Error(),
		})
		return models.Artwork{}, false
	}

	return models.Artwork{
		Title:     title,
		SourceURL: e.base.ResolveReference(ref).String(),
		Page:      page,
	}, true
}

func (e *Extractor) reportDuplicate(d models.Duplicate, policy models.DuplicatePolicy) {
	logger.LogDuplicate(e.logger, d.Title, d.EarlierURL, d.LaterURL, string(policy))
	if e.observer != nil {
		e.observer.ObserveDuplicate()
	}
	if e.progress != nil {
		e.progress.DuplicateTitle(d.Title, d.EarlierURL, d.LaterURL, string(policy))
	}
}
