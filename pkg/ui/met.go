package ui

import (
	"fmt"
	"time"

	"artscraper/pkg/met"

	"github.com/dustin/go-humanize"
)

const titleWidth = 50

// SampleStarted prints the catalog totals and the sample size
func (c *Console) SampleStarted(sampled, publicDomain, total int) {
	c.println(fmt.Sprintf("\nTotal objects in CSV: %s", humanize.Comma(int64(total))))
	c.println(fmt.Sprintf("Public domain objects: %s", humanize.Comma(int64(publicDomain))))
	if total > 0 {
		c.println(fmt.Sprintf("Percentage: %.1f%%", float64(publicDomain)/float64(total)*100))
	}
	c.println(fmt.Sprintf("\nSampling %d random public domain objects...", sampled))
	c.PrintRule()
}

// ObjectSized reports the image size of one sampled object
func (c *Console) ObjectSized(index, total int, id, size int64, title string) {
	if title == "" {
		title = "Untitled"
	}
	c.detail(fmt.Sprintf("[%d/%d] Object %d: %s - %s", index, total, id, humanize.IBytes(uint64(size)), truncate(title, titleWidth)))
}

// ObjectWithoutImage reports a sampled object without a primary image
func (c *Console) ObjectWithoutImage(index, total int, id int64) {
	c.detail(fmt.Sprintf("[%d/%d] Object %d: No image", index, total, id))
}

// ObjectFailed reports a sampled object that could not be measured
func (c *Console) ObjectFailed(index, total int, id int64, err error) {
	c.println(c.paint(Yellow)(fmt.Sprintf("[%d/%d] Object %d: Error - %v", index, total, id, err)))
}

// CandidateFound announces a sample download candidate
func (c *Console) CandidateFound(id int64, title, artist string) {
	c.println("\nFound object:")
	c.println(fmt.Sprintf("  Object ID: %d", id))
	c.println(fmt.Sprintf("  Title: %s", title))
	c.println(fmt.Sprintf("  Artist: %s", artist))
}

// CandidateWithoutImage reports a candidate without a primary image
func (c *Console) CandidateWithoutImage(id int64) {
	c.println("  No primary image available for this object")
}

// CandidateFailed reports a candidate that could not be downloaded
func (c *Console) CandidateFailed(id int64, err error) {
	c.println(c.paint(Yellow)(fmt.Sprintf("  Error: %v", err)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Copied reports a dataset file copied unchanged
func (c *Console) Copied(name string, bytes int64) {
	c.detail(fmt.Sprintf("Copied: %s (%s)", name, humanize.Bytes(uint64(bytes))))
}

// Converted reports a CSV file transcoded to Parquet
func (c *Console) Converted(name string, rows int64) {
	c.detail(fmt.Sprintf("Converted: %s (%s rows)", name, humanize.Comma(rows)))
}

// EstimateSummary prints the sample statistics and the extrapolated totals
func (c *Console) EstimateSummary(e *met.Estimate) {
	c.println("")
	c.PrintRule()
	c.PrintHighlight("ESTIMATION SUMMARY")
	c.PrintRule()

	if e.WithImages == 0 {
		c.PrintWarning("\nNo images found in sample!")
		return
	}

	c.println("\nSample Statistics:")
	c.println(fmt.Sprintf("  Objects sampled: %d", e.Sampled))
	c.println(fmt.Sprintf("  Objects with images: %d", e.WithImages))
	c.println(fmt.Sprintf("  Image availability rate: %.1f%%", e.AvailabilityRate()*100))
	c.println(fmt.Sprintf("  Average image size: %s", humanize.IBytes(uint64(e.Average()))))
	c.println(fmt.Sprintf("  Median image size: %s", humanize.IBytes(uint64(e.Median()))))
	c.println(fmt.Sprintf("  Min image size: %s", humanize.IBytes(uint64(e.Min()))))
	c.println(fmt.Sprintf("  Max image size: %s", humanize.IBytes(uint64(e.Max()))))

	c.println("\nEstimated Total Download:")
	c.println(fmt.Sprintf("  Estimated images available: %s", humanize.Comma(int64(e.EstimatedImages()+0.5))))
	c.println(fmt.Sprintf("  Estimated total size: %s", humanize.IBytes(uint64(e.EstimatedBytes()))))

	c.println("\nEstimated Download Time:")
	for _, rate := range []float64{met.SlowRate, met.FastRate} {
		d := e.TransferTime(rate)
		c.println(fmt.Sprintf("  At %s/s: %.1f hours (%.1f days)",
			humanize.IBytes(uint64(rate)), d.Hours(), d.Hours()/24))
	}
}

// SampleSaved prints the downloaded sample image and its API metadata
func (c *Console) SampleSaved(r *met.SampleResult) {
	c.PrintSuccess(fmt.Sprintf("Successfully downloaded image to: %s", r.Path))
	c.println(fmt.Sprintf("  File size: %s", humanize.IBytes(uint64(r.Bytes))))

	if r.Details == nil {
		return
	}
	c.println("\nAvailable metadata from API:")
	c.println(fmt.Sprintf("  Object Date: %s", r.Details.ObjectDate))
	c.println(fmt.Sprintf("  Medium: %s", r.Details.Medium))
	c.println(fmt.Sprintf("  Dimensions: %s", r.Details.Dimensions))
	c.println(fmt.Sprintf("  Department: %s", r.Details.Department))
	c.println(fmt.Sprintf("  Is Public Domain: %t", r.Details.IsPublicDomain))
}

// DatasetCached reports where the downloaded dataset archive was unpacked
func (c *Console) DatasetCached(path string, reused bool) {
	if reused {
		c.println(fmt.Sprintf("Using cached dataset: %s", path))
		return
	}
	c.PrintSuccess(fmt.Sprintf("Downloaded to cache: %s", path))
}

// ImportStarted announces the dataset copy
func (c *Console) ImportStarted(target string) {
	c.println(fmt.Sprintf("\nCopying files to: %s", target))
	c.PrintRule()
}

// ImportFinished prints the number of files written
func (c *Console) ImportFinished(files int, target string, elapsed time.Duration) {
	c.PrintRule()
	c.PrintSuccess(fmt.Sprintf("Successfully copied %d files to %s in %s", files, target, elapsed.Round(time.Millisecond)))
}
