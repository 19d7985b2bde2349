package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Tally keeps track of acquisition outcomes for the summary
type Tally struct {
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
	StartTime  time.Time
}

// Successful counts downloaded and already present items
func (t Tally) Successful() int {
	return t.Downloaded + t.Skipped
}

// Elapsed returns the time since the tally started
func (t Tally) Elapsed() time.Duration {
	if t.StartTime.IsZero() {
		return 0
	}
	return time.Since(t.StartTime)
}

// Tally returns a copy of the current counts
func (c *Console) Tally() Tally {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tally
}

// ExtractionStarted announces the listing pages about to be fetched
func (c *Console) ExtractionStarted(pages int) {
	c.println(fmt.Sprintf("Starting to extract images from all %d pages...", pages))
	c.PrintRule()
}

// PageStarted announces a listing page fetch
func (c *Console) PageStarted(number int, url string) {
	c.detail(fmt.Sprintf("\nFetching page %d...", number))
}

// PageFound reports how many images a page container held
func (c *Console) PageFound(number, images int) {
	c.detail(fmt.Sprintf("Found %d images on page %d", images, number))
}

// PageFailed reports a page that could not be fetched
func (c *Console) PageFailed(number int, url string, err error) {
	c.println(c.paint(Yellow)(fmt.Sprintf("Error fetching page %d (%s): %v", number, url, err)))
}

// ContainerMissing reports a page without the gallery container
func (c *Console) ContainerMissing(number int) {
	c.println(c.paint(Yellow)(fmt.Sprintf("Warning: Could not find artwork container on page %d", number)))
}

// DuplicateTitle reports a title seen on more than one listing entry
func (c *Console) DuplicateTitle(title, earlierURL, laterURL, policy string) {
	c.detail(c.paint(Yellow)(fmt.Sprintf("Warning: duplicate title %q (%s); %s kept per %s policy",
		title, laterURL, KeptURL(policy, earlierURL, laterURL), policy)))
}

// KeptURL names the URL a duplicate policy keeps
func KeptURL(policy, earlierURL, laterURL string) string {
	switch policy {
	case "first-wins":
		return earlierURL
	case "collect-all":
		return "both"
	default:
		return laterURL
	}
}

// ExtractionFinished prints the total number of artworks found
func (c *Console) ExtractionFinished(total int) {
	c.println("\n" + Rule)
	c.println(fmt.Sprintf("Total artworks found: %d", total))
	c.PrintRule()
}

// AcquireStarted announces the target directory
func (c *Console) AcquireStarted(dir string, total int) {
	c.mu.Lock()
	c.tally = Tally{StartTime: time.Now()}
	c.mu.Unlock()

	c.println(fmt.Sprintf("Saving images to: %s", dir))
	c.PrintRule()
}

// Skipped reports an artwork whose file already exists
func (c *Console) Skipped(index, total int, name string) {
	c.mu.Lock()
	c.tally.Skipped++
	c.mu.Unlock()
	c.detail(fmt.Sprintf("[%d/%d] Skipping (already exists): %s", index, total, name))
}

// Downloaded reports a fetched and saved artwork
func (c *Console) Downloaded(index, total int, name string, bytes int64) {
	c.mu.Lock()
	c.tally.Downloaded++
	c.tally.Bytes += bytes
	c.mu.Unlock()
	c.detail(fmt.Sprintf("[%d/%d] Downloaded: %s", index, total, name))
}

// Failed reports an artwork that could not be acquired
func (c *Console) Failed(index, total int, name string, err error) {
	c.mu.Lock()
	c.tally.Failed++
	c.mu.Unlock()
	c.println(c.paint(Red)(fmt.Sprintf("[%d/%d] Failed to download %s: %v", index, total, name, err)))
}

// AcquireFinished prints the acquisition summary
func (c *Console) AcquireFinished(successful, failed, total int, dir string) {
	t := c.Tally()

	c.println("\n" + Rule)
	c.println(c.paint(Green)("✓ Download complete!"))
	c.println(fmt.Sprintf("  Successful: %d/%d", successful, total))
	c.println(fmt.Sprintf("  Failed: %d/%d", failed, total))
	if t.Bytes > 0 {
		c.println(fmt.Sprintf("  Transferred: %s in %s", humanize.Bytes(uint64(t.Bytes)), t.Elapsed().Round(time.Millisecond)))
	}
	c.println(fmt.Sprintf("  Location: %s", dir))
}

// ManifestSaved reports the written manifest
func (c *Console) ManifestSaved(path string, entries int) {
	c.println(c.paint(Green)(fmt.Sprintf("\n✓ Manifest saved to: %s", path)))
	c.println(fmt.Sprintf("  Total entries: %d", entries))
	c.println("  Format: Parquet")
}
