// Package manifest persists the outcome of an acquisition run as a single
// Parquet table, one row per artwork.
package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"
)

// DefaultFilename is the manifest file name inside the target directory
const DefaultFilename = "manifest.parquet"

// Status is the outcome of one artwork
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is one of the two known statuses
func (s Status) Valid() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Metadata is reserved for enrichment. Every field is absent unless a
// source fills it in.
type Metadata struct {
	Year       *string
	Source     *string
	Medium     *string
	Dimensions *string
	Location   *string
	Notes      *string
}

// Optional returns nil for an empty string and a pointer to s otherwise
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Entry is one manifest row
type Entry struct {
	ID            int64
	Filename      string
	OriginalTitle string
	URL           string
	Status        Status
	Metadata      Metadata
	Error         string // set only when Status is StatusFailed
}

// row is the on-disk layout
type row struct {
	ID            int64   `parquet:"id"`
	Filename      string  `parquet:"filename"`
	OriginalTitle string  `parquet:"original_title"`
	URL           string  `parquet:"url"`
	Status        string  `parquet:"status"`
	Year          *string `parquet:"year"`
	Source        *string `parquet:"source"`
	Medium        *string `parquet:"medium"`
	Dimensions    *string `parquet:"dimensions"`
	Location      *string `parquet:"location"`
	Notes         *string `parquet:"notes"`
	Error         *string `parquet:"error"`
}

func toRow(e Entry) row {
	return row{
		ID:            e.ID,
		Filename:      e.Filename,
		OriginalTitle: e.OriginalTitle,
		URL:           e.URL,
		Status:        string(e.Status),
		Year:          e.Metadata.Year,
		Source:        e.Metadata.Source,
		Medium:        e.Metadata.Medium,
		Dimensions:    e.Metadata.Dimensions,
		Location:      e.Metadata.Location,
		Notes:         e.Metadata.Notes,
		Error:         Optional(e.Error),
	}
}

func fromRow(r row) Entry {
	e := Entry{
		ID:            r.ID,
		Filename:      r.Filename,
		OriginalTitle: r.OriginalTitle,
		URL:           r.URL,
		Status:        Status(r.Status),
		Metadata: Metadata{
			Year:       r.Year,
			Source:     r.Source,
			Medium:     r.Medium,
			Dimensions: r.Dimensions,
			Location:   r.Location,
			Notes:      r.Notes,
		},
	}
	if r.Error != nil {
		e.Error = *r.Error
	}
	return e
}

// Write serializes entries to dir/name, replacing any existing file. The rows
// go to a temporary file that is renamed over the manifest, so a failed write
// leaves the previous manifest intact. Errors are fatal to callers.
func Write(fs afero.Fs, dir, name string, entries []Entry) (string, error) {
	rows := make([]row, len(entries))
	for i, e := range entries {
		if !e.Status.Valid() {
			return "", fmt.Errorf("entry %d (%q) has invalid status %q", e.ID, e.OriginalTitle, e.Status)
		}
		rows[i] = toRow(e)
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := afero.TempFile(fs, dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create manifest file: %w", err)
	}
	tempFile := f.Name()

	if err := parquet.Write(f, rows); err != nil {
		f.Close()
		fs.Remove(tempFile)
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(tempFile)
		return "", fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := fs.Rename(tempFile, path); err != nil {
		fs.Remove(tempFile)
		return "", fmt.Errorf("failed to replace manifest: %w", err)
	}

	return path, nil
}

// Read loads every row of the manifest at path
func Read(fs afero.Fs, path string) ([]Entry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}

	rows, err := parquet.Read[row](f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = fromRow(r)
	}
	return entries, nil
}

// Summary counts entries by status
type Summary struct {
	Total      int
	Successful int
	Failed     int
}

// Summarize counts entries by status
func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case StatusSuccess:
			s.Successful++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Failed returns the failed entries in order
func Failed(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out
}
