// Package met works with the Metropolitan Museum open access collection: the
// MetObjects.csv catalog, the collection API, a download-size estimate and a
// single sample download.
package met

import (
	"bufio"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Catalog column names
const (
	ColumnObjectID     = "Object ID"
	ColumnTitle        = "Title"
	ColumnArtist       = "Artist Display Name"
	ColumnHighlight    = "Is Highlight"
	ColumnPublicDomain = "Is Public Domain"
)

var requiredColumns = []string{ColumnObjectID, ColumnTitle, ColumnArtist, ColumnHighlight, ColumnPublicDomain}

// ErrStopScan ends ScanObjects early without an error
var ErrStopScan = stderrors.New("stop scan")

// Object is one catalog row
type Object struct {
	ID           int64
	Title        string
	Artist       string
	IsHighlight  bool
	PublicDomain bool
}

// Catalog summarizes MetObjects.csv
type Catalog struct {
	Total           int
	PublicDomainIDs []int64
}

// PublicDomainShare is the fraction of rows in the public domain
func (c *Catalog) PublicDomainShare() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(len(c.PublicDomainIDs)) / float64(c.Total)
}

// ScanObjects calls fn for every row of the catalog in file order and returns
// the number of rows read. Rows with an unparseable Object ID are counted but
// not passed to fn. Returning ErrStopScan from fn stops the scan cleanly.
func ScanObjects(r io.Reader, fn func(Object) error) (int, error) {
	br := bufio.NewReader(r)
	if bom, _ := br.Peek(3); len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return 0, fmt.Errorf("catalog is missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		i := index[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	rows := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read catalog row %d: %w", rows+1, err)
		}
		rows++

		id, err := strconv.ParseInt(strings.TrimSpace(field(row, ColumnObjectID)), 10, 64)
		if err != nil {
			continue
		}
		obj := Object{
			ID:           id,
			Title:        field(row, ColumnTitle),
			Artist:       field(row, ColumnArtist),
			IsHighlight:  field(row, ColumnHighlight) == "True",
			PublicDomain: field(row, ColumnPublicDomain) == "True",
		}
		if err := fn(obj); err != nil {
			if stderrors.Is(err, ErrStopScan) {
				return rows, nil
			}
			return rows, err
		}
	}
}

// LoadCatalog reads the catalog at path and collects the public-domain IDs
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	catalog := &Catalog{}
	total, err := ScanObjects(f, func(obj Object) error {
		if obj.PublicDomain {
			catalog.PublicDomainIDs = append(catalog.PublicDomainIDs, obj.ID)
		}
		return nil
	})
	catalog.Total = total
	if err != nil {
		return nil, err
	}
	return catalog, nil
}
