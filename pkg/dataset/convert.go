package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"
)

// rowBatch is the number of rows handed to the parquet writer at once
const rowBatch = 1024

// Kind is the inferred type of a CSV column
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindInt64
	KindDouble
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	default:
		return "string"
	}
}

// naValues are the cell values read as missing
var naValues = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNA reports whether a cell counts as missing
func IsNA(cell string) bool {
	return naValues[cell]
}

func parseBool(cell string) (bool, bool) {
	switch cell {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// Column is one inferred CSV column
type Column struct {
	Name string
	Kind Kind
}

type columnStats struct {
	seen, missing             bool
	allBool, allInt, allFloat bool
}

func newColumnStats() *columnStats {
	return &columnStats{allBool: true, allInt: true, allFloat: true}
}

func (s *columnStats) observe(cell string) {
	if IsNA(cell) {
		s.missing = true
		return
	}
	s.seen = true
	if s.allBool {
		_, s.allBool = parseBool(cell)
	}
	if s.allInt {
		_, err := strconv.ParseInt(cell, 10, 64)
		s.allInt = err == nil
	}
	if s.allFloat {
		_, err := strconv.ParseFloat(cell, 64)
		s.allFloat = err == nil
	}
}

// kind follows the usual dataframe rules: integer and boolean columns with
// missing cells cannot stay integer or boolean, integers widen to double and
// booleans fall back to text. A column with no values at all is double.
func (s *columnStats) kind() Kind {
	switch {
	case !s.seen:
		return KindDouble
	case s.allBool && !s.missing:
		return KindBoolean
	case s.allInt && !s.missing:
		return KindInt64
	case s.allInt || s.allFloat:
		return KindDouble
	default:
		return KindString
	}
}

// UniqueNames renames repeated header names to name.1, name.2, ... and gives
// empty names a positional placeholder
func UniqueNames(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))

	for i, name := range header {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for taken[candidate] {
			counts[name]++
			candidate = fmt.Sprintf("%s.%d", name, counts[name])
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

func openCSV(fs afero.Fs, path string) (*csv.Reader, io.Closer, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, nil, err
	}

	br := bufio.NewReader(f)
	if bom, _ := br.Peek(3); len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true
	return r, f, nil
}

// InferColumns reads the CSV at path once and returns its columns with their
// inferred kinds
func InferColumns(fs afero.Fs, path string) ([]Column, int64, error) {
	r, closer, err := openCSV(fs, path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer closer.Close()

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	names := UniqueNames(append([]string(nil), header...))

	stats := make([]*columnStats, len(names))
	for i := range stats {
		stats[i] = newColumnStats()
	}

	var rows int64
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rows, fmt.Errorf("failed to read %s row %d: %w", path, rows+1, err)
		}
		rows++
		for i, st := range stats {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			st.observe(cell)
		}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Kind: stats[i].kind()}
	}
	return columns, rows, nil
}

// Schema builds the parquet schema for columns. Every column is optional.
func Schema(name string, columns []Column) *parquet.Schema {
	group := make(parquet.Group, len(columns))
	for _, c := range columns {
		var node parquet.Node
		switch c.Kind {
		case KindBoolean:
			node = parquet.Leaf(parquet.BooleanType)
		case KindInt64:
			node = parquet.Int(64)
		case KindDouble:
			node = parquet.Leaf(parquet.DoubleType)
		default:
			node = parquet.String()
		}
		group[c.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema(name, group)
}

// WriteParquet makes a second pass over the CSV at path and writes its rows
// to w using the inferred columns. It returns the number of rows written.
func WriteParquet(fs afero.Fs, path string, columns []Column, w io.Writer) (int64, error) {
	schema := Schema(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), columns)

	// leaf order of a group follows the sorted field names, not the header
	position := make(map[string]int, len(columns))
	for i, f := range schema.Fields() {
		position[f.Name()] = i
	}
	leaf := make([]int, len(columns))
	for i, c := range columns {
		leaf[i] = position[c.Name]
	}

	r, closer, err := openCSV(fs, path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer closer.Close()
	if _, err := r.Read(); err != nil {
		return 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	writer := parquet.NewWriter(w, schema)
	batch := make([]parquet.Row, 0, rowBatch)
	var written int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := writer.WriteRows(batch)
		written += int64(n)
		batch = batch[:0]
		return err
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, fmt.Errorf("failed to read %s row %d: %w", path, written+int64(len(batch))+1, err)
		}

		row := make(parquet.Row, len(columns))
		for i, c := range columns {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			row[leaf[i]] = cellValue(c.Kind, cell).Level(0, definitionLevel(cell), leaf[i])
		}
		batch = append(batch, row)

		if len(batch) == rowBatch {
			if err := flush(); err != nil {
				return written, fmt.Errorf("failed to write parquet rows: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return written, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return written, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return written, nil
}

func definitionLevel(cell string) int {
	if IsNA(cell) {
		return 0
	}
	return 1
}

// cellValue converts a cell already classified by InferColumns
func cellValue(kind Kind, cell string) parquet.Value {
	if IsNA(cell) {
		return parquet.NullValue()
	}
	switch kind {
	case KindBoolean:
		b, _ := parseBool(cell)
		return parquet.BooleanValue(b)
	case KindInt64:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return parquet.Int64Value(n)
	case KindDouble:
		f, _ := strconv.ParseFloat(cell, 64)
		return parquet.DoubleValue(f)
	default:
		return parquet.ByteArrayValue([]byte(cell))
	}
}
