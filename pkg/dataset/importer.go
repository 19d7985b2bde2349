// Package dataset materializes the open-access dataset: it downloads the
// archive into a local cache and imports the cached files into the data
// directory, transcoding CSV files to Parquet on the way.
package dataset

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"artscraper/pkg/logger"
	"artscraper/pkg/storage"

	"github.com/spf13/afero"
)

// Progress receives one event per imported file
type Progress interface {
	Copied(name string, bytes int64)
	Converted(name string, rows int64)
}

// Report lists the imported files by target name
type Report struct {
	Copied    []string
	Converted []string
}

// Total is the number of files written
func (r *Report) Total() int {
	return len(r.Copied) + len(r.Converted)
}

// Importer copies the top-level files of a cache directory into a target
// directory
type Importer struct {
	fs         afero.Fs
	convertCSV bool
	logger     logger.Logger
	progress   Progress
}

// NewImporter creates an importer. With convertCSV set, every .csv file is
// written as a same-named .parquet file instead of being copied.
func NewImporter(fs afero.Fs, convertCSV bool, log logger.Logger) *Importer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Importer{
		fs:         fs,
		convertCSV: convertCSV,
		logger:     log.WithField("component", "dataset_import"),
	}
}

// SetProgress attaches a progress reporter
func (i *Importer) SetProgress(p Progress) {
	i.progress = p
}

// ParquetName maps a CSV file name to its Parquet counterpart
func ParquetName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".parquet"
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// Import processes every regular file directly inside cacheDir in name
// order; subdirectories are ignored. Any failure stops the import.
func (i *Importer) Import(cacheDir, targetDir string) (*Report, error) {
	entries, err := afero.ReadDir(i.fs, cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset cache: %w", err)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Name() < entries[b].Name() })

	store, err := storage.NewManager(i.fs, targetDir)
	if err != nil {
		return nil, err
	}

	logger.LogComponentStart(i.logger, "dataset_import", map[string]interface{}{
		"cache_dir":   cacheDir,
		"target_dir":  targetDir,
		"convert_csv": i.convertCSV,
	})

	report := &Report{}
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		name := entry.Name()
		src := filepath.Join(cacheDir, name)

		if i.convertCSV && isCSV(name) {
			rows, err := i.convert(src, store, ParquetName(name))
			if err != nil {
				return report, err
			}
			report.Converted = append(report.Converted, ParquetName(name))
			if i.progress != nil {
				i.progress.Converted(ParquetName(name), rows)
			}
			continue
		}

		n, err := i.copy(src, store, name)
		if err != nil {
			return report, err
		}
		report.Copied = append(report.Copied, name)
		if i.progress != nil {
			i.progress.Copied(name, n)
		}
	}

	logger.LogMetrics(i.logger, "dataset_import", map[string]interface{}{
		"copied":    len(report.Copied),
		"converted": len(report.Converted),
	})
	return report, nil
}

func (i *Importer) copy(src string, store *storage.Manager, name string) (int64, error) {
	f, err := i.fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	n, err := store.Save(f, name)
	if err != nil {
		return n, fmt.Errorf("failed to copy %s: %w", name, err)
	}
	i.logger.DebugWithFields("Copied dataset file", map[string]interface{}{
		"file":  name,
		"bytes": n,
	})
	return n, nil
}

func (i *Importer) convert(src string, store *storage.Manager, name string) (int64, error) {
	columns, rows, err := InferColumns(i.fs, src)
	if err != nil {
		return 0, err
	}

	kinds := make(map[string]interface{}, len(columns))
	for _, c := range columns {
		kinds[c.Name] = c.Kind.String()
	}
	i.logger.WithFields(map[string]interface{}{
		"file":    src,
		"rows":    rows,
		"columns": len(columns),
	}).Debug("Inferred CSV column types")
	i.logger.DebugWithFields("Column kinds", kinds)

	var written int64
	_, err = store.SaveWith(name, func(w io.Writer) error {
		var werr error
		written, werr = WriteParquet(i.fs, src, columns, w)
		return werr
	})
	if err != nil {
		return written, fmt.Errorf("failed to convert %s: %w", src, err)
	}
	return written, nil
}
