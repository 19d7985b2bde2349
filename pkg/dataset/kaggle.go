package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"artscraper/pkg/errors"
	"artscraper/pkg/fetch"
	"artscraper/pkg/logger"

	"github.com/spf13/afero"
)

// Downloader streams a GET response into a writer
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer, opts ...fetch.RequestOption) *fetch.Result
}

// ParseHandle splits an owner/slug dataset handle
func ParseHandle(handle string) (owner, slug string, err error) {
	parts := strings.Split(handle, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(handle, "..") {
		return "", "", fmt.Errorf("dataset handle must be owner/slug, got %q", handle)
	}
	return parts[0], parts[1], nil
}

// KaggleSource downloads dataset archives from the Kaggle API into a cache
type KaggleSource struct {
	downloader Downloader
	fs         afero.Fs
	apiBaseURL string
	cacheDir   string
	username   string
	key        string
	logger     logger.Logger
}

// NewKaggleSource creates a source caching under cacheDir
func NewKaggleSource(downloader Downloader, fs afero.Fs, apiBaseURL, cacheDir string, log logger.Logger) *KaggleSource {
	if log == nil {
		log = logger.GetLogger()
	}
	return &KaggleSource{
		downloader: downloader,
		fs:         fs,
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		cacheDir:   cacheDir,
		logger:     log.WithField("component", "kaggle"),
	}
}

// SetCredentials sets the API username and key used for downloads
func (k *KaggleSource) SetCredentials(username, key string) {
	k.username = username
	k.key = key
}

// completeSuffix names the marker written beside a dataset directory once it
// is fully unpacked
const completeSuffix = ".complete"

// CachePath returns the cache directory of a dataset handle
func (k *KaggleSource) CachePath(handle string) (string, error) {
	owner, slug, err := ParseHandle(handle)
	if err != nil {
		return "", err
	}
	return filepath.Join(k.cacheDir, owner, slug), nil
}

func markerPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+completeSuffix)
}

// Cached reports whether handle was completely unpacked by an earlier
// download. Directories left behind by an interrupted unpack don't count.
func (k *KaggleSource) Cached(handle string) bool {
	path, err := k.CachePath(handle)
	if err != nil {
		return false
	}
	if ok, _ := afero.Exists(k.fs, markerPath(path)); !ok {
		return false
	}
	entries, err := afero.ReadDir(k.fs, path)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Mode().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			return true
		}
	}
	return false
}

// Download makes sure the dataset is unpacked in the cache and returns its
// directory. A populated cache is reused without any request. On failure the
// dataset directory is removed, so the next call downloads again.
func (k *KaggleSource) Download(ctx context.Context, handle string) (string, error) {
	path, err := k.download(ctx, handle)
	if err != nil && path != "" {
		if rmErr := k.fs.RemoveAll(path); rmErr != nil {
			k.logger.WarnWithFields("failed to clean up dataset cache", map[string]interface{}{
				"path":  path,
				"error": rmErr.Error(),
			})
		}
		return "", err
	}
	return path, err
}

func (k *KaggleSource) download(ctx context.Context, handle string) (string, error) {
	path, err := k.CachePath(handle)
	if err != nil {
		return "", err
	}
	if k.Cached(handle) {
		k.logger.InfoWithFields("Using cached dataset", map[string]interface{}{
			"handle": handle,
			"path":   path,
		})
		return path, nil
	}
	if k.username == "" || k.key == "" {
		return "", errors.New(errors.ErrorTypeAuth, 0, "Kaggle credentials are required to download %s", handle)
	}

	// a stale marker must not outlive the directory it describes
	k.fs.Remove(markerPath(path))
	if err := k.fs.MkdirAll(path, 0755); err != nil {
		return path, fmt.Errorf("failed to create dataset cache: %w", err)
	}

	archive, err := afero.TempFile(k.fs, path, ".download-*.zip")
	if err != nil {
		return path, fmt.Errorf("failed to create archive file: %w", err)
	}
	archiveName := archive.Name()
	defer k.fs.Remove(archiveName)

	url := fmt.Sprintf("%s/datasets/download/%s", k.apiBaseURL, handle)
	k.logger.InfoWithFields("Downloading dataset archive", map[string]interface{}{
		"handle": handle,
		"url":    url,
	})
	res := k.downloader.Download(ctx, url, archive, fetch.WithBasicAuth(k.username, k.key))
	closeErr := archive.Close()
	if !res.OK() {
		return path, fmt.Errorf("failed to download %s: %w", handle, res.Error())
	}
	if closeErr != nil {
		return path, fmt.Errorf("failed to write archive: %w", closeErr)
	}

	files, err := unzip(k.fs, archiveName, path)
	if err != nil {
		return path, err
	}
	if err := afero.WriteFile(k.fs, markerPath(path), nil, 0644); err != nil {
		return path, fmt.Errorf("failed to mark dataset cache complete: %w", err)
	}
	k.logger.InfoWithFields("Dataset unpacked", map[string]interface{}{
		"handle": handle,
		"path":   path,
		"files":  files,
		"bytes":  res.ContentLength,
	})
	return path, nil
}

// unzip extracts archive into dir and returns the number of files written.
// Entries that would land outside dir are rejected.
func unzip(fs afero.Fs, archive, dir string) (int, error) {
	f, err := fs.Open(archive)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat archive: %w", err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return 0, errors.New(errors.ErrorTypeParsing, 0, "dataset archive is not a zip file: %v", err)
	}

	files := 0
	for _, zf := range zr.File {
		name := filepath.Clean(filepath.FromSlash(zf.Name))
		if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
			return files, fmt.Errorf("archive entry %q escapes the target directory", zf.Name)
		}
		target := filepath.Join(dir, name)

		if zf.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0755); err != nil {
				return files, fmt.Errorf("failed to create %s: %w", target, err)
			}
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return files, fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		if err := extractFile(fs, zf, target); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

func extractFile(fs afero.Fs, zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", zf.Name, err)
	}
	defer rc.Close()

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", zf.Name, err)
	}
	return out.Close()
}
