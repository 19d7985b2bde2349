package storage

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const tempSuffix = ".tmp"

// Manager handles file storage inside one directory
type Manager struct {
	fs    afero.Fs
	dir   string
	files map[string]bool
	mu    sync.RWMutex
}

// NewManager creates dir if needed and indexes the files already in it
func NewManager(fs afero.Fs, dir string) (*Manager, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		fs:    fs,
		dir:   dir,
		files: make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles indexes regular files, ignoring leftover temp files
func (m *Manager) scanExistingFiles() error {
	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		m.files[entry.Name()] = true
	}
	return nil
}

// Exists reports whether name is present in the directory. The filesystem is
// authoritative; the index only saves a stat for files written this run.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	known := m.files[name]
	m.mu.RUnlock()
	if known {
		if _, err := m.fs.Stat(m.Path(name)); err == nil {
			return true
		}
		m.mu.Lock()
		delete(m.files, name)
		m.mu.Unlock()
		return false
	}

	if _, err := m.fs.Stat(m.Path(name)); err == nil {
		m.mu.Lock()
		m.files[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save writes everything from r to name and returns the byte count. The
// target only appears once the write completed.
func (m *Manager) Save(r io.Reader, name string) (int64, error) {
	return m.SaveWith(name, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// SaveWith lets write produce the content of name through a temporary file
// that is renamed into place only if write and the close succeed.
func (m *Manager) SaveWith(name string, write func(io.Writer) error) (int64, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return 0, fmt.Errorf("invalid file name %q", name)
	}

	target := m.Path(name)
	out, err := afero.TempFile(m.fs, m.dir, "."+name+"-*"+tempSuffix)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	counter := &countingWriter{w: out}
	err = write(counter)
	closeErr := out.Close()

	if err != nil {
		m.fs.Remove(tempFile)
		return counter.n, fmt.Errorf("failed to save file data: %w", err)
	}
	if closeErr != nil {
		m.fs.Remove(tempFile)
		return counter.n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := m.fs.Rename(tempFile, target); err != nil {
		m.fs.Remove(tempFile)
		return counter.n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.files[name] = true
	m.mu.Unlock()

	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteFile saves data under name
func (m *Manager) WriteFile(name string, data []byte) error {
	_, err := m.Save(bytes.NewReader(data), name)
	return err
}

// Open opens name for reading
func (m *Manager) Open(name string) (afero.File, error) {
	return m.fs.Open(m.Path(name))
}

// Path returns the full path of name inside the directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// Dir returns the managed directory
func (m *Manager) Dir() string {
	return m.dir
}

// Fs returns the filesystem the manager writes to
func (m *Manager) Fs() afero.Fs {
	return m.fs
}

// DownloadedCount returns the number of files known to be in the directory
func (m *Manager) DownloadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
