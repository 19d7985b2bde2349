package storage

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	fs := afero.NewMemMapFs()

	manager, err := NewManager(fs, "data/da-vinci-works")
	require.NoError(t, err)

	assert.Equal(t, 0, manager.DownloadedCount())
	assert.False(t, manager.Exists("Mona-Lisa.jpg"))

	data := []byte("jpeg bytes")
	n, err := manager.Save(bytes.NewReader(data), "Mona-Lisa.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	content, err := afero.ReadFile(fs, "data/da-vinci-works/Mona-Lisa.jpg")
	require.NoError(t, err)
	assert.Equal(t, data, content)

	assert.True(t, manager.Exists("Mona-Lisa.jpg"))
	assert.Equal(t, 1, manager.DownloadedCount())
	assert.Equal(t, "data/da-vinci-works/Mona-Lisa.jpg", manager.Path("Mona-Lisa.jpg"))
	assert.Equal(t, "data/da-vinci-works", manager.Dir())
}

func TestManagerIndexesExistingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "out/Last-Supper.png", []byte("png"), 0644))
	require.NoError(t, afero.WriteFile(fs, "out/.Annunciation.jpg-123.tmp", []byte("partial"), 0644))
	require.NoError(t, fs.MkdirAll("out/subdir", 0755))

	manager, err := NewManager(fs, "out")
	require.NoError(t, err)

	assert.Equal(t, 1, manager.DownloadedCount())
	assert.True(t, manager.Exists("Last-Supper.png"))
	assert.False(t, manager.Exists("Annunciation.jpg"))
}

func TestExistsFollowsFilesystem(t *testing.T) {
	fs := afero.NewMemMapFs()
	manager, err := NewManager(fs, "out")
	require.NoError(t, err)

	// created behind the manager's back
	require.NoError(t, afero.WriteFile(fs, "out/late.jpg", []byte("x"), 0644))
	assert.True(t, manager.Exists("late.jpg"))

	require.NoError(t, manager.WriteFile("gone.jpg", []byte("y")))
	require.NoError(t, fs.Remove("out/gone.jpg"))
	assert.False(t, manager.Exists("gone.jpg"))
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestSaveFailureLeavesNothingBehind(t *testing.T) {
	fs := afero.NewMemMapFs()
	manager, err := NewManager(fs, "out")
	require.NoError(t, err)

	_, err = manager.Save(&failingReader{}, "Salvator-Mundi.jpg")
	require.Error(t, err)

	assert.False(t, manager.Exists("Salvator-Mundi.jpg"))
	entries, err := afero.ReadDir(fs, "out")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveRejectsPathNames(t *testing.T) {
	manager, err := NewManager(afero.NewMemMapFs(), "out")
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.jpg", `a\b.jpg`} {
		_, err := manager.Save(bytes.NewReader(nil), name)
		assert.Error(t, err, name)
	}
}

func TestNewManagerFailsOnReadOnlyFs(t *testing.T) {
	_, err := NewManager(afero.NewReadOnlyFs(afero.NewMemMapFs()), "out")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	manager, err := NewManager(afero.NewMemMapFs(), "out")
	require.NoError(t, err)
	require.NoError(t, manager.WriteFile("a.txt", []byte("hello")))

	f, err := manager.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSaveWith(t *testing.T) {
	fs := afero.NewMemMapFs()
	manager, err := NewManager(fs, "out")
	require.NoError(t, err)

	n, err := manager.SaveWith("objects.parquet", func(w io.Writer) error {
		_, err := io.WriteString(w, "PAR1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.True(t, manager.Exists("objects.parquet"))

	_, err = manager.SaveWith("broken.parquet", func(w io.Writer) error {
		io.WriteString(w, "PAR1")
		return errors.New("row 3: bad value")
	})
	require.Error(t, err)
	assert.False(t, manager.Exists("broken.parquet"))

	entries, err := afero.ReadDir(fs, "out")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
