package staging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStager(t *testing.T, maxBytes int64) *Stager {
	t.Helper()
	s, err := NewStager(t.TempDir(), 0, maxBytes)
	require.NoError(t, err)
	return s
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestStageAndRelease(t *testing.T) {
	s := newTestStager(t, 0)

	f, err := s.Stage(strings.NewReader("hello"), "../../etc/Cat.PNG")
	require.NoError(t, err)
	assert.Equal(t, "../../etc/Cat.PNG", f.Name())
	assert.Equal(t, int64(5), f.Size())
	assert.Equal(t, s.Dir(), filepath.Dir(f.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(f.Path()), FilePrefix))
	assert.True(t, strings.HasSuffix(f.Path(), ".png"))

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, f.Release())
	require.NoError(t, f.Release())
	assert.Empty(t, dirEntries(t, s.Dir()))
}

func TestStageUniqueNames(t *testing.T) {
	s := newTestStager(t, 0)

	a, err := s.Stage(strings.NewReader("a"), "same.jpg")
	require.NoError(t, err)
	defer a.Release()
	b, err := s.Stage(strings.NewReader("b"), "same.jpg")
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Path(), b.Path())
}

func TestStageRejections(t *testing.T) {
	s := newTestStager(t, 4)

	_, err := s.Stage(strings.NewReader(""), "empty.png")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = s.Stage(strings.NewReader("data"), "noext")
	assert.ErrorIs(t, err, ErrNoExtension)

	_, err = s.Stage(strings.NewReader("data"), "weird.p/g")
	assert.ErrorIs(t, err, ErrNoExtension)

	_, err = s.Stage(strings.NewReader("12345"), "big.png")
	assert.ErrorIs(t, err, ErrTooLarge)

	f, err := s.Stage(strings.NewReader("1234"), "fits.png")
	require.NoError(t, err)
	f.Release()

	assert.Empty(t, dirEntries(t, s.Dir()))
}

func TestStageInsufficientSpace(t *testing.T) {
	s, err := NewStager(t.TempDir(), 1<<20, 0)
	require.NoError(t, err)
	s.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 1 << 10}, nil
	}

	_, err = s.Stage(strings.NewReader("data"), "a.png")
	assert.ErrorIs(t, err, ErrInsufficientSpace)

	s.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 1 << 30}, nil
	}
	f, err := s.Stage(strings.NewReader("data"), "a.png")
	require.NoError(t, err)
	f.Release()
}

func TestScopedReleasesOnEveryPath(t *testing.T) {
	s := newTestStager(t, 0)

	var seen string
	err := s.Scoped(strings.NewReader("ok"), "a.png", func(f *File) error {
		seen = f.Path()
		_, statErr := os.Stat(f.Path())
		return statErr
	})
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.Empty(t, dirEntries(t, s.Dir()))

	boom := errors.New("boom")
	err = s.Scoped(strings.NewReader("fail"), "a.png", func(*File) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, dirEntries(t, s.Dir()))

	assert.Panics(t, func() {
		_ = s.Scoped(strings.NewReader("panic"), "a.png", func(*File) error { panic("boom") })
	})
	assert.Empty(t, dirEntries(t, s.Dir()))
}

func TestSweep(t *testing.T) {
	s := newTestStager(t, 0)

	stale, err := s.Stage(strings.NewReader("old"), "old.png")
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale.Path(), old, old))

	fresh, err := s.Stage(strings.NewReader("new"), "new.png")
	require.NoError(t, err)
	defer fresh.Release()

	foreign := filepath.Join(s.Dir(), "keep-me.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(foreign, old, old))

	removed, err := s.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale.Path())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh.Path())
	assert.NoError(t, err)
	_, err = os.Stat(foreign)
	assert.NoError(t, err)

	// Releasing an already swept file is harmless.
	assert.NoError(t, stale.Release())
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"cat.png":        ".png",
		"CAT.JPEG":       ".jpeg",
		"archive.tar.gz": ".gz",
		"noext":          "",
		"trailing.":      "",
		".hidden":        ".hidden",
		"bad.p-g":        "",
		"dir.d/file":     "",
	}
	for name, want := range tests {
		assert.Equal(t, want, extension(name), name)
	}
}
