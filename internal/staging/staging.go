// Package staging buffers incoming uploads on local disk until they are
// forwarded to the image host.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
)

// FilePrefix marks files owned by the stager so sweeps never touch anything else.
const FilePrefix = "upload-"

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrNoExtension       = errors.New("file name has no extension")
	ErrTooLarge          = errors.New("file exceeds the upload size limit")
	ErrInsufficientSpace = errors.New("not enough free space in staging directory")
)

// Stager writes incoming files to uniquely named temporary files.
type Stager struct {
	dir      string
	minFree  uint64
	maxBytes int64
	usage    func(path string) (*disk.UsageStat, error)
}

// NewStager creates the staging directory if needed. A zero maxBytes disables
// the size limit; a zero minFree disables the free space check.
func NewStager(dir string, minFree uint64, maxBytes int64) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Stager{dir: dir, minFree: minFree, maxBytes: maxBytes, usage: disk.Usage}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// FreeBytes reports the free space on the staging directory's filesystem.
func (s *Stager) FreeBytes() (uint64, error) {
	stat, err := s.usage(s.dir)
	if err != nil {
		return 0, err
	}
	return stat.Free, nil
}

// Stage copies r into a new staged file. The caller must Release it.
// The client-supplied name is kept only as metadata; the on-disk name is
// generated, with just the extension carried over.
func (s *Stager) Stage(r io.Reader, name string) (*File, error) {
	ext := extension(name)
	if ext == "" {
		return nil, ErrNoExtension
	}

	if s.minFree > 0 {
		free, err := s.FreeBytes()
		if err != nil {
			return nil, fmt.Errorf("failed to check staging disk usage: %w", err)
		}
		if free < s.minFree {
			return nil, ErrInsufficientSpace
		}
	}

	tmp, err := os.CreateTemp(s.dir, FilePrefix+"*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	f := &File{path: tmp.Name(), name: name}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	switch {
	case err != nil:
		err = fmt.Errorf("failed to write staging file: %w", err)
	case n == 0:
		err = ErrEmptyFile
	case s.maxBytes > 0 && n > s.maxBytes:
		err = ErrTooLarge
	}
	if err != nil {
		f.Release()
		return nil, err
	}

	f.size = n
	return f, nil
}

// Scoped stages r, runs fn with the staged file and releases it on every
// exit path, including a panic in fn.
func (s *Stager) Scoped(r io.Reader, name string, fn func(*File) error) error {
	f, err := s.Stage(r, name)
	if err != nil {
		return err
	}
	defer f.Release()
	return fn(f)
}

// Sweep removes staged files last modified more than maxAge ago. Such files
// can only be left behind by a crash between staging and release.
func (s *Stager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), FilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to remove stale staging file")
			continue
		}
		removed++
	}
	return removed, nil
}

// extension returns the lower-cased extension of name including the dot,
// or "" when name has none or it contains anything but letters and digits.
func extension(name string) string {
	ext := filepath.Ext(filepath.Base(name))
	if len(ext) < 2 {
		return ""
	}
	for _, c := range ext[1:] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return ""
		}
	}
	return strings.ToLower(ext)
}

// File is a staged upload. Release is safe to call more than once.
type File struct {
	path string
	name string
	size int64

	once       sync.Once
	releaseErr error
}

// Name returns the original client-supplied file name.
func (f *File) Name() string { return f.name }

// Path returns the on-disk location of the staged bytes.
func (f *File) Path() string { return f.path }

// Size returns the number of staged bytes.
func (f *File) Size() int64 { return f.size }

// Open opens the staged bytes for reading.
func (f *File) Open() (*os.File, error) {
	return os.Open(f.path)
}

// Release deletes the staged bytes.
func (f *File) Release() error {
	f.once.Do(func() {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			f.releaseErr = err
			log.Error().Err(err).Str("path", f.path).Msg("Failed to release staging file")
		}
	})
	return f.releaseErr
}
