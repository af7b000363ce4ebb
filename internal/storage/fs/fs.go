package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("content not found")
	// ErrOutsideRoot is returned for paths that do not live under the storage root.
	ErrOutsideRoot = errors.New("path outside storage root")
)

// DefaultRoot is used when no root directory is configured.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "files_manager")
}

// Storage keeps file contents and thumbnails as flat files under one directory.
// Paths handed out by Storage are absolute and never reused.
type Storage struct {
	rootPath string
}

// New returns a Storage rooted at rootPath, creating the directory when missing.
func New(rootPath string) (*Storage, error) {
	if strings.TrimSpace(rootPath) == "" {
		rootPath = DefaultRoot()
	}
	p, err := filepath.Abs(filepath.Clean(rootPath))
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %w", rootPath, err)
	}

	s := &Storage{rootPath: p}
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the absolute storage root.
func (s *Storage) Root() string {
	return s.rootPath
}

func (s *Storage) ensureDir() error {
	if err := os.MkdirAll(s.rootPath, 0o755); err != nil {
		return fmt.Errorf("create storage root %s: %w", s.rootPath, err)
	}
	return nil
}

// Write stores data under a fresh random name and returns its absolute path.
func (s *Storage) Write(data []byte) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.rootPath, uuid.New().String())
	if err := writeAtomic(fullPath, data); err != nil {
		return "", err
	}
	return fullPath, nil
}

// WriteAt stores data at an explicit path under the root, replacing any previous content.
func (s *Storage) WriteAt(path string, data []byte) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	return writeAtomic(fullPath, data)
}

// Read returns the whole content at path.
func (s *Storage) Read(path string) ([]byte, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", fullPath, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", fullPath, err)
	}
	return data, nil
}

// Delete removes the content at path. A missing file is not an error.
func (s *Storage) Delete(path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", fullPath, err)
	}
	return nil
}

// ThumbnailPath is where the thumbnail of the given width for localPath lives.
func (s *Storage) ThumbnailPath(localPath string, width int) string {
	return fmt.Sprintf("%s_%d", localPath, width)
}

// resolve accepts absolute paths under the root and paths relative to it.
func (s *Storage) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path: %w", ErrOutsideRoot)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.rootPath, full)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(s.rootPath, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return full, nil
}

// writeAtomic writes to a temp file in the target directory, syncs it and renames it into place.
func writeAtomic(fullPath string, data []byte) error {
	dir := filepath.Dir(fullPath)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move content into place: %w", err)
	}
	return nil
}
