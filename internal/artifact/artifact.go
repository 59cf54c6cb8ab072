// Package artifact stores files the agent produces (markdown, code, notes)
// in a directory on disk, addressed by bare filename. Saving to an existing
// name overwrites — artifacts are agent working files, not versioned records.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/quill-ai/quill/internal/log"
)

// Sentinel errors for artifact operations.
var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidName is returned when the filename fails validation.
	ErrInvalidName = errors.New("invalid artifact name")
)

// Info describes one stored artifact.
type Info struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Store manages artifacts under a single directory.
type Store struct {
	dir    string
	logger log.Logger
}

// NewStore creates the directory if needed and returns a store over it.
func NewStore(dir string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save writes content under name, overwriting any existing artifact.
func (s *Store) Save(name, content string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o640); err != nil {
		return fmt.Errorf("save artifact %s: %w", name, err)
	}

	s.logger.Debug("saved artifact", "name", name, "bytes", len(content))
	return nil
}

// Read returns the content of the named artifact.
func (s *Store) Read(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read artifact %s: %w", name, err)
	}
	return string(data), nil
}

// List returns all artifacts sorted by name.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue // deleted between ReadDir and Info
		}
		infos = append(infos, Info{Name: e.Name(), Size: fi.Size(), Modified: fi.ModTime()})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete removes the named artifact. Returns ErrNotFound if absent.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete artifact %s: %w", name, err)
	}

	s.logger.Debug("deleted artifact", "name", name)
	return nil
}

// ValidateName checks that name is safe to join under the store directory:
// non-empty, at most 255 bytes, no path separators, no null bytes, and not a
// traversal component.
func ValidateName(name string) error {
	if name == "" || len(name) > 255 {
		return ErrInvalidName
	}
	for _, c := range name {
		if c == '/' || c == '\\' || c == '\x00' {
			return ErrInvalidName
		}
	}
	if name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}
