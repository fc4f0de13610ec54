// Package cache manages the on-disk footprint of brewse: the downloaded
// catalog artifacts and the persisted installed-state snapshot.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/fsutil"
)

// CleanOptions selects which cache categories to remove.
type CleanOptions struct {
	All      bool
	Catalogs bool
	State    bool
}

// CleanResult reports what a clean removed.
type CleanResult struct {
	TotalFreed   int64
	CatalogFreed int64
	StateFreed   int64
}

// Info describes the current cache contents.
type Info struct {
	Directory    string
	TotalSize    int64
	CatalogSize  int64
	CatalogFiles int
	StateSize    int64
	StateFiles   int
}

// Manager performs maintenance on a brewse cache directory. Catalog
// artifacts live under catalogs/, the installed-state snapshot under state/.
type Manager struct {
	directory string
}

// NewManager creates a manager for the given cache directory.
func NewManager(directory string) *Manager {
	return &Manager{directory: directory}
}

// Clean removes cached files per the options. With nothing selected it
// cleans everything.
func (m *Manager) Clean(options CleanOptions) (*CleanResult, error) {
	if !options.Catalogs && !options.State {
		options.All = true
	}

	result := &CleanResult{}
	if options.All || options.Catalogs {
		size, err := cleanDirectory(m.CatalogDir())
		if err != nil {
			return nil, errors.Wrap(err, "cleaning catalog cache")
		}
		result.CatalogFreed = size
		result.TotalFreed += size
	}
	if options.All || options.State {
		size, err := cleanDirectory(m.StateDir())
		if err != nil {
			return nil, errors.Wrap(err, "cleaning state cache")
		}
		result.StateFreed = size
		result.TotalFreed += size
	}
	return result, nil
}

// GetInfo returns size and file counts per cache category.
func (m *Manager) GetInfo() (*Info, error) {
	info := &Info{Directory: m.directory}

	size, files, err := dirSizeAndFiles(m.CatalogDir())
	if err != nil {
		return nil, errors.Wrap(err, "inspecting catalog cache")
	}
	info.CatalogSize, info.CatalogFiles = size, files

	size, files, err = dirSizeAndFiles(m.StateDir())
	if err != nil {
		return nil, errors.Wrap(err, "inspecting state cache")
	}
	info.StateSize, info.StateFiles = size, files

	info.TotalSize = info.CatalogSize + info.StateSize
	return info, nil
}

// GetDirectory returns the cache root.
func (m *Manager) GetDirectory() string {
	return m.directory
}

// CatalogDir returns the directory holding downloaded catalog artifacts.
func (m *Manager) CatalogDir() string {
	return filepath.Join(m.directory, "catalogs")
}

// StateDir returns the directory holding the installed-state snapshot.
func (m *Manager) StateDir() string {
	return filepath.Join(m.directory, "state")
}

// cleanDirectory removes a directory's contents and returns bytes freed.
// The directory itself is recreated empty.
func cleanDirectory(dir string) (int64, error) {
	size, _, err := dirSizeAndFiles(dir)
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, errors.Wrapf(err, "removing %s", dir)
	}
	if err := os.MkdirAll(dir, fsutil.DirModeSecure); err != nil {
		return size, errors.Wrapf(err, "recreating %s", dir)
	}
	return size, nil
}

func dirSizeAndFiles(dir string) (int64, int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}

	var size int64
	var count int
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	if err != nil {
		return 0, 0, errors.Wrapf(err, "walking %s", dir)
	}
	return size, count, nil
}

// FormatBytes converts a byte count to a human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	if exp < len(units) {
		return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
