// Package file provides the filesystem-backed document loader.
package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// Loader implements ports.DocumentLoader for a workflow file on disk.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given path.
func NewLoader(path string) (*Loader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return &Loader{path: abs}, nil
}

// Path returns the absolute path the loader reads from.
func (l *Loader) Path() string { return l.path }

// Load reads the workflow document.
func (l *Loader) Load() ([]byte, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %q: %w", l.path, err)
	}
	return data, nil
}
