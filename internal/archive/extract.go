package archive

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Extractor writes nested archives to temporary directories that live
// until Close.
type Extractor struct {
	mu   sync.Mutex
	dirs []string
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractNested copies entry name of the archive at parent to a temporary
// file and returns its path.
func (e *Extractor) ExtractNested(parent, name string) (string, error) {
	if !IsArchive(name) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsupported)
	}

	r, err := Open(parent)
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := r.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("extracting %s from %s: %w", name, parent, err)
	}

	dir, err := os.MkdirTemp("", "mekuri-nested-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	e.mu.Lock()
	e.dirs = append(e.dirs, dir)
	e.mu.Unlock()

	// Entry names may carry archive-internal directories
	out := filepath.Join(dir, path.Base(strings.ReplaceAll(name, "\\", "/")))
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	return out, nil
}

// Close removes every extracted file
func (e *Extractor) Close() error {
	e.mu.Lock()
	dirs := e.dirs
	e.dirs = nil
	e.mu.Unlock()

	var errs []error
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
