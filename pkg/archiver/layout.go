package archiver

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout maps files under a source directory to archive entry names.
// Entry names are relative to the parent of the source directory, so the
// archive root holds a single folder named after the source directory.
type Layout struct {
	SourceDir string // absolute, cleaned
	parent    string
}

func newLayout(sourceDir string) (*Layout, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrPackaging, sourceDir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("folder %s: %w", sourceDir, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrPackaging, sourceDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("folder %s is not a directory: %w", sourceDir, ErrNotFound)
	}

	return &Layout{
		SourceDir: abs,
		parent:    filepath.Dir(abs),
	}, nil
}

// entryName returns the archive name for path, which must live under SourceDir.
func (l *Layout) entryName(path string) (string, error) {
	rel, err := filepath.Rel(l.parent, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// excluded reports whether the base name of path matches any of patterns.
func excluded(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
