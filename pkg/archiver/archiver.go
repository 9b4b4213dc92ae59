// Package archiver packages a directory tree into a single deflate-compressed
// zip archive.
package archiver

import (
	"compress/flate"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mrhapile/draft-data-server/pkg/types"
)

var (
	// ErrNotFound is returned when the source directory (or an archive to
	// read) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPackaging wraps any other I/O failure while walking the source or
	// writing the archive.
	ErrPackaging = errors.New("packaging failed")
)

// Option configures the packaging process.
type Option func(*config)

type config struct {
	modTime time.Time
	level   int
	exclude []string
}

// WithModTime pins the modification time of every entry.
// With a fixed time the archive bytes depend only on the source tree.
func WithModTime(t time.Time) Option {
	return func(c *config) {
		c.modTime = t
	}
}

// WithLevel sets the deflate compression level (flate.BestSpeed..flate.BestCompression).
func WithLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithExclude skips files whose base name matches any of the filepath.Match patterns.
func WithExclude(patterns ...string) Option {
	return func(c *config) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// Package writes every regular file under sourceDir into a zip archive at
// archivePath. Entry names are relative to the parent of sourceDir.
//
// If sourceDir is missing the returned error matches ErrNotFound and nothing is
// written. The archive is built in a temporary file and renamed over
// archivePath only on success, so a failed run leaves any previous archive in
// place.
func Package(sourceDir, archivePath string, opts ...Option) (*types.ArchiveResult, error) {
	cfg := &config{
		level: flate.DefaultCompression,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.level < flate.HuffmanOnly || cfg.level > flate.BestCompression {
		return nil, fmt.Errorf("%w: invalid compression level %d", ErrPackaging, cfg.level)
	}

	layout, err := newLayout(sourceDir)
	if err != nil {
		return nil, err
	}

	ts := cfg.modTime
	if ts.IsZero() {
		ts = time.Now()
	}
	manifestBuilder := NewManifestBuilder(layout.SourceDir, ts)

	archiveWriter, err := NewArchiveWriter(archivePath, cfg.level, cfg.modTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackaging, err)
	}

	walkErr := filepath.WalkDir(layout.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || archiveWriter.Owns(path) || excluded(path, cfg.exclude) {
			return nil
		}

		info, err := entryInfo(path, d)
		if err != nil {
			return err
		}
		if info == nil {
			return nil
		}
		name, err := layout.entryName(path)
		if err != nil {
			return err
		}

		n, digest, err := archiveWriter.AddFile(name, path, info)
		if err != nil {
			return err
		}
		manifestBuilder.AddFile(name, n, digest)
		return nil
	})
	if walkErr != nil {
		archiveWriter.Abort()
		return nil, fmt.Errorf("%w: %v", ErrPackaging, walkErr)
	}

	absPath, size, err := archiveWriter.Commit()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackaging, err)
	}

	manifest := manifestBuilder.Build()
	return &types.ArchiveResult{
		ArchivePath: absPath,
		FileCount:   manifest.TotalFiles,
		SizeBytes:   size,
		Manifest:    manifest,
	}, nil
}

// entryInfo returns the FileInfo to archive for d, or nil when d is skipped.
// A symlink to a regular file is archived with its target's content under the
// link's name. Symlinked directories are not followed, and a dangling link is
// an error.
func entryInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, nil
		}
		return info, nil
	}
	if !d.Type().IsRegular() {
		return nil, nil
	}
	return d.Info()
}
