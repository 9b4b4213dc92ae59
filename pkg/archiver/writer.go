package archiver

import (
	"archive/zip"
	"compress/flate"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ArchiveWriter streams files into a deflate-compressed zip. Output goes to a
// uniquely named temporary sibling of the target path and only replaces the
// target on Commit.
type ArchiveWriter struct {
	target  string
	tmpPath string
	f       *os.File
	zw      *zip.Writer
	modTime time.Time // zero keeps each file's own mtime
}

// NewArchiveWriter creates the temporary output file next to target.
func NewArchiveWriter(target string, level int, modTime time.Time) (*ArchiveWriter, error) {
	absPath, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%s.tmp", absPath, uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	return &ArchiveWriter{
		target:  absPath,
		tmpPath: tmpPath,
		f:       f,
		zw:      zw,
		modTime: modTime,
	}, nil
}

// Owns reports whether path is the target or the in-progress temporary file.
// Neither may be archived into itself when the output lives under the source.
func (w *ArchiveWriter) Owns(path string) bool {
	return path == w.tmpPath || path == w.target
}

// AddFile copies the file at path into the archive under name.
// It returns the number of bytes copied and the SHA256 state of the content.
func (w *ArchiveWriter) AddFile(name, path string, info os.FileInfo) (int64, hash.Hash, error) {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate
	if !w.modTime.IsZero() {
		header.Modified = w.modTime
	}

	src, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to write header for %s: %w", name, err)
	}

	digest := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, digest), src)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to write content for %s: %w", name, err)
	}
	return n, digest, nil
}

// Commit finishes the archive and renames it over the target path.
// It returns the absolute target path and the archive size on disk.
func (w *ArchiveWriter) Commit() (string, int64, error) {
	if err := w.zw.Close(); err != nil {
		w.Abort()
		return "", 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.Abort()
		return "", 0, fmt.Errorf("failed to sync archive: %w", err)
	}
	info, err := w.f.Stat()
	if err != nil {
		w.Abort()
		return "", 0, fmt.Errorf("failed to stat archive: %w", err)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmpPath)
		return "", 0, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.target); err != nil {
		os.Remove(w.tmpPath)
		return "", 0, fmt.Errorf("failed to move archive into place: %w", err)
	}
	return w.target, info.Size(), nil
}

// Abort discards the temporary file. The target path is left untouched.
func (w *ArchiveWriter) Abort() {
	w.f.Close()
	os.Remove(w.tmpPath)
}
