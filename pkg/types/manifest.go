package types

import "time"

// ArchiveManifest describes the contents of a generated archive.
type ArchiveManifest struct {
	// SourceDir is the absolute path of the directory that was packaged.
	SourceDir string `json:"sourceDir" yaml:"sourceDir"`

	// GeneratedAt is the timestamp when the archive was created.
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`

	// TotalFiles is the count of files included in the archive.
	TotalFiles int `json:"totalFiles" yaml:"totalFiles"`

	// Files lists all entries in the archive, in the order they were written.
	Files []FileEntry `json:"files" yaml:"files"`

	// ContentHash is the SHA256 of the concatenated per-file hashes, in entry order.
	// Two archives of an unchanged tree share the same ContentHash.
	ContentHash string `json:"contentHash" yaml:"contentHash"`
}

// FileEntry represents a single file inside the archive.
type FileEntry struct {
	// Path is the entry name inside the archive, slash separated
	// (e.g. "draft/sub/b.txt").
	Path string `json:"path" yaml:"path"`

	// Size is the uncompressed size of the file in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SHA256 is the checksum of the file content.
	SHA256 string `json:"sha256" yaml:"sha256"`
}
