package types

// ArchiveResult represents the output of a successful packaging operation.
type ArchiveResult struct {
	ArchivePath string          // The absolute path to the generated archive file
	FileCount   int             // Total number of files archived
	SizeBytes   int64           // Size of the archive file on disk
	Manifest    ArchiveManifest // The manifest built while writing the archive
}

// SizeMB reports the archive size in megabytes (1 MB = 1024*1024 bytes).
func (r *ArchiveResult) SizeMB() float64 {
	return float64(r.SizeBytes) / 1024 / 1024
}
