package archiver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrhapile/draft-data-server/pkg/types"
	yaml "gopkg.in/yaml.v2"
)

type ManifestBuilder struct {
	manifest types.ArchiveManifest
}

func NewManifestBuilder(sourceDir string, ts time.Time) *ManifestBuilder {
	return &ManifestBuilder{
		manifest: types.ArchiveManifest{
			SourceDir:   sourceDir,
			GeneratedAt: ts,
			Files:       []types.FileEntry{},
		},
	}
}

// AddFile records an entry whose content was fed through h.
func (mb *ManifestBuilder) AddFile(path string, size int64, h hash.Hash) {
	entry := types.FileEntry{
		Path:   path,
		Size:   size,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}
	mb.manifest.Files = append(mb.manifest.Files, entry)
	mb.manifest.TotalFiles++
}

func (mb *ManifestBuilder) Build() types.ArchiveManifest {
	hasher := sha256.New()
	for _, f := range mb.manifest.Files {
		hasher.Write([]byte(f.SHA256))
	}
	mb.manifest.ContentHash = hex.EncodeToString(hasher.Sum(nil))
	return mb.manifest
}

// WriteManifest writes m to path as YAML when path ends in .yaml or .yml,
// and as indented JSON otherwise.
func WriteManifest(path string, m types.ArchiveManifest) error {
	var (
		content []byte
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		content, err = yaml.Marshal(m)
	default:
		content, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
