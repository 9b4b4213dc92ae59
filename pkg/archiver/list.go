package archiver

import (
	"archive/zip"
	"fmt"
	"os"

	mholt "github.com/mholt/archiver"
)

// ListEntries returns the names of the file entries in the zip archive at
// archivePath, in archive order. Directory entries are skipped.
func ListEntries(archivePath string) ([]string, error) {
	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive %s: %w", archivePath, ErrNotFound)
		}
		return nil, err
	}

	var names []string
	err := mholt.NewZip().Walk(archivePath, func(f mholt.File) error {
		if f.IsDir() {
			return nil
		}
		switch h := f.Header.(type) {
		case zip.FileHeader:
			names = append(names, h.Name)
		case *zip.FileHeader:
			names = append(names, h.Name)
		default:
			names = append(names, f.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", archivePath, err)
	}
	return names, nil
}
