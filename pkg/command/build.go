package command

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mrhapile/draft-data-server/pkg/archiver"
	"github.com/pkg/errors"
)

type buildCommand struct {
	configOptions

	Output   string `long:"output"   short:"o" description:"where to write the archive (overrides prebuilt_path)"`
	Manifest string `long:"manifest" short:"m" description:"also write the archive manifest here (.json, .yaml or .yml)"`

	out io.Writer
}

func (c *buildCommand) Execute(args []string) (err error) {
	w := writer(c.out)

	cfg, err := c.load()
	if err != nil {
		return
	}
	if c.Output != "" {
		cfg.PrebuiltPath = c.Output
	}
	if err = cfg.Validate(); err != nil {
		return
	}

	fmt.Fprintf(w, "Zipping %s...\n", cfg.SourceDir)

	defer func() {
		if err != nil {
			color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
			err = reportedError{err}
		}
	}()

	err = os.Remove(cfg.PrebuiltPath)
	if err != nil && !os.IsNotExist(err) {
		err = errors.Wrapf(err,
			"failed removing previous archive %s", cfg.PrebuiltPath)
		return
	}

	result, err := archiver.Package(cfg.SourceDir, cfg.PrebuiltPath,
		archiver.WithExclude(cfg.Exclude...))
	if err != nil {
		return
	}

	color.New(color.FgGreen).Fprintf(w, "Success! Created %s\n", result.ArchivePath)
	fmt.Fprintf(w, "Files: %d\n", result.FileCount)
	fmt.Fprintf(w, "File size: %.2f MB\n", result.SizeMB())

	if c.Manifest != "" {
		err = archiver.WriteManifest(c.Manifest, result.Manifest)
		if err != nil {
			err = errors.Wrapf(err,
				"failed writing manifest to %s", c.Manifest)
			return
		}
		fmt.Fprintf(w, "Manifest: %s\n", c.Manifest)
	}
	return
}
