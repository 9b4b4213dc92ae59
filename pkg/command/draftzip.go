package command

import (
	"io"
	"os"

	"code.cloudfoundry.org/lager"
	"github.com/mrhapile/draft-data-server/pkg/config"
	"github.com/pkg/errors"
)

var Draftzip struct {
	Debug bool `long:"debug" description:"log at debug level"`

	Build   buildCommand   `command:"build"   description:"packages the source folder into the pre-built archive"`
	Serve   serveCommand   `command:"serve"   description:"serves the dashboard and draft data downloads"`
	Inspect inspectCommand `command:"inspect" description:"lists the entries of an archive"`
}

// NewLogger returns the root logger writing to stdout.
func NewLogger(debug bool) lager.Logger {
	level := lager.INFO
	if debug {
		level = lager.DEBUG
	}
	logger := lager.NewLogger("draftzip")
	logger.RegisterSink(lager.NewWriterSink(os.Stdout, level))
	return logger
}

type configOptions struct {
	Config string `long:"config" short:"c" description:"path to a YAML config file"`
	Source string `long:"source"           description:"folder to package (overrides source_dir)"`
}

func (o configOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed loading configuration")
	}
	if o.Source != "" {
		cfg.SourceDir = o.Source
	}
	return cfg, nil
}

func writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// reportedError has already been shown to the user by the command.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// Reported reports whether err was already printed by the failing command.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
