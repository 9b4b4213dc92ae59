package command

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"code.cloudfoundry.org/lager"
	"github.com/mrhapile/draft-data-server/pkg/server"
	"github.com/pkg/errors"
)

type serveCommand struct {
	configOptions

	Addr    string `long:"addr"    description:"address to listen on (overrides addr)"`
	Reports string `long:"reports" description:"directory holding the dashboard document (overrides reports_dir)"`
}

func (c *serveCommand) Execute(args []string) (err error) {
	cfg, err := c.load()
	if err != nil {
		return
	}
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.Reports != "" {
		cfg.ReportsDir = c.Reports
	}
	if err = cfg.Validate(); err != nil {
		return
	}

	logger := NewLogger(Draftzip.Debug)

	reports, _ := filepath.Abs(cfg.ReportsDir)
	scheme := "http"
	if cfg.SSL {
		scheme = "https"
	}
	logger.Info("serve", lager.Data{
		"reports":    reports,
		"source-dir": cfg.SourceDir,
		"open":       scheme + "://" + cfg.Addr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = server.New(cfg, logger).Run(ctx)
	if err != nil {
		err = errors.Wrapf(err, "server on %s failed", cfg.Addr)
	}
	return
}
