package command

import (
	"fmt"
	"io"

	"github.com/mrhapile/draft-data-server/pkg/archiver"
	"github.com/pkg/errors"
)

type inspectCommand struct {
	Archive string `long:"archive" required:"true" description:"archive to list"`

	out io.Writer
}

func (c *inspectCommand) Execute(args []string) (err error) {
	w := writer(c.out)

	names, err := archiver.ListEntries(c.Archive)
	if err != nil {
		err = errors.Wrapf(err,
			"failed listing entries of %s", c.Archive)
		return
	}

	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	fmt.Fprintf(w, "%d entries\n", len(names))
	return
}
