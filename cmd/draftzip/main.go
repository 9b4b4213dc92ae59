package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/mrhapile/draft-data-server/pkg/command"
)

func main() {
	parser := flags.NewParser(&command.Draftzip, flags.HelpFlag|flags.PassDoubleDash)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err == nil {
		return
	}

	if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
		fmt.Println(err)
		return
	}

	if command.Reported(err) {
		os.Exit(1)
	}

	logger := command.NewLogger(command.Draftzip.Debug)
	logger.Error("command-failed", err)
	os.Exit(1)
}
