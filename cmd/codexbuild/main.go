// Package main provides the entry point for the codexbuild CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/codexbuild/internal/cli"
)

// Set via -ldflags at release time.
//
//nolint:gochecknoglobals // ldflags targets
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	err := cli.Execute(context.Background(), cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	return cli.ExitCodeForError(err)
}
