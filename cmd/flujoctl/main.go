// Command flujoctl prints cash-flow reports for a CSV or XLSX workbook.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander, os.Stdout)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
