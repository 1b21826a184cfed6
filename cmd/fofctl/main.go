// Command fofctl loads NPORT-P filings and queries the stored fund-of-funds
// data from the command line.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

// commands lists every fofctl subcommand.
var commands = []subcommands.Command{
	&loadCmd{},
	&relinkCmd{},
	&migrateCmd{},
	&fundsCmd{},
	&topCmd{},
	&allocationCmd{},
	&overlapCmd{},
	&qualityCmd{},
	&askCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
