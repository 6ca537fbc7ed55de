// tileworld is a small CLI over the region-file storage engine: it can
// report a save directory's sector occupancy, compact orphaned sectors
// out of region files, and run a scripted residency demo against the
// bundled NBT-backed payload.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/bwkimmel/infinigen/xlog"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&inspectCmd{}, "")
	subcommands.Register(&compactCmd{}, "")
	subcommands.Register(&demoCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

var log = xlog.New("cli")
