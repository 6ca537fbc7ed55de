package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"github.com/bwkimmel/infinigen/region"
)

// compactCmd implements the compact subcommand.
type compactCmd struct {
	skipConfirm bool
	sectorSize  int
	regionWidth int
}

func (*compactCmd) Name() string { return "compact" }

func (*compactCmd) Synopsis() string {
	return "Remove orphaned sectors from every region file in a save directory."
}

func (*compactCmd) Usage() string {
	return `compact <save-dir>
Remove orphaned sectors from every region file ("r.*.*.sr") in a save
directory.

WARNING: this command rewrites region files in place. Orphaned sectors
are sectors in the file that no lookup-table slot references. Sectors a
slot still reserves, including the unused tail of a record rewritten in
place with fewer sectors, are referenced and are kept. Compact walks
each region file's lookup table, relocates every referenced sector to a
contiguous prefix of the file, and truncates the rest away.

`
}

func (c *compactCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.skipConfirm, "skip_confirmation", false, "Do not ask for confirmation before proceeding.")
	f.IntVar(&c.sectorSize, "sector_size", 4096, "Sector size in bytes; must match the save directory's geometry.")
	f.IntVar(&c.regionWidth, "region_width", 32, "Chunks per region edge; must match the save directory's geometry.")
}

func (c *compactCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		log.Errorf("<save-dir> is required.")
		return subcommands.ExitUsageError
	}
	if !c.skipConfirm {
		confirm()
	}
	cfg := region.Config{SectorSize: int64(c.sectorSize), RegionWidth: int32(c.regionWidth)}
	if err := compactSaveDir(f.Arg(0), cfg); err != nil {
		log.Errorf("compact: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func compactSaveDir(dir string, cfg region.Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cannot read save directory %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sr") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := region.Compact(path, cfg); err != nil {
			return fmt.Errorf("region file %q: %w", path, err)
		}
	}
	return nil
}
