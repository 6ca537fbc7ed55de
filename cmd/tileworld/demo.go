package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/bwkimmel/infinigen/coords"
	"github.com/bwkimmel/infinigen/demo"
	"github.com/bwkimmel/infinigen/region"
	"github.com/bwkimmel/infinigen/world"
)

// demoCmd runs a scripted residency simulation against the bundled
// NBT-backed payload: an observer walks a straight line, the residency
// window follows it, and the chunks generated along the way are saved
// to the given directory before exiting.
type demoCmd struct {
	steps       int
	updateRadius int
}

func (*demoCmd) Name() string { return "demo" }

func (*demoCmd) Synopsis() string {
	return "Run a scripted observer walk against a demo save directory."
}

func (*demoCmd) Usage() string {
	return `demo <save-dir>
Walk an observer one chunk east per step for -steps steps, calling
UpdateChunks after each move, then save and exit. Useful for exercising
the residency controller and the bundled NBT payload without a real
front end.

`
}

func (c *demoCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.steps, "steps", 10, "Number of observer moves to simulate.")
	f.IntVar(&c.updateRadius, "update_radius", 2, "Residency window radius, in chunks.")
}

func (c *demoCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		log.Errorf("<save-dir> is required.")
		return subcommands.ExitUsageError
	}

	cfg := world.Config{
		Region:       region.DefaultConfig(),
		UpdateRadius: int32(c.updateRadius),
	}
	codec := world.Codec[demo.Chunk]{
		Encode:   demo.Encode,
		Decode:   demo.Decode,
		Generate: demo.Generate,
	}

	w, err := world.NewWorld(f.Arg(0), cfg, codec)
	if err != nil {
		log.Errorf("demo: %v", err)
		return subcommands.ExitFailure
	}
	defer w.Close()

	for i := 0; i < c.steps; i++ {
		w.SetObserver(coords.ChunkIndex{X: int32(i), Y: 0})
		if err := w.UpdateChunks(); err != nil {
			log.Errorf("demo: UpdateChunks at step %d: %v", i, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("step %d: observer at (%d,0), %d chunks resident\n", i, i, w.ResidentCount())
	}

	if err := w.Save(); err != nil {
		log.Errorf("demo: Save: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Println("saved.")
	return subcommands.ExitSuccess
}
