package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/download"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/fetch"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/platform"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/progress"
)

// runSync handles the "fetchkit sync" subcommand: fetch every artifact
// named in a YAML manifest, in order, stopping at the first failure.
func runSync(args []string) error {
	flags := flag.NewFlagSet("sync", flag.ContinueOnError)
	verbose := flags.Bool("v", false, "verbose logging")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("sync requires exactly one manifest path")
	}

	manifest, err := fetch.LoadManifest(flags.Arg(0))
	if err != nil {
		return err
	}

	info, err := platform.NewDetector().Detect(context.Background())
	if err != nil {
		return err
	}

	manager, err := fetch.NewManager(fetch.Config{
		Client: download.NewClient(),
		Sink: progress.FuncSink(func(e progress.Event) {
			if done, ok := e.(progress.ExtractionComplete); ok {
				fmt.Printf("  extracted %d files\n", done.FileCount)
			}
		}),
		Logger:   pickLogger(*verbose),
		Platform: info,
	})
	if err != nil {
		return err
	}

	if err := manager.Sync(context.Background(), manifest); err != nil {
		return err
	}

	fmt.Printf("Synced %d artifacts\n", len(manifest.Artifacts))
	return nil
}
