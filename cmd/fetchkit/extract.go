package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/extract"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/progress"
)

// runExtract handles the "fetchkit extract" subcommand: unpack a local
// archive into a destination directory.
func runExtract(args []string) error {
	flags := flag.NewFlagSet("extract", flag.ContinueOnError)
	format := flags.String("format", "", "archive format (zip, tar, tar.gz); detected from the filename if omitted")
	destDir := flags.String("C", ".", "extract into this directory")
	verbose := flags.Bool("v", false, "verbose logging")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("extract requires exactly one archive path")
	}
	archive := flags.Arg(0)

	extractor := extract.NewExtractor(
		extract.WithSink(progress.FuncSink(func(e progress.Event) {
			if fe, ok := e.(progress.FileExtracted); ok {
				fmt.Printf("  %s\n", fe.FileName)
			}
		})),
		extract.WithLogger(pickLogger(*verbose)),
	)

	if *format != "" {
		f, err := extract.ParseFormat(*format)
		if err != nil {
			return err
		}
		if err := extractor.Extract(context.Background(), archive, *destDir, f); err != nil {
			return err
		}
	} else if err := extractor.ExtractFile(context.Background(), archive, *destDir); err != nil {
		return err
	}

	fmt.Printf("Extracted %s to %s\n", archive, *destDir)
	return nil
}
