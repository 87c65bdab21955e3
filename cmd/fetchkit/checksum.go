package main

import (
	"flag"
	"fmt"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/digest"
)

// runChecksum handles the "fetchkit checksum" subcommand: print the
// digest of each named file in "HEX  PATH" form.
func runChecksum(args []string) error {
	flags := flag.NewFlagSet("checksum", flag.ContinueOnError)
	stream := flags.Bool("stream", false, "hash in fixed windows instead of reading files whole")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() == 0 {
		return fmt.Errorf("checksum requires at least one file")
	}

	compute := digest.Compute
	if *stream {
		compute = digest.ComputeStreaming
	}

	for _, path := range flags.Args() {
		sum, err := compute(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", sum, path)
	}

	return nil
}
