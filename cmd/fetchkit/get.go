package main

import (
	"context"
	"flag"
	"fmt"
	"path"
	"strings"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/download"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/fetch"
	"github.com/ZebulonRouseFrantzich/fetchkit/internal/platform"
)

// runGet handles the "fetchkit get" subcommand: download one artifact,
// optionally verifying its digest and detached signature.
func runGet(args []string) error {
	flags := flag.NewFlagSet("get", flag.ContinueOnError)
	output := flags.String("o", "", "destination path (default: URL basename)")
	sha1 := flags.String("sha1", "", "expected 40-hex digest")
	sig := flags.String("sig", "", "detached signature URL")
	keyring := flags.String("keyring", "", "public keyring for signature verification")
	extractTo := flags.String("x", "", "extract the artifact into this directory")
	verbose := flags.Bool("v", false, "verbose logging")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("get requires exactly one URL")
	}
	url := flags.Arg(0)

	dest := *output
	if dest == "" {
		dest = path.Base(strings.SplitN(url, "?", 2)[0])
		if dest == "" || dest == "." || dest == "/" {
			return fmt.Errorf("cannot derive destination from URL, use -o")
		}
	}

	info, err := platform.NewDetector().Detect(context.Background())
	if err != nil {
		return err
	}

	manager, err := fetch.NewManager(fetch.Config{
		Client:   download.NewClient(),
		Logger:   pickLogger(*verbose),
		Platform: info,
	})
	if err != nil {
		return err
	}

	result, err := manager.Fetch(context.Background(), fetch.Request{
		URL:          url,
		Dest:         dest,
		SHA1:         *sha1,
		SignatureURL: *sig,
		KeyringPath:  *keyring,
		Extract:      *extractTo != "",
		ExtractTo:    *extractTo,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded %s (%d bytes)\n", result.Path, result.Bytes)
	if result.Verified {
		fmt.Println("Digest verified")
	}
	if result.Signed {
		fmt.Println("Signature verified")
	}
	if result.ExtractedTo != "" {
		fmt.Printf("Extracted to %s\n", result.ExtractedTo)
	}

	return nil
}
