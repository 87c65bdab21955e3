package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("fetchkit %s\n", Version)
			return
		case "get":
			if err := runGet(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "extract":
			if err := runExtract(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "checksum":
			if err := runChecksum(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "sync":
			if err := runSync(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("fetchkit - verified artifact download and extraction")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  fetchkit get [-o PATH] [-sha1 HEX] [-sig URL -keyring PATH] URL")
	fmt.Println("  fetchkit extract [-format zip|tar|tar.gz] [-C DIR] ARCHIVE")
	fmt.Println("  fetchkit checksum [-stream] FILE...")
	fmt.Println("  fetchkit sync MANIFEST.yaml")
	fmt.Println("  fetchkit --version")
}
