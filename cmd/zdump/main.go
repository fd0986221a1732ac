package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kestrel-if/zengine/disasm"
	"github.com/kestrel-if/zengine/zcore"
)

func main() {
	rawAddresses := flag.Bool("n", false, "emit raw routine byte addresses instead of routine labels")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: zdump [-n] <story-file>")
		os.Exit(1)
	}

	storyBytes, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read story: %v\n", err)
		os.Exit(1)
	}

	story, err := zcore.Load(storyBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load story: %v\n", err)
		os.Exit(1)
	}

	listing, err := disasm.Discover(story)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Disassembly failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d routines found\n\n", len(listing.Routines))
	fmt.Print(listing.Format(story, disasm.FormatOptions{RawAddresses: *rawAddresses}))
}
