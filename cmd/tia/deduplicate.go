// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/tia/pkg/dedup"
)

// runDeduplicate executes the 'deduplicate' CLI command: it finds
// fact-store rows that collide on the natural test key and, with
// --remove-duplicates, deletes every row but the one with the lowest
// test_id.
func runDeduplicate(args []string, configPath string) {
	fs := flag.NewFlagSet("deduplicate", flag.ExitOnError)
	remove := fs.Bool("remove-duplicates", false, "Delete duplicate rows, keeping the lowest test_id")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia deduplicate [options]

Finds fact-store rows that collide on (file path, class, method).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	root, err := resolveRoot(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve project root: %v\n", err)
		os.Exit(1)
	}
	cfg := loadProjectConfig(root)

	st := openProjectStore(root, cfg)
	defer st.Close()

	ctx := context.Background()

	dups, err := dedup.Find(ctx, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: deduplicate failed: %v\n", err)
		os.Exit(1)
	}
	if len(dups) == 0 {
		fmt.Println("No duplicate tests found.")
		return
	}

	fmt.Printf("Found %d duplicate group(s):\n", len(dups))
	for _, d := range dups {
		fmt.Printf("  keep=%s duplicates=%v\n", d.Keep, d.Remove)
	}

	if !*remove {
		fmt.Println("Run with --remove-duplicates to delete the duplicate rows.")
		return
	}

	removed, err := dedup.Remove(ctx, st, dups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: removing duplicates failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d duplicate row(s).\n", removed)
}
