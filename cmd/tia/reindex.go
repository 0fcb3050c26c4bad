// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/tia/pkg/dedup"
	"github.com/kraklabs/tia/pkg/parser"
	"github.com/kraklabs/tia/pkg/pipeline"
)

// runReindex executes the 'reindex' CLI command: it verifies the fact
// store against disk and indexes only the files dedup.Verify reports
// as MissingFromIndex, so a large test tree never has to be rescanned
// in full just to pick up a handful of new files.
func runReindex(args []string, configPath string) {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	testRepo := fs.String("test-repo", "", "Path to the test tree (overrides project.yaml)")
	artifactDir := fs.String("artifact-dir", "", "Directory for per-stage JSON artifacts (default: .tia/artifacts)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia reindex [options]

Indexes test files that exist on disk but are missing from the fact store.

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
	logger := newLogger(*debug)

	testRoot := filepath.Join(root, cfg.TestRepo)
	if *testRepo != "" {
		testRoot = *testRepo
	}
	artifacts := filepath.Join(root, ".tia", "artifacts")
	if *artifactDir != "" {
		artifacts = *artifactDir
	}

	st := openProjectStore(root, cfg)
	defer st.Close()

	ctx := context.Background()

	report, err := dedup.Verify(ctx, st, testRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: verify failed: %v\n", err)
		os.Exit(1)
	}
	if len(report.MissingFromIndex) == 0 {
		fmt.Println("Nothing to reindex: the fact store already covers every file on disk.")
		return
	}

	reg := parser.NewDefaultRegistry()
	p := pipeline.New(st, reg, testRoot, filepath.Join(root, cfg.SourceRoot), artifacts, logger)

	result, err := p.RunFiles(ctx, report.MissingFromIndex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reindex failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Reindexed %d file(s), registering %d test(s).\n", result.FilesScanned, result.TestsRegistered)
}
