// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/kraklabs/tia/pkg/dedup"
	"github.com/kraklabs/tia/pkg/diff"
	"github.com/kraklabs/tia/pkg/match"
	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

// runVerify executes the 'verify' CLI command, reconciling the fact
// store's registered file paths against a fresh walk of the test tree,
// and, when --diffs is supplied, reporting tests never selected by any
// of them.
//
// --diffs is repeatable, so this subcommand uses pflag instead of the
// standard library's flag package.
func runVerify(args []string, configPath string) {
	fs := pflag.NewFlagSet("verify", pflag.ExitOnError)
	testRepo := fs.String("test-repo", "", "Path to the test tree (overrides project.yaml)")
	diffPaths := fs.StringArray("diffs", nil, "Diff file to check for unused-test reporting (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia verify [options]

Compares the fact store against the test tree on disk and reports drift.
With --diffs, also reports tests never selected by any of the given diffs.

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

	testRoot := filepath.Join(root, cfg.TestRepo)
	if *testRepo != "" {
		testRoot = *testRepo
	}

	st := openProjectStore(root, cfg)
	defer st.Close()

	ctx := context.Background()

	report, err := dedup.Verify(ctx, st, testRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: verify failed: %v\n", err)
		os.Exit(1)
	}
	printVerifyReport(report)

	if len(*diffPaths) > 0 {
		unused, err := unusedTests(ctx, st, *diffPaths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: unused-test check failed: %v\n", err)
			os.Exit(1)
		}
		printUnusedTests(unused)
	}
}

func printVerifyReport(report dedup.VerifyReport) {
	fmt.Println("=== Verify ===")
	if len(report.MissingFromDisk) == 0 && len(report.MissingFromIndex) == 0 {
		fmt.Println("Fact store matches the test tree on disk.")
	} else {
		if len(report.MissingFromDisk) > 0 {
			fmt.Printf("Missing from disk (%d): indexed but no longer present\n", len(report.MissingFromDisk))
			for _, p := range report.MissingFromDisk {
				fmt.Printf("  - %s\n", p)
			}
		}
		if len(report.MissingFromIndex) > 0 {
			fmt.Printf("Missing from index (%d): on disk but never indexed\n", len(report.MissingFromIndex))
			for _, p := range report.MissingFromIndex {
				fmt.Printf("  - %s\n", p)
			}
			fmt.Println("Run 'tia reindex' to index the missing files.")
		}
	}
}

// unusedTests runs AST-only matching across every given diff and
// returns every registered test that was never selected by any of
// them, a signal for test-suite pruning.
func unusedTests(ctx context.Context, st *store.Store, diffPaths []string) ([]model.Test, error) {
	engine := match.NewEngine(st, nil, nil)
	affected := make(map[string]bool)

	for _, p := range diffPaths {
		buf, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		req := diff.BuildRequest(diff.ParseUnifiedDiff(string(buf)))
		matched, err := engine.Run(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", p, err)
		}
		for _, t := range matched {
			affected[t.TestID] = true
		}
	}

	all, err := st.AllTests(ctx)
	if err != nil {
		return nil, err
	}
	var unused []model.Test
	for _, t := range all {
		if !affected[t.TestID] {
			unused = append(unused, t)
		}
	}
	return unused, nil
}

func printUnusedTests(unused []model.Test) {
	fmt.Println()
	fmt.Println("=== Unused Tests ===")
	if len(unused) == 0 {
		fmt.Println("Every registered test was selected by at least one supplied diff.")
		return
	}
	fmt.Printf("%d test(s) never selected by any supplied diff:\n", len(unused))
	for _, t := range unused {
		label := t.FilePath
		if t.ClassName != "" {
			label = fmt.Sprintf("%s::%s::%s", t.FilePath, t.ClassName, t.MethodName)
		} else {
			label = fmt.Sprintf("%s::%s", t.FilePath, t.MethodName)
		}
		fmt.Printf("  - %s\n", label)
	}
}
