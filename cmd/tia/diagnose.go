// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kraklabs/tia/internal/output"
	"github.com/kraklabs/tia/pkg/diff"
	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

// DiagnoseResult is the project status for JSON output: fact-store
// row counts queried directly through the sqlite driver.
type DiagnoseResult struct {
	ProjectID        string                `json:"project_id"`
	DSN              string                `json:"dsn"`
	Tests            int                   `json:"tests"`
	Dependencies     int                   `json:"dependencies"`
	FunctionMappings int                   `json:"function_mappings"`
	ReverseIndexRows int                   `json:"reverse_index_rows"`
	EmbeddedTests    int                   `json:"embedded_tests"`
	Structure        []model.TestStructure `json:"structure"`
	Timestamp        time.Time             `json:"timestamp"`
}

// ModuleDiagnosis reports why (or whether) a changed production module
// has matching tests in the fact store.
type ModuleDiagnosis struct {
	File               string   `json:"file"`
	Module             string   `json:"module"`
	ExactClassMatches  int      `json:"exact_class_matches"`
	ModulePatternRows  int      `json:"module_pattern_rows"`
	DirectFileMatches  int      `json:"direct_file_matches"`
	IntegrationMatches int      `json:"integration_matches"`
	Suggestions        []string `json:"suggestions"`
}

// runDiagnose executes the 'diagnose' CLI command. With no arguments it
// prints fact-store row counts and embedding coverage; given a diff
// file it instead diagnoses, per changed production file, why the fact
// store does or doesn't have a matching test.
//
// Flags:
//   - --json: output as JSON instead of a formatted summary
func runDiagnose(args []string, configPath string) {
	fs := flag.NewFlagSet("diagnose", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia diagnose [diff-file] [options]

With no diff-file, shows fact-store row counts for the current project.
Given a diff-file, diagnoses why each changed production file does or
does not have a matching test in the fact store.

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

	if fs.NArg() >= 1 {
		diffPath := fs.Arg(0)
		diffBytes, err := os.ReadFile(diffPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot read diff file %s: %v\n", diffPath, err)
			os.Exit(1)
		}
		changes := diff.ParseUnifiedDiff(string(diffBytes))
		diagnoses, err := diagnoseModules(ctx, st, changes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: diagnose failed: %v\n", err)
			os.Exit(1)
		}
		if *jsonOutput {
			if err := output.JSON(diagnoses); err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot encode output: %v\n", err)
				os.Exit(1)
			}
			return
		}
		printModuleDiagnoses(diagnoses)
		return
	}

	db := st.DB()
	result := DiagnoseResult{ProjectID: cfg.ProjectID, DSN: cfg.Store.DSN, Timestamp: time.Now()}
	result.Tests = countRows(ctx, db, "test_registry")
	result.Dependencies = countRows(ctx, db, "test_dependencies")
	result.FunctionMappings = countRows(ctx, db, "test_function_mapping")
	result.ReverseIndexRows = countRows(ctx, db, "reverse_index")
	result.EmbeddedTests = countRowsWhere(ctx, db, "test_metadata", "embedding IS NOT NULL")
	if structure, err := st.ListTestStructure(ctx); err == nil {
		result.Structure = structure
	}

	if *jsonOutput {
		if err := output.JSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot encode output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printDiagnoseResult(result)
}

// diagnoseModules inspects, for each changed non-import-only production
// file in changes, whether the fact store has any matching test and
// why, querying the per-module reverse-index and test-registry rows and
// turning the outcome into a human-readable suggestion.
func diagnoseModules(ctx context.Context, st *store.Store, changes []diff.FileChange) ([]ModuleDiagnosis, error) {
	var out []ModuleDiagnosis
	for _, fc := range changes {
		if fc.ChangeType == diff.ChangeDeleted || fc.ChangeType == diff.ChangeImportOnly {
			continue
		}
		if !diff.IsProductionFile(fc.Path) {
			continue
		}
		full, _ := diff.ModuleCandidates(fc.Path)

		exact, err := st.TestsForClass(ctx, full)
		if err != nil {
			return nil, err
		}
		modulePattern, err := st.TestsForModulePattern(ctx, full, false, nil)
		if err != nil {
			return nil, err
		}
		integration, err := st.IntegrationTestsForClass(ctx, full)
		if err != nil {
			return nil, err
		}

		var direct int
		for _, candidate := range diff.TestFileCandidates(fc.Path) {
			matches, err := st.TestsByPathPattern(ctx, "%"+candidate)
			if err != nil {
				return nil, err
			}
			direct += len(matches)
		}

		out = append(out, ModuleDiagnosis{
			File:               fc.Path,
			Module:             full,
			ExactClassMatches:  len(exact),
			ModulePatternRows:  len(modulePattern),
			DirectFileMatches:  direct,
			IntegrationMatches: len(integration),
			Suggestions:        diagnosisSuggestions(len(exact), len(modulePattern), direct, len(integration)),
		})
	}
	return out, nil
}

// diagnosisSuggestions renders a suggestion string for each of the four
// outcome buckets a module diagnosis can land in.
func diagnosisSuggestions(exact, modulePattern, direct, integration int) []string {
	if exact == 0 && modulePattern == 0 && direct == 0 && integration == 0 {
		return []string{
			"No matching tests found in the fact store.",
			"Test file might not be indexed. Run 'tia build-index' on the test repository.",
			"If a test exists, check it follows the naming convention the reference matcher expects.",
		}
	}
	var suggestions []string
	if (exact > 0 || modulePattern > 0) && direct == 0 {
		suggestions = append(suggestions, "Tests exist but don't follow naming convention; matched via reference index instead.")
	}
	if direct > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Found %d direct test file match(es).", direct))
	}
	if integration > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Found %d integration/e2e test(s) covering this module.", integration))
	}
	return suggestions
}

func printModuleDiagnoses(diagnoses []ModuleDiagnosis) {
	fmt.Println("=== Diagnose ===")
	if len(diagnoses) == 0 {
		fmt.Println("No changed production files found in this diff.")
		return
	}
	for _, d := range diagnoses {
		fmt.Printf("%s (module %s)\n", d.File, d.Module)
		fmt.Printf("  exact class matches: %d  module pattern rows: %d  direct file matches: %d  integration matches: %d\n",
			d.ExactClassMatches, d.ModulePatternRows, d.DirectFileMatches, d.IntegrationMatches)
		for _, s := range d.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
		fmt.Println()
	}
}

func printDiagnoseResult(r DiagnoseResult) {
	fmt.Println("=== Diagnose ===")
	fmt.Printf("Project:            %s\n", r.ProjectID)
	fmt.Printf("Store:              %s\n", r.DSN)
	fmt.Printf("Tests:              %d\n", r.Tests)
	fmt.Printf("Dependencies:       %d\n", r.Dependencies)
	fmt.Printf("Function Mappings:  %d\n", r.FunctionMappings)
	fmt.Printf("Reverse Index Rows: %d\n", r.ReverseIndexRows)
	fmt.Printf("Embedded Tests:     %d", r.EmbeddedTests)
	if r.Tests > 0 {
		fmt.Printf(" (%.0f%%)", float64(r.EmbeddedTests)/float64(r.Tests)*100)
	}
	fmt.Println()
	if r.Tests == 0 {
		fmt.Println()
		fmt.Println("No tests indexed yet. Run 'tia build-index' first.")
	} else if r.EmbeddedTests == 0 {
		fmt.Println()
		fmt.Println("No embeddings stored. Run 'tia embed' to enable semantic matching.")
	}
	if len(r.Structure) > 0 {
		fmt.Println()
		fmt.Printf("Structure (%d directories):\n", len(r.Structure))
		for _, s := range r.Structure {
			fmt.Printf("  %-8s %6d files  %8d lines  %s\n", s.Category, s.FileCount, s.TotalLines, s.DirectoryPath)
		}
	}
}

func countRows(ctx context.Context, db *sql.DB, table string) int {
	return countRowsWhere(ctx, db, table, "")
}

func countRowsWhere(ctx context.Context, db *sql.DB, table, where string) int {
	query := fmt.Sprintf("SELECT count(*) FROM %s", table)
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0
	}
	return n
}
