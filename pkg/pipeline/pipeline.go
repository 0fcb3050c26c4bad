// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/tia/internal/errors"
	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/parser"
	"github.com/kraklabs/tia/pkg/scanner"
	"github.com/kraklabs/tia/pkg/store"
)

// maxParseWorkers caps the parse worker pool so a 64-core box doesn't
// spawn 64 goroutines for a few hundred files.
const maxParseWorkers = 8

// Pipeline runs the seven build-index stages against one test tree,
// persisting both the fact store rows and the per-stage JSON artifacts.
type Pipeline struct {
	TestRoot    string
	ProjectRoot string
	ArtifactDir string

	Store    *store.Store
	Registry *parser.Registry
	Logger   *slog.Logger
}

// New builds a Pipeline. logger may be nil, in which case a discard
// logger is used.
func New(st *store.Store, reg *parser.Registry, testRoot, projectRoot, artifactDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &Pipeline{
		TestRoot:    testRoot,
		ProjectRoot: projectRoot,
		ArtifactDir: artifactDir,
		Store:       st,
		Registry:    reg,
		Logger:      logger,
	}
}

// parsedFile bundles one scanned file with the parser-produced facts
// needed by stages 3 through 7.
type parsedFile struct {
	Path     string
	Size     int64
	Lines    int
	Category model.TestType

	Lang       parser.LanguageParser
	File       *parser.File
	ModuleName string
}

// Result summarizes one build-index run, returned to the CLI for its
// human-readable report.
type Result struct {
	FilesScanned     int
	ParseErrors      int
	TestsRegistered  int
	DependencyRows   int
	FunctionMapRows  int
	ReverseIndexRows int
	StructureRows    int
	Framework        FrameworkReport
}

// Run executes stages 1 through 7 in order against the configured test
// tree and fact store.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	files, err := p.Scan(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("stage 1 (scan): %w", err)
	}
	result, err := p.runFiles(ctx, files)
	if err != nil {
		return Result{}, err
	}
	result.StructureRows = len(BuildTestStructure(files))
	return result, nil
}

// RunFiles runs stages 2 through 7 against an explicit set of test file
// paths instead of walking the whole tree, so a reindex can process
// only the files dedup.Verify reports as MissingFromIndex. The
// natural-key check inside BuildRegistry still applies unchanged, so a
// path that happens to already be indexed is simply reconciled, not
// duplicated. TestStructure is a whole-tree summary, so an incremental
// run leaves it untouched rather than re-deriving it from a partial
// file set; only a full Run replaces it.
func (p *Pipeline) RunFiles(ctx context.Context, paths []string) (Result, error) {
	files := scanPaths(paths)
	records := make([]ScanRecord, len(files))
	for i, f := range files {
		records[i] = ScanRecord{Path: f.Path, Size: f.Size, Lines: f.Lines, Category: string(f.Category)}
	}
	if err := writeArtifact(p.ArtifactDir, 1, records); err != nil {
		return Result{}, fmt.Errorf("stage 1 (scan): %w", err)
	}
	return p.runFiles(ctx, files)
}

// runFiles is the shared stage 2-7 body for both a full Run and an
// incremental RunFiles.
func (p *Pipeline) runFiles(ctx context.Context, files []scanner.File) (Result, error) {
	parsed, parseErrors := p.parseAll(ctx, files)

	framework := p.DetectFramework(parsed)

	tests, testIDs, err := p.BuildRegistry(ctx, parsed)
	if err != nil {
		return Result{}, fmt.Errorf("stage 3 (build test registry): %w", err)
	}

	depRecords, err := p.ExtractStaticDependencies(ctx, parsed, testIDs)
	if err != nil {
		return Result{}, fmt.Errorf("stage 4 (extract static dependencies): %w", err)
	}

	mapRows, err := p.ExtractFunctionCalls(ctx, parsed, testIDs)
	if err != nil {
		return Result{}, fmt.Errorf("stage 5 (extract function calls): %w", err)
	}

	revRows, err := p.BuildReverseIndex(ctx, testIDs, depRecords)
	if err != nil {
		return Result{}, fmt.Errorf("stage 6 (build reverse index): %w", err)
	}

	if err := p.ExtractMetadata(ctx, parsed, testIDs); err != nil {
		return Result{}, fmt.Errorf("stage 7 (metadata): %w", err)
	}

	return Result{
		FilesScanned:     len(files),
		ParseErrors:      parseErrors,
		TestsRegistered:  len(tests),
		DependencyRows:   len(depRecords),
		FunctionMapRows:  mapRows,
		ReverseIndexRows: revRows,
		Framework:        framework,
	}, nil
}

// parseAll parses every scanned file through the registry's matching
// language parser using a bounded worker pool. Extracting static
// dependencies and extracting function calls both read the same
// parsed tree, so it is produced once and shared. A file whose parser
// is absent, or whose ParseFile degrades to (nil, nil), is silently
// skipped and counted as a parse error - it never aborts the run.
func (p *Pipeline) parseAll(ctx context.Context, files []scanner.File) ([]parsedFile, int) {
	results := make([]*parsedFile, len(files))

	limit := runtime.NumCPU()
	if limit > maxParseWorkers {
		limit = maxParseWorkers
	}
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			content, err := os.ReadFile(f.Path)
			if err != nil {
				errors.WarnParseFailure(f.Path, err)
				return nil
			}
			lang, ok := p.Registry.DetectLanguage(f.Path)
			if !ok {
				return nil // unrecognized extension, not an error
			}
			pf, err := lang.ParseFile(gctx, f.Path, content)
			if err != nil {
				errors.WarnParseFailure(f.Path, err)
				return nil
			}
			if pf == nil {
				return nil // permanent parse failure, already warned by the parser
			}
			results[i] = &parsedFile{
				File:       pf,
				Lang:       lang,
				ModuleName: lang.ResolveModuleName(f.Path, p.ProjectRoot),
			}
			results[i].File.Path = f.Path
			results[i].Path = f.Path
			results[i].Size = f.Size
			results[i].Lines = f.Lines
			results[i].Category = f.Category
			return nil
		})
	}
	_ = g.Wait() // per-file errors are already handled inline; Wait only observes cancellation

	var out []parsedFile
	parseErrors := 0
	for _, r := range results {
		if r == nil {
			parseErrors++
			continue
		}
		out = append(out, *r)
	}
	return out, parseErrors
}
