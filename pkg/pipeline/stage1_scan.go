// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/scanner"
)

// ScanRecord is one row of stage 1's artifact.
type ScanRecord struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Lines    int    `json:"lines"`
	Category string `json:"category"`
}

// Scan (stage 1) walks the test tree and records every discovered file.
// Besides the per-file artifact, it also aggregates the scanned files
// into TestStructure rows (spec §3, grounded on
// 07_map_test_structure.py) and replaces the fact store's full
// directory-summary set with them; stage 3 still consumes files
// directly from the scanner, not from this artifact.
func (p *Pipeline) Scan(ctx context.Context) ([]scanner.File, error) {
	files, err := scanner.Scan(p.TestRoot)
	if err != nil {
		return nil, err
	}

	records := make([]ScanRecord, len(files))
	for i, f := range files {
		records[i] = ScanRecord{Path: f.Path, Size: f.Size, Lines: f.Lines, Category: string(f.Category)}
	}
	if err := writeArtifact(p.ArtifactDir, 1, records); err != nil {
		return nil, err
	}

	if err := p.Store.ReplaceTestStructure(ctx, BuildTestStructure(files)); err != nil {
		return nil, fmt.Errorf("persist test structure: %w", err)
	}
	return files, nil
}

// BuildTestStructure aggregates a list of scanned files into one
// TestStructure row per unique parent directory, summing file count
// and line count the way 07_map_test_structure.py's
// analyze_directory_structure groups files by directory.
func BuildTestStructure(files []scanner.File) []model.TestStructure {
	agg := make(map[string]*model.TestStructure)
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		row, ok := agg[dir]
		if !ok {
			row = &model.TestStructure{DirectoryPath: dir, Category: scanner.Categorize(dir)}
			agg[dir] = row
		}
		row.FileCount++
		row.TotalLines += f.Lines
	}

	dirs := make([]string, 0, len(agg))
	for dir := range agg {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	out := make([]model.TestStructure, len(dirs))
	for i, dir := range dirs {
		out[i] = *agg[dir]
	}
	return out
}

// scanPaths builds the stage 1 file list from an explicit path set
// instead of walking the tree, used by incremental re-indexing (spec
// §4.10 "only process missing files").
func scanPaths(paths []string) []scanner.File {
	files := make([]scanner.File, 0, len(paths))
	for _, path := range paths {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		files = append(files, scanner.File{
			Path:     path,
			Size:     size,
			Lines:    countLines(path),
			Category: scanner.Categorize(path),
		})
	}
	return files
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	lines := 0
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scan.Scan() {
		lines++
	}
	return lines
}
