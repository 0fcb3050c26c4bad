// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"context"
	"path/filepath"

	"github.com/kraklabs/tia/pkg/scanner"
	"github.com/kraklabs/tia/pkg/store"
)

// VerifyReport is the result of reconciling a fresh file walk against
// the fact store's registered file paths (spec §4.10 "verification").
type VerifyReport struct {
	// MissingFromDisk lists file_paths the store has but the walk
	// didn't find: the test file was deleted or moved since indexing.
	MissingFromDisk []string

	// MissingFromIndex lists canonicalized on-disk paths the store has
	// no row for: a new test file hasn't been indexed yet.
	MissingFromIndex []string
}

// Verify walks testRoot and compares its canonicalized file paths
// against every file_path currently in the fact store.
func Verify(ctx context.Context, st *store.Store, testRoot string) (VerifyReport, error) {
	onDisk := make(map[string]bool)
	files, err := scanner.Scan(testRoot)
	if err != nil {
		return VerifyReport{}, err
	}
	for _, f := range files {
		onDisk[f.Path] = true
	}

	tests, err := st.AllTests(ctx)
	if err != nil {
		return VerifyReport{}, err
	}

	indexed := make(map[string]bool)
	var report VerifyReport
	for _, t := range tests {
		path := t.FilePath
		if indexed[path] {
			continue
		}
		indexed[path] = true
		if !onDisk[path] {
			report.MissingFromDisk = append(report.MissingFromDisk, path)
		}
	}

	for path := range onDisk {
		if !indexed[path] {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			report.MissingFromIndex = append(report.MissingFromIndex, abs)
		}
	}

	return report, nil
}
