// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
)

// ReverseIndexRecord is one row of stage 6's artifact.
type ReverseIndexRecord struct {
	ProductionClass string `json:"production_class"`
	TestID          string `json:"test_id"`
	TestFilePath    string `json:"test_file_path"`
	ReferenceType   string `json:"reference_type"`
}

// BuildReverseIndex (stage 6) inverts every registered test's
// Dependency rows into ReverseIndexEntry rows. The reverse index is
// always derived, never hand-maintained, so this stage is a pure
// rebuild keyed on test_id - dropping it and re-running this stage
// reproduces it exactly. It takes stage 4's dependency rows directly
// rather than re-reading them back from the store, since the store's
// mutation and the artifact's content describe the same rows either
// way.
func (p *Pipeline) BuildReverseIndex(ctx context.Context, ids map[testKey]string, deps []DependencyRecord) (int, error) {
	filePaths := make(map[string]string, len(ids))
	for key, testID := range ids {
		filePaths[testID] = key.filePath
	}

	for testID, filePath := range filePaths {
		if err := p.Store.RebuildReverseIndexForTest(ctx, testID, filePath); err != nil {
			return 0, fmt.Errorf("build reverse index: %s: %w", testID, err)
		}
	}

	records := make([]ReverseIndexRecord, 0, len(deps))
	for _, d := range deps {
		records = append(records, ReverseIndexRecord{
			ProductionClass: d.ReferencedClass,
			TestID:          d.TestID,
			TestFilePath:    filePaths[d.TestID],
			ReferenceType:   d.ReferenceType,
		})
	}
	if err := writeArtifact(p.ArtifactDir, 6, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
