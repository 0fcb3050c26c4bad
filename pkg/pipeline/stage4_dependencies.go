// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"

	"github.com/kraklabs/tia/pkg/model"
)

// DependencyRecord is one row of stage 4's artifact.
type DependencyRecord struct {
	TestID          string `json:"test_id"`
	ReferencedClass string `json:"referenced_class"`
	ReferenceType   string `json:"reference_type"`
}

// ExtractStaticDependencies (stage 4) aggregates each file's production
// imports and string references into a shared referenced_classes set,
// applied to every test registered for that file. Returns every
// Dependency row written, reused directly by stage 6.
func (p *Pipeline) ExtractStaticDependencies(ctx context.Context, parsed []parsedFile, ids map[testKey]string) ([]DependencyRecord, error) {
	byFile := testIDsByFile(ids)

	var records []DependencyRecord

	for _, pf := range parsed {
		testIDsForFile := byFile[pf.Path]
		if len(testIDsForFile) == 0 {
			continue
		}

		deps := fileDependencies(pf)

		for _, testID := range testIDsForFile {
			tagged := make([]model.Dependency, len(deps))
			for i, d := range deps {
				d.TestID = testID
				tagged[i] = d
			}
			if err := p.Store.UpsertDependencies(ctx, testID, tagged); err != nil {
				return nil, fmt.Errorf("extract static dependencies: %s: %w", testID, err)
			}
			for _, d := range tagged {
				records = append(records, DependencyRecord{TestID: d.TestID, ReferencedClass: d.ReferencedClass, ReferenceType: string(d.ImportType)})
			}
		}
	}

	if err := writeArtifact(p.ArtifactDir, 4, records); err != nil {
		return nil, err
	}
	return records, nil
}

// fileDependencies computes the referenced_classes set for one file:
// production imports (direct_import) union production string
// references (string_ref), deduplicated by (class, type).
func fileDependencies(pf parsedFile) []model.Dependency {
	seen := make(map[string]bool)
	var out []model.Dependency

	imports := pf.Lang.ExtractImports(pf.File)
	for _, name := range imports.AllImports {
		if !isProductionRef(name) {
			continue
		}
		key := name + "\x00direct_import"
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Dependency{ReferencedClass: name, ImportType: model.ReferenceDirectImport})
	}

	for _, ref := range pf.Lang.ExtractStringReferences(pf.File) {
		if !isProductionRef(ref) {
			continue
		}
		key := ref + "\x00string_ref"
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Dependency{ReferencedClass: ref, ImportType: model.ReferenceStringRef})
	}

	return out
}

// testIDsByFile groups every registered test_id by its file path.
func testIDsByFile(ids map[testKey]string) map[string][]string {
	out := make(map[string][]string)
	for key, id := range ids {
		out[key.filePath] = append(out[key.filePath], id)
	}
	return out
}
