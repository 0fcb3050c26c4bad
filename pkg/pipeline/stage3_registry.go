// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"

	"github.com/kraklabs/tia/pkg/model"
)

// testKey is a test's natural key: (file_path, class_name, method_name).
type testKey struct {
	filePath, className, methodName string
}

// RegistryRecord is one row of stage 3's artifact.
type RegistryRecord struct {
	TestID     string `json:"test_id"`
	FilePath   string `json:"file_path"`
	ClassName  string `json:"class_name,omitempty"`
	MethodName string `json:"method_name"`
	TestType   string `json:"test_type"`
	LineNumber int    `json:"line_number"`
}

// BuildRegistry (stage 3) assigns one Test row per discovered test
// function/method, reusing an existing test_id on a natural-key match
// (incremental re-index) or assigning the next monotonic one. It
// returns the registered tests plus a lookup from natural key to
// test_id, consumed by stages 4, 5, and 7.
func (p *Pipeline) BuildRegistry(ctx context.Context, parsed []parsedFile) ([]model.Test, map[testKey]string, error) {
	nextID, err := p.Store.NextTestID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build registry: %w", err)
	}
	counter := parseCounter(nextID)

	var tests []model.Test
	ids := make(map[testKey]string)
	var records []RegistryRecord

	for _, pf := range parsed {
		for _, fn := range pf.Lang.ExtractTestMethods(pf.File) {
			key := testKey{filePath: pf.Path, className: fn.ClassName, methodName: fn.Name}

			id, found, err := p.Store.FindTestID(ctx, key.filePath, key.className, key.methodName)
			if err != nil {
				return nil, nil, fmt.Errorf("build registry: lookup %s: %w", fn.Name, err)
			}
			if !found {
				id = fmt.Sprintf("test_%04d", counter)
				counter++
			}

			t := model.Test{
				TestID:     id,
				FilePath:   key.filePath,
				ClassName:  key.className,
				MethodName: key.methodName,
				TestType:   pf.Category,
				LineNumber: fn.LineNumber,
			}
			if err := p.Store.UpsertTest(ctx, t); err != nil {
				return nil, nil, fmt.Errorf("build registry: upsert %s: %w", id, err)
			}

			tests = append(tests, t)
			ids[key] = id
			records = append(records, RegistryRecord{
				TestID: id, FilePath: t.FilePath, ClassName: t.ClassName,
				MethodName: t.MethodName, TestType: string(t.TestType), LineNumber: t.LineNumber,
			})
		}
	}

	if err := writeArtifact(p.ArtifactDir, 3, records); err != nil {
		return nil, nil, err
	}
	return tests, ids, nil
}

func parseCounter(testID string) int {
	var n int
	_, _ = fmt.Sscanf(testID, "test_%d", &n)
	return n
}
