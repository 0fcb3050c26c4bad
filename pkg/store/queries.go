// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kraklabs/tia/pkg/model"
)

// TestsForClass returns any
// ReverseIndexEntry whose production_class equals name or begins with
// "name.". Results are deduplicated per test_id, preferring an
// exact-class match over a prefix match, and preferring string_ref over
// other reference types as the tie-break.
func (s *Store) TestsForClass(ctx context.Context, name string) ([]model.ReverseIndexEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT production_class, test_id, test_file_path, reference_type
		FROM reverse_index
		WHERE production_class = ? OR production_class LIKE ? ESCAPE '\'
		ORDER BY
			CASE WHEN production_class = ? THEN 0 ELSE 1 END,
			CASE WHEN reference_type = 'string_ref' THEN 0 ELSE 1 END,
			test_id`,
		name, escapeLike(name)+".%", name)
	if err != nil {
		return nil, fmt.Errorf("tests for class %q: %w", name, err)
	}
	defer rows.Close()
	return dedupeByTestID(scanReverseIndexEntries(rows))
}

// TestsForModulePattern returns tests matching a module-name prefix,
// optionally restricted to specific classes within that module.
func (s *Store) TestsForModulePattern(ctx context.Context, prefix string, preferDirect bool, specificClasses []string) ([]model.ReverseIndexEntry, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT production_class, test_id, test_file_path, reference_type FROM reverse_index WHERE production_class = ?`)
	args = append(args, prefix)

	if len(specificClasses) > 0 {
		placeholders := make([]string, len(specificClasses))
		for i, c := range specificClasses {
			placeholders[i] = "?"
			args = append(args, c)
		}
		query.WriteString(fmt.Sprintf(" OR production_class IN (%s)", strings.Join(placeholders, ",")))
	}
	if !preferDirect {
		query.WriteString(" OR production_class LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(prefix)+".%")
	}

	query.WriteString(` ORDER BY
		CASE WHEN production_class = ? THEN 0 ELSE 1 END,
		CASE WHEN reference_type IN ('direct_import','string_ref') THEN 0 ELSE 1 END,
		test_id`)
	args = append(args, prefix)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("tests for module pattern %q: %w", prefix, err)
	}
	defer rows.Close()
	return dedupeByTestID(scanReverseIndexEntries(rows))
}

// TestsForFunction returns FunctionMapping rows joined to Test, with
// source='patch_ref' ranked ahead of source='method_call'.
func (s *Store) TestsForFunction(ctx context.Context, module, function string) ([]model.Test, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tr.test_id, tr.file_path, tr.class_name, tr.method_name, tr.test_type, tr.line_number
		FROM test_function_mapping fm
		JOIN test_registry tr ON tr.test_id = fm.test_id
		WHERE fm.module_name = ? AND fm.function_name = ?
		ORDER BY CASE WHEN fm.source = 'patch_ref' THEN 0 ELSE 1 END, tr.test_id`,
		module, function)
	if err != nil {
		return nil, fmt.Errorf("tests for function %s.%s: %w", module, function, err)
	}
	defer rows.Close()
	return scanTests(rows)
}

// TestsByPathPattern returns Test rows whose file_path matches a
// directory-separator-tolerant wildcard
// (callers pass a SQL LIKE pattern already normalized to forward
// slashes).
func (s *Store) TestsByPathPattern(ctx context.Context, likePattern string) ([]model.Test, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test_id, file_path, class_name, method_name, test_type, line_number
		FROM test_registry WHERE file_path LIKE ? ESCAPE '\' ORDER BY test_id`, likePattern)
	if err != nil {
		return nil, fmt.Errorf("tests by path pattern %q: %w", likePattern, err)
	}
	defer rows.Close()
	return scanTests(rows)
}

// IntegrationTestsForClass is TestsForClass restricted to
// test_type in {integration, e2e}.
func (s *Store) IntegrationTestsForClass(ctx context.Context, name string) ([]model.ReverseIndexEntry, error) {
	entries, err := s.TestsForClass(ctx, name)
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		t, ok, err := s.GetTest(ctx, e.TestID)
		if err != nil {
			return nil, err
		}
		if ok && (t.TestType == model.TestTypeIntegration || t.TestType == model.TestTypeE2E) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// GetTest fetches a single Test row by ID.
func (s *Store) GetTest(ctx context.Context, testID string) (model.Test, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT test_id, file_path, class_name, method_name, test_type, line_number FROM test_registry WHERE test_id = ?`, testID)
	var t model.Test
	var testType string
	switch err := row.Scan(&t.TestID, &t.FilePath, &t.ClassName, &t.MethodName, &testType, &t.LineNumber); {
	case err == sql.ErrNoRows:
		return model.Test{}, false, nil
	case err != nil:
		return model.Test{}, false, fmt.Errorf("get test %s: %w", testID, err)
	}
	t.TestType = model.TestType(testType)
	return t, true, nil
}

// AllTests returns every row in test_registry, ordered by test_id.
func (s *Store) AllTests(ctx context.Context) ([]model.Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT test_id, file_path, class_name, method_name, test_type, line_number FROM test_registry ORDER BY test_id`)
	if err != nil {
		return nil, fmt.Errorf("all tests: %w", err)
	}
	defer rows.Close()
	return scanTests(rows)
}

// FunctionMappingsForTest returns every FunctionMapping row for one test,
// ordered for the "first 10" truncation the embedding generator applies.
func (s *Store) FunctionMappingsForTest(ctx context.Context, testID string) ([]model.FunctionMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT test_id, module_name, function_name, call_type, source FROM test_function_mapping WHERE test_id = ? ORDER BY module_name, function_name`, testID)
	if err != nil {
		return nil, fmt.Errorf("function mappings for %s: %w", testID, err)
	}
	defer rows.Close()

	var out []model.FunctionMapping
	for rows.Next() {
		var m model.FunctionMapping
		var callType, source string
		if err := rows.Scan(&m.TestID, &m.ModuleName, &m.FunctionName, &callType, &source); err != nil {
			return nil, err
		}
		m.CallType, m.Source = model.CallType(callType), model.MappingSource(source)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Metadata fetches a test's TestMetadata row, if present.
func (s *Store) Metadata(ctx context.Context, testID string) (model.TestMetadata, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT test_id, description, markers, is_async, is_parameterized, pattern, embedding FROM test_metadata WHERE test_id = ?`, testID)

	var m model.TestMetadata
	var markersJSON string
	var isAsync, isParam int
	var embBlob []byte
	switch err := row.Scan(&m.TestID, &m.Description, &markersJSON, &isAsync, &isParam, &m.Pattern, &embBlob); {
	case err == sql.ErrNoRows:
		return model.TestMetadata{}, false, nil
	case err != nil:
		return model.TestMetadata{}, false, fmt.Errorf("metadata for %s: %w", testID, err)
	}
	m.IsAsync, m.IsParameterized = isAsync != 0, isParam != 0
	m.Markers = decodeMarkers(markersJSON)
	if len(embBlob) > 0 {
		m.Embedding = decodeFloat32(embBlob)
	}
	return m, true, nil
}

func scanReverseIndexEntries(rows *sql.Rows) ([]model.ReverseIndexEntry, error) {
	var out []model.ReverseIndexEntry
	for rows.Next() {
		var e model.ReverseIndexEntry
		var refType string
		if err := rows.Scan(&e.ProductionClass, &e.TestID, &e.TestFilePath, &refType); err != nil {
			return nil, err
		}
		e.ReferenceType = model.ReferenceType(refType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListTestStructure returns every directory-level summary row (stage
// 1's TestStructure), ordered by directory path.
func (s *Store) ListTestStructure(ctx context.Context) ([]model.TestStructure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT directory_path, category, file_count, total_lines FROM test_structure ORDER BY directory_path`)
	if err != nil {
		return nil, fmt.Errorf("list test structure: %w", err)
	}
	defer rows.Close()

	var out []model.TestStructure
	for rows.Next() {
		var r model.TestStructure
		var category string
		if err := rows.Scan(&r.DirectoryPath, &category, &r.FileCount, &r.TotalLines); err != nil {
			return nil, fmt.Errorf("list test structure: scan: %w", err)
		}
		r.Category = model.TestType(category)
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTests(rows *sql.Rows) ([]model.Test, error) {
	var out []model.Test
	for rows.Next() {
		var t model.Test
		var testType string
		if err := rows.Scan(&t.TestID, &t.FilePath, &t.ClassName, &t.MethodName, &testType, &t.LineNumber); err != nil {
			return nil, err
		}
		t.TestType = model.TestType(testType)
		out = append(out, t)
	}
	return out, rows.Err()
}

// dedupeByTestID keeps the first occurrence of each TestID; callers
// already ORDER BY the tie-break priority, so "first" is "best".
func dedupeByTestID(entries []model.ReverseIndexEntry, err error) ([]model.ReverseIndexEntry, error) {
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.TestID] {
			continue
		}
		seen[e.TestID] = true
		out = append(out, e)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
