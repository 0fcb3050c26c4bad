// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kraklabs/tia/pkg/model"
)

// NextTestID returns the next monotonic test_id for a clean or
// incremental index: test_0001 on an empty registry, otherwise one past
// the existing maximum. The caller must hold this value only under a
// transaction boundary to keep assignment stable under concurrent
// pipeline workers.
func (s *Store) NextTestID(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT test_id FROM test_registry ORDER BY test_id DESC LIMIT 1`)
	var maxID string
	switch err := row.Scan(&maxID); {
	case err == sql.ErrNoRows:
		return "test_0001", nil
	case err != nil:
		return "", fmt.Errorf("next test id: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimPrefix(maxID, "test_"))
	if err != nil {
		return "", fmt.Errorf("parse existing test id %q: %w", maxID, err)
	}
	return fmt.Sprintf("test_%04d", n+1), nil
}

// FindTestID looks up an existing test_id by its natural key, used by
// incremental re-indexing to avoid assigning a duplicate ID to a test
// that is already registered.
func (s *Store) FindTestID(ctx context.Context, filePath, className, methodName string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT test_id FROM test_registry WHERE file_path = ? AND class_name = ? AND method_name = ?`,
		filePath, className, methodName)
	var id string
	switch err := row.Scan(&id); {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("find test id: %w", err)
	}
	return id, true, nil
}

// UpsertTest inserts or replaces a Test row (idempotent, keyed on test_id).
func (s *Store) UpsertTest(ctx context.Context, t model.Test) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_registry (test_id, file_path, class_name, method_name, test_type, line_number)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(test_id) DO UPDATE SET
			file_path=excluded.file_path, class_name=excluded.class_name,
			method_name=excluded.method_name, test_type=excluded.test_type,
			line_number=excluded.line_number`,
		t.TestID, t.FilePath, t.ClassName, t.MethodName, string(t.TestType), t.LineNumber)
	if err != nil {
		return fmt.Errorf("upsert test %s: %w", t.TestID, err)
	}
	return nil
}

// UpsertDependencies replaces a test's full set of Dependency rows
// (stage 4). Replacing wholesale keeps the pipeline idempotent: re-running
// stage 4 for a test converges to the same rows regardless of what was
// there before.
func (s *Store) UpsertDependencies(ctx context.Context, testID string, deps []model.Dependency) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert dependencies: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_dependencies WHERE test_id = ?`, testID); err != nil {
		return fmt.Errorf("upsert dependencies: clear: %w", err)
	}
	for _, d := range deps {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO test_dependencies (test_id, referenced_class, import_type) VALUES (?, ?, ?)`,
			d.TestID, d.ReferencedClass, string(d.ImportType)); err != nil {
			return fmt.Errorf("upsert dependencies: insert: %w", err)
		}
	}
	return tx.Commit()
}

// UpsertFunctionMappings replaces a test's FunctionMapping rows (stage 5).
// Rows with an empty ModuleName must never reach this function - the
// caller (pipeline stage 5) filters them before calling, since a row
// with no module name is never persisted.
func (s *Store) UpsertFunctionMappings(ctx context.Context, testID string, mappings []model.FunctionMapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert function mappings: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_function_mapping WHERE test_id = ?`, testID); err != nil {
		return fmt.Errorf("upsert function mappings: clear: %w", err)
	}
	for _, m := range mappings {
		if m.ModuleName == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO test_function_mapping (test_id, module_name, function_name, call_type, source) VALUES (?, ?, ?, ?, ?)`,
			m.TestID, m.ModuleName, m.FunctionName, string(m.CallType), string(m.Source)); err != nil {
			return fmt.Errorf("upsert function mappings: insert: %w", err)
		}
	}
	return tx.Commit()
}

// RebuildReverseIndexForTest derives a test's ReverseIndexEntry rows from
// its current Dependency rows (stage 6). Spec §9: "the reverse index is a
// materialized view" - it is always rebuilt from Dependencies, never
// hand-maintained.
func (s *Store) RebuildReverseIndexForTest(ctx context.Context, testID, filePath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rebuild reverse index: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reverse_index WHERE test_id = ?`, testID); err != nil {
		return fmt.Errorf("rebuild reverse index: clear: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT referenced_class, import_type FROM test_dependencies WHERE test_id = ?`, testID)
	if err != nil {
		return fmt.Errorf("rebuild reverse index: read dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var class, refType string
		if err := rows.Scan(&class, &refType); err != nil {
			return fmt.Errorf("rebuild reverse index: scan: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO reverse_index (production_class, test_id, test_file_path, reference_type) VALUES (?, ?, ?, ?)`,
			class, testID, filePath, refType); err != nil {
			return fmt.Errorf("rebuild reverse index: insert: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertMetadata replaces a test's TestMetadata row (stage 7). Exactly
// one row exists per test.
func (s *Store) UpsertMetadata(ctx context.Context, m model.TestMetadata) error {
	markersJSON, err := json.Marshal(m.Markers)
	if err != nil {
		return fmt.Errorf("upsert metadata: marshal markers: %w", err)
	}
	var embBlob []byte
	if len(m.Embedding) > 0 {
		embBlob = encodeFloat32(m.Embedding)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO test_metadata (test_id, description, markers, is_async, is_parameterized, pattern, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(test_id) DO UPDATE SET
			description=excluded.description, markers=excluded.markers,
			is_async=excluded.is_async, is_parameterized=excluded.is_parameterized,
			pattern=excluded.pattern,
			embedding=COALESCE(excluded.embedding, test_metadata.embedding)`,
		m.TestID, m.Description, string(markersJSON), boolToInt(m.IsAsync), boolToInt(m.IsParameterized), m.Pattern, embBlob)
	if err != nil {
		return fmt.Errorf("upsert metadata %s: %w", m.TestID, err)
	}
	return nil
}

// DeleteTestsCascade removes the given test IDs from all five tables, in
// child-to-parent order, within a single transaction. Used by the
// dedup pass.
func (s *Store) DeleteTestsCascade(ctx context.Context, testIDs []string) error {
	if len(testIDs) == 0 {
		return nil
	}
	sort.Strings(testIDs)

	placeholders := make([]string, len(testIDs))
	args := make([]any, len(testIDs))
	for i, id := range testIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := "(" + strings.Join(placeholders, ",") + ")"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete tests cascade: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"reverse_index", "test_dependencies", "test_function_mapping", "test_metadata", "test_registry"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE test_id IN %s`, table, inClause), args...); err != nil {
			return fmt.Errorf("delete tests cascade: %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// ClearEmbeddings drops every stored vector: the relational backend's
// test_metadata.embedding column and, if present, the embedded
// backend's test_vectors virtual table. Safe to call whichever backend
// is configured; a missing test_vectors table is not an error.
func (s *Store) ClearEmbeddings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE test_metadata SET embedding = NULL`); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM test_vectors`); err != nil {
		// the embedded backend's virtual table only exists under the CGO
		// build with sqlite-vec loaded; its absence is not an error.
		return nil
	}
	return nil
}

// ReplaceTestStructure replaces the full set of TestStructure rows in a
// single transaction (stage 1's directory-level summary). A fresh
// scan's directory set fully supersedes the prior one rather than
// being merged with it, since a deleted or renamed directory must not
// leave a stale row behind.
func (s *Store) ReplaceTestStructure(ctx context.Context, rows []model.TestStructure) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace test structure: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_structure`); err != nil {
		return fmt.Errorf("replace test structure: clear: %w", err)
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_structure (directory_path, category, file_count, total_lines) VALUES (?, ?, ?, ?)`,
			r.DirectoryPath, string(r.Category), r.FileCount, r.TotalLines); err != nil {
			return fmt.Errorf("replace test structure: insert: %w", err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
