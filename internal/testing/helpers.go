// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package testing provides test helpers for seeding and querying an
// in-memory fact store. Only this package's own tests import it; the
// pkg/... test suites open their stores directly.
package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

// SetupTestStore creates an in-memory fact store with its schema
// applied. The store is automatically closed when the test finishes.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(store.DriverPure, ":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}

	t.Cleanup(func() { st.Close() })
	return st
}

// InsertTest seeds one test row directly, bypassing the build-index
// pipeline, for tests that only need a handful of rows in place.
func InsertTest(t *testing.T, st *store.Store, testID, filePath, className, methodName string, testType model.TestType) {
	t.Helper()

	err := st.UpsertTest(context.Background(), model.Test{
		TestID:     testID,
		FilePath:   filePath,
		ClassName:  className,
		MethodName: methodName,
		TestType:   testType,
	})
	if err != nil {
		t.Fatalf("failed to insert test %s: %v", testID, err)
	}
}

// InsertDependency seeds one test's static dependency rows.
func InsertDependency(t *testing.T, st *store.Store, testID string, deps ...model.Dependency) {
	t.Helper()

	if err := st.UpsertDependencies(context.Background(), testID, deps); err != nil {
		t.Fatalf("failed to insert dependencies for %s: %v", testID, err)
	}
}

// InsertFunctionMapping seeds one test's function-call mapping rows.
func InsertFunctionMapping(t *testing.T, st *store.Store, testID string, mappings ...model.FunctionMapping) {
	t.Helper()

	if err := st.UpsertFunctionMappings(context.Background(), testID, mappings); err != nil {
		t.Fatalf("failed to insert function mappings for %s: %v", testID, err)
	}
}

// InsertReverseIndex rebuilds the reverse index for one test from its
// already-seeded dependency rows.
func InsertReverseIndex(t *testing.T, st *store.Store, testID, filePath string) {
	t.Helper()

	if err := st.RebuildReverseIndexForTest(context.Background(), testID, filePath); err != nil {
		t.Fatalf("failed to rebuild reverse index for %s: %v", testID, err)
	}
}

// InsertMetadata seeds one test's metadata row.
func InsertMetadata(t *testing.T, st *store.Store, m model.TestMetadata) {
	t.Helper()

	if err := st.UpsertMetadata(context.Background(), m); err != nil {
		t.Fatalf("failed to insert metadata for %s: %v", m.TestID, err)
	}
}

// QueryAllTests returns every test row currently in the store.
func QueryAllTests(t *testing.T, st *store.Store) []model.Test {
	t.Helper()

	tests, err := st.AllTests(context.Background())
	if err != nil {
		t.Fatalf("failed to query tests: %v", err)
	}
	return tests
}
