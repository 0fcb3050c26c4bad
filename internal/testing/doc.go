// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package testing provides fact-store seeding and query helpers shared
// across the module's test suites.
//
// # Quick Start
//
// Use SetupTestStore to create an in-memory store with its schema
// applied:
//
//	func TestMyFeature(t *testing.T) {
//	    st := testing.SetupTestStore(t)
//	    testing.InsertTest(t, st, "test_0001", "tests/unit/test_x.py", "TestX", "test_one", model.TestTypeUnit)
//	    tests := testing.QueryAllTests(t, st)
//	    require.Len(t, tests, 1)
//	}
//
// # Seeding Test Data
//
// The package provides helpers for inserting rows into every one of
// the fact store's tables without going through the build-index
// pipeline:
//   - InsertTest: add a test row
//   - InsertDependency: add static dependency rows for a test
//   - InsertFunctionMapping: add function-call mapping rows for a test
//   - InsertReverseIndex: rebuild the reverse index for a test
//   - InsertMetadata: add a test's descriptive metadata row
//
// # Querying Test Data
//
//   - QueryAllTests: every test row currently in the store
package testing
