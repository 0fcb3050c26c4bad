// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.DriverPure, ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNextTestIDStartsAtOne(t *testing.T) {
	s := openTestStore(t)
	id, err := s.NextTestID(context.Background())
	require.NoError(t, err)
	require.Equal(t, "test_0001", id)
}

func TestNextTestIDContinuesFromMax(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0001", FilePath: "a.py", MethodName: "test_a", TestType: model.TestTypeUnit}))
	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0007", FilePath: "b.py", MethodName: "test_b", TestType: model.TestTypeUnit}))

	id, err := s.NextTestID(ctx)
	require.NoError(t, err)
	require.Equal(t, "test_0008", id)
}

func TestDependencyReverseIndexRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0001", FilePath: "test_agent.py", MethodName: "test_init", TestType: model.TestTypeUnit}))
	require.NoError(t, s.UpsertDependencies(ctx, "test_0001", []model.Dependency{
		{TestID: "test_0001", ReferencedClass: "agent.langgraph_agent", ImportType: model.ReferenceDirectImport},
	}))
	require.NoError(t, s.RebuildReverseIndexForTest(ctx, "test_0001", "test_agent.py"))

	entries, err := s.TestsForClass(ctx, "agent.langgraph_agent")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "test_0001", entries[0].TestID)
	require.Equal(t, model.ReferenceDirectImport, entries[0].ReferenceType)
}

func TestTestsForClassMatchesPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0001", FilePath: "test_agent.py", MethodName: "test_sub"}))
	require.NoError(t, s.UpsertDependencies(ctx, "test_0001", []model.Dependency{
		{TestID: "test_0001", ReferencedClass: "agent.langgraph_agent.SubAgent", ImportType: model.ReferenceStringRef},
	}))
	require.NoError(t, s.RebuildReverseIndexForTest(ctx, "test_0001", "test_agent.py"))

	entries, err := s.TestsForClass(ctx, "agent.langgraph_agent")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTestsForFunctionRanksPatchRefFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0002", FilePath: "test_b.py", MethodName: "test_b"}))
	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0001", FilePath: "test_a.py", MethodName: "test_a"}))
	require.NoError(t, s.UpsertFunctionMappings(ctx, "test_0001", []model.FunctionMapping{
		{TestID: "test_0001", ModuleName: "agent.core", FunctionName: "initialize", CallType: model.CallDirect, Source: model.SourceMethodCall},
	}))
	require.NoError(t, s.UpsertFunctionMappings(ctx, "test_0002", []model.FunctionMapping{
		{TestID: "test_0002", ModuleName: "agent.core", FunctionName: "initialize", CallType: model.CallPatchRef, Source: model.SourcePatchRef},
	}))

	tests, err := s.TestsForFunction(ctx, "agent.core", "initialize")
	require.NoError(t, err)
	require.Len(t, tests, 2)
	require.Equal(t, "test_0002", tests[0].TestID, "patch_ref source should rank ahead of method_call")
}

func TestDeleteTestsCascadeRemovesChildren(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0001", FilePath: "test_a.py", MethodName: "test_a"}))
	require.NoError(t, s.UpsertDependencies(ctx, "test_0001", []model.Dependency{
		{TestID: "test_0001", ReferencedClass: "agent.core", ImportType: model.ReferenceDirectImport},
	}))
	require.NoError(t, s.RebuildReverseIndexForTest(ctx, "test_0001", "test_a.py"))

	require.NoError(t, s.DeleteTestsCascade(ctx, []string{"test_0001"}))

	_, ok, err := s.GetTest(ctx, "test_0001")
	require.NoError(t, err)
	require.False(t, ok)

	entries, err := s.TestsForClass(ctx, "agent.core")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestClearEmbeddingsNullsStoredVectors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0001", FilePath: "test_a.py", MethodName: "test_a"}))
	require.NoError(t, s.UpsertMetadata(ctx, model.TestMetadata{
		TestID:    "test_0001",
		Embedding: []float32{0.1, 0.2, 0.3},
	}))

	meta, ok, err := s.Metadata(ctx, "test_0001")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, meta.Embedding)

	require.NoError(t, s.ClearEmbeddings(ctx))

	meta, ok, err = s.Metadata(ctx, "test_0001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, meta.Embedding)
}

func TestReplaceTestStructureRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTestStructure(ctx, []model.TestStructure{
		{DirectoryPath: "/repo/tests/unit", Category: model.TestTypeUnit, FileCount: 3, TotalLines: 120},
		{DirectoryPath: "/repo/tests/integration", Category: model.TestTypeIntegration, FileCount: 1, TotalLines: 40},
	}))

	rows, err := s.ListTestStructure(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "/repo/tests/integration", rows[0].DirectoryPath)
	require.Equal(t, model.TestTypeIntegration, rows[0].Category)
	require.Equal(t, "/repo/tests/unit", rows[1].DirectoryPath)
	require.Equal(t, 3, rows[1].FileCount)
	require.Equal(t, 120, rows[1].TotalLines)

	// a second replace fully supersedes the first set
	require.NoError(t, s.ReplaceTestStructure(ctx, []model.TestStructure{
		{DirectoryPath: "/repo/tests/e2e", Category: model.TestTypeE2E, FileCount: 2, TotalLines: 60},
	}))
	rows, err = s.ListTestStructure(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "/repo/tests/e2e", rows[0].DirectoryPath)
}
