// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package match_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/diff"
	"github.com/kraklabs/tia/pkg/embedding"
	"github.com/kraklabs/tia/pkg/match"
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

func TestRunSemanticOnlyReturnsNilWithoutBackend(t *testing.T) {
	s := openTestStore(t)
	engine := match.NewEngine(s, nil, nil)

	results, err := engine.RunSemanticOnly(context.Background(), diff.Request{})
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestRunSemanticOnlyFindsStoredVector(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTest(ctx, model.Test{TestID: "test_0001", FilePath: "test_agent.py", MethodName: "test_init"}))

	provider := embedding.NewMockProvider(32)
	backend := embedding.NewRelationalBackend(s)

	vectors, err := provider.Embed(ctx, []string{"initialize() in agent.core"})
	require.NoError(t, err)
	stored, failed, err := backend.Store([]model.Test{{TestID: "test_0001"}}, vectors)
	require.NoError(t, err)
	require.Equal(t, 1, stored)
	require.Equal(t, 0, failed)

	engine := match.NewEngine(s, provider, backend)
	engine.SimilarityThreshold = 0 // the mock provider's deterministic vectors rarely land above 0.3

	req := diff.Request{ChangedFunctions: []diff.ChangedFunction{{Module: "agent.core", Function: "initialize"}}}
	results, err := engine.RunSemanticOnly(ctx, req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "test_0001", results[0].TestID)
	require.Len(t, results[0].Reasons, 1)
	require.Equal(t, model.ReasonSemantic, results[0].Reasons[0].Type)
}

// TestDirectFileMatchesProductionStem covers spec §4.7 strategy 1
// sub-strategy (iv): a changed production file whose only covering
// test doesn't match any synthesized "test_*" candidate name must
// still match because the test's file name contains the production
// file's own stem.
func TestDirectFileMatchesProductionStem(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTest(ctx, model.Test{
		TestID:     "test_0001",
		FilePath:   "tests/test_billing_processor_flows.py",
		MethodName: "test_handles_refund",
	}))

	changes := diff.ParseUnifiedDiff(`diff --git a/src/billing/processor.py b/src/billing/processor.py
index 1111111..2222222 100644
--- a/src/billing/processor.py
+++ b/src/billing/processor.py
@@ -10,6 +10,9 @@ class Processor:
     def charge(self, amount):
         return amount

+    def refund(self, amount):
+        return -amount
+
`)
	req := diff.BuildRequest(changes)
	require.Contains(t, req.ProductionStems, "processor")
	// none of the synthesized "test_*" candidates are a substring match
	// for this test's actual file name - only sub-strategy (iv) does.
	for _, candidate := range req.TestFileCandidates {
		require.NotContains(t, candidate, "billing_processor_flows")
	}

	engine := match.NewEngine(s, nil, nil)
	results, err := engine.Run(ctx, req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "test_0001", results[0].TestID)
	require.Equal(t, model.ReasonDirectFile, results[0].Reasons[0].Type)
}

func TestRunSemanticOnlySkipsWhenNoChangedFunctions(t *testing.T) {
	s := openTestStore(t)
	provider := embedding.NewMockProvider(32)
	backend := embedding.NewRelationalBackend(s)
	engine := match.NewEngine(s, provider, backend)

	results, err := engine.RunSemanticOnly(context.Background(), diff.Request{})
	require.NoError(t, err)
	require.Empty(t, results)
}
