// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package embedding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/embedding"
	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

func TestBuildTextOmitsEmptyFields(t *testing.T) {
	test := model.Test{MethodName: "test_charges_customer", ClassName: "TestInvoice", TestType: model.TestTypeUnit}
	meta := model.TestMetadata{}
	text := embedding.BuildText(test, meta, nil, "billing.invoice")

	require.Contains(t, text, "Test: charges customer")
	require.Contains(t, text, "Component: invoice")
	require.Contains(t, text, "Module under test: billing.invoice")
	require.NotContains(t, text, "Purpose:")
	require.NotContains(t, text, "Async test")
}

func TestMockProviderIsDeterministic(t *testing.T) {
	p := embedding.NewMockProvider(16)
	v1, err := p.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	v2, err := p.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Len(t, v1[0], 16)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.DriverPure, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.EnsureSchema(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRelationalBackendStoreAndSearch(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	test := model.Test{TestID: "test_0001", FilePath: "/repo/test_x.py", MethodName: "test_x", TestType: model.TestTypeUnit}
	require.NoError(t, st.UpsertTest(ctx, test))

	backend := embedding.NewRelationalBackend(st)
	provider := embedding.NewMockProvider(8)
	vectors, err := provider.Embed(ctx, []string{"Test: x"})
	require.NoError(t, err)

	stored, failed, err := backend.Store([]model.Test{test}, vectors)
	require.NoError(t, err)
	require.Equal(t, 1, stored)
	require.Equal(t, 0, failed)

	results, err := backend.SearchSimilar(vectors[0], 0.0, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "test_0001", results[0].TestID)
	require.InDelta(t, 1.0, results[0].Similarity, 0.0001)
}
