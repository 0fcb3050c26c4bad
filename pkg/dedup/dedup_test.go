// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package dedup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/dedup"
	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.DriverPure, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.EnsureSchema(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func TestNormalizeStripsTestRepositoryPrefix(t *testing.T) {
	require.Equal(t, "unit/test_invoice.py", dedup.Normalize("/home/ci/checkout/test_repository/unit/test_invoice.py"))
}

func TestNormalizeFallsBackToCategoryParent(t *testing.T) {
	require.Equal(t, "unit/test_invoice.py", dedup.Normalize("/srv/app/tests/unit/test_invoice.py"))
}

func TestNormalizeFallsBackToBareFilename(t *testing.T) {
	require.Equal(t, "test_invoice.py", dedup.Normalize("/srv/app/scripts/test_invoice.py"))
}

func TestFindGroupsDuplicatesByNaturalKey(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	// Two rows for the same logical test, reached via different path
	// prefixes - the kind of duplication a re-clone under a different
	// checkout root produces.
	require.NoError(t, st.UpsertTest(ctx, model.Test{
		TestID: "test_0001", FilePath: "/ci/a/test_repository/unit/test_invoice.py",
		ClassName: "TestInvoice", MethodName: "test_charges_customer", TestType: model.TestTypeUnit,
	}))
	require.NoError(t, st.UpsertTest(ctx, model.Test{
		TestID: "test_0002", FilePath: "/ci/b/test_repository/unit/test_invoice.py",
		ClassName: "TestInvoice", MethodName: "test_charges_customer", TestType: model.TestTypeUnit,
	}))
	require.NoError(t, st.UpsertTest(ctx, model.Test{
		TestID: "test_0003", FilePath: "/ci/a/test_repository/unit/test_invoice.py",
		ClassName: "TestInvoice", MethodName: "test_refund", TestType: model.TestTypeUnit,
	}))

	dups, err := dedup.Find(ctx, st)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	require.Equal(t, "test_0001", dups[0].Keep)
	require.Equal(t, []string{"test_0002"}, dups[0].Remove)

	removed, err := dedup.Remove(ctx, st, dups)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	tests, err := st.AllTests(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	for _, tst := range tests {
		require.NotEqual(t, "test_0002", tst.TestID)
	}
}
