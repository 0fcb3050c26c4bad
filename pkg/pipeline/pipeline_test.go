// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/parser"
	"github.com/kraklabs/tia/pkg/pipeline"
	"github.com/kraklabs/tia/pkg/store"
)

const sampleTestFile = `import pytest
from billing.invoice import InvoiceService
from unittest.mock import patch


class TestInvoice:
    @pytest.mark.unit
    def test_charges_customer(self):
        """Charges a customer the invoice total."""
        service = InvoiceService()
        service.charge_customer(100)

    @patch("billing.invoice.InvoiceService.refund")
    def test_refund(self, mock_refund):
        pass
`

func writeSampleRepo(t *testing.T) (root string) {
	t.Helper()
	root = t.TempDir()
	testsDir := filepath.Join(root, "tests", "unit")
	require.NoError(t, os.MkdirAll(testsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(testsDir, "test_invoice.py"), []byte(sampleTestFile), 0o644))
	return root
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.DriverPure, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.EnsureSchema(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunBuildsRegistryAndDependencies(t *testing.T) {
	root := writeSampleRepo(t)
	st := openTestStore(t)
	reg := parser.NewDefaultRegistry()

	p := pipeline.New(st, reg, root, root, t.TempDir(), nil)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, result.FilesScanned)
	require.Equal(t, 0, result.ParseErrors)
	require.Equal(t, 2, result.TestsRegistered)
	require.Greater(t, result.DependencyRows, 0)
	require.Greater(t, result.FunctionMapRows, 0)
	require.Greater(t, result.ReverseIndexRows, 0)

	tests, err := st.AllTests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 2)
	for _, tst := range tests {
		require.Equal(t, "TestInvoice", tst.ClassName)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := writeSampleRepo(t)
	st := openTestStore(t)
	reg := parser.NewDefaultRegistry()
	artifactDir := t.TempDir()

	p := pipeline.New(st, reg, root, root, artifactDir, nil)
	first, err := p.Run(context.Background())
	require.NoError(t, err)

	second, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, first.TestsRegistered, second.TestsRegistered)

	tests, err := st.AllTests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 2) // re-running never duplicates rows
}

func TestRunBuildsTestStructure(t *testing.T) {
	root := writeSampleRepo(t)
	st := openTestStore(t)
	reg := parser.NewDefaultRegistry()

	p := pipeline.New(st, reg, root, root, t.TempDir(), nil)
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.StructureRows)

	rows, err := st.ListTestStructure(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].FileCount)
	require.Greater(t, rows[0].TotalLines, 0)
	require.Equal(t, filepath.Join(root, "tests", "unit"), rows[0].DirectoryPath)
}

func TestRunFilesIndexesOnlyGivenPaths(t *testing.T) {
	root := writeSampleRepo(t)
	extraDir := filepath.Join(root, "tests", "unit")
	extraPath := filepath.Join(extraDir, "test_refund_policy.py")
	require.NoError(t, os.WriteFile(extraPath, []byte(`import pytest


class TestRefundPolicy:
    @pytest.mark.unit
    def test_rejects_negative_amount(self):
        pass
`), 0o644))

	st := openTestStore(t)
	reg := parser.NewDefaultRegistry()
	p := pipeline.New(st, reg, root, root, t.TempDir(), nil)

	originalPath := filepath.Join(extraDir, "test_invoice.py")
	result, err := p.RunFiles(context.Background(), []string{originalPath})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesScanned)
	require.Equal(t, 2, result.TestsRegistered)

	tests, err := st.AllTests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 2) // test_refund_policy.py was never passed in, so it isn't indexed yet

	result, err = p.RunFiles(context.Background(), []string{extraPath})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesScanned)
	require.Equal(t, 1, result.TestsRegistered)

	tests, err = st.AllTests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 3) // both files now indexed, nothing duplicated
}
