// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package dedup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/dedup"
	"github.com/kraklabs/tia/pkg/parser"
	"github.com/kraklabs/tia/pkg/pipeline"
)

const sampleTest = `import pytest


class TestInvoice:
    @pytest.mark.unit
    def test_charges_customer(self):
        pass
`

func TestVerifyReportsMissingFromIndexThenReindexClearsIt(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	testsDir := filepath.Join(root, "tests", "unit")
	require.NoError(t, os.MkdirAll(testsDir, 0o755))
	path := filepath.Join(testsDir, "test_invoice.py")
	require.NoError(t, os.WriteFile(path, []byte(sampleTest), 0o644))

	st := openTestStore(t)
	reg := parser.NewDefaultRegistry()
	p := pipeline.New(st, reg, root, root, t.TempDir(), nil)

	report, err := dedup.Verify(ctx, st, root)
	require.NoError(t, err)
	require.Empty(t, report.MissingFromDisk)
	require.Len(t, report.MissingFromIndex, 1)

	_, err = p.RunFiles(ctx, report.MissingFromIndex)
	require.NoError(t, err)

	report, err = dedup.Verify(ctx, st, root)
	require.NoError(t, err)
	require.Empty(t, report.MissingFromIndex)
	require.Empty(t, report.MissingFromDisk)
}

func TestVerifyReportsMissingFromDiskAfterFileRemoval(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	testsDir := filepath.Join(root, "tests", "unit")
	require.NoError(t, os.MkdirAll(testsDir, 0o755))
	path := filepath.Join(testsDir, "test_invoice.py")
	require.NoError(t, os.WriteFile(path, []byte(sampleTest), 0o644))

	st := openTestStore(t)
	reg := parser.NewDefaultRegistry()
	p := pipeline.New(st, reg, root, root, t.TempDir(), nil)
	_, err := p.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	report, err := dedup.Verify(ctx, st, root)
	require.NoError(t, err)
	require.Len(t, report.MissingFromDisk, 1)
	require.Empty(t, report.MissingFromIndex)
}
