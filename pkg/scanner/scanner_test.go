// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanFindsTestsAndExcludesInfra(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "unit", "test_billing.py"), "def test_x(): pass\n")
	writeFile(t, filepath.Join(root, "integration", "test_gateway.py"), "def test_y(): pass\n")
	writeFile(t, filepath.Join(root, "e2e", "checkout_test.go"), "package e2e\n")
	writeFile(t, filepath.Join(root, "__pycache__", "test_cached.py"), "def test_z(): pass\n")
	writeFile(t, filepath.Join(root, "tests", "helpers.py"), "def helper(): pass\n")

	files, err := scanner.Scan(root)
	require.NoError(t, err)

	byBase := map[string]scanner.File{}
	for _, f := range files {
		byBase[filepath.Base(f.Path)] = f
	}

	require.Contains(t, byBase, "test_billing.py")
	require.Equal(t, model.TestTypeUnit, byBase["test_billing.py"].Category)

	require.Contains(t, byBase, "test_gateway.py")
	require.Equal(t, model.TestTypeIntegration, byBase["test_gateway.py"].Category)

	require.Contains(t, byBase, "checkout_test.go")
	require.Equal(t, model.TestTypeE2E, byBase["checkout_test.go"].Category)

	require.NotContains(t, byBase, "test_cached.py")

	// helpers.py doesn't match a test-name pattern but resides in tests/,
	// so the category-directory rule still includes it.
	require.Contains(t, byBase, "helpers.py")
}

func TestCategorizeFallsBackToParentDir(t *testing.T) {
	require.Equal(t, model.TestTypeIntegration, scanner.Categorize("/repo/integration/test_x.py"))
	require.Equal(t, model.TestTypeUnit, scanner.Categorize("/repo/misc/test_x.py"))
}
