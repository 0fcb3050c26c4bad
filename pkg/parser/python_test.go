// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/parser"
)

const samplePython = `import os
from myapp.billing import InvoiceService
from . import sibling


class TestInvoice:
    def test_charges_customer(self):
        svc = InvoiceService()
        svc.charge(100)
        assert svc.total == 100

    @patch("myapp.billing.gateway.Client")
    def test_uses_mocked_gateway(self, mock_client):
        InvoiceService().charge(50)
`

func TestSimplifiedPythonParserExtractsFacts(t *testing.T) {
	p := parser.NewPythonParser(parser.ParserModeSimplified)
	require.True(t, p.CanParse("foo_test.py"))
	require.False(t, p.CanParse("foo_test.go"))

	f, err := p.ParseFile(context.Background(), "foo_test.py", []byte(samplePython))
	require.NoError(t, err)
	require.NotNil(t, f)

	imports := p.ExtractImports(f)
	require.Contains(t, imports.AllImports, "os")
	require.Contains(t, imports.AllImports, "myapp.billing")
	for _, fi := range imports.FromImports {
		require.NotEqual(t, "", fi.Module)
	}

	classes := p.ExtractClasses(f)
	require.Len(t, classes, 1)
	require.Equal(t, "TestInvoice", classes[0].Name)

	tests := p.ExtractTestMethods(f)
	require.Len(t, tests, 2)
	require.Equal(t, "TestInvoice", tests[0].ClassName)

	calls := p.ExtractFunctionCalls(f, tests[0])
	var sawCharge bool
	for _, c := range calls {
		if c.Function == "charge" {
			sawCharge = true
		}
		require.NotEqual(t, "assert", c.Function)
	}
	require.True(t, sawCharge)

	refs := p.ExtractStringReferences(f)
	require.Contains(t, refs, "myapp.billing.gateway.Client")
}

func TestPythonResolveModuleName(t *testing.T) {
	p := parser.NewPythonParser(parser.ParserModeSimplified)
	name := p.ResolveModuleName("/repo/myapp/billing/__init__.py", "/repo")
	require.Equal(t, "myapp.billing", name)

	name = p.ResolveModuleName("/repo/myapp/billing/invoice.py", "/repo")
	require.Equal(t, "myapp.billing.invoice", name)
}
