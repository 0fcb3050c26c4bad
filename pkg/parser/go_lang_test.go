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

const sampleGo = `package billing

import (
	"fmt"
	"myapp/gateway"
)

func TestChargeCustomer(t *testing.T) {
	svc := gateway.NewClient()
	svc.Charge(100)
	fmt.Println("done")
}

func helper() {}
`

func TestSimplifiedGoParserExtractsFacts(t *testing.T) {
	p := parser.NewGoParser(parser.ParserModeSimplified)
	require.True(t, p.CanParse("billing_test.go"))

	f, err := p.ParseFile(context.Background(), "billing_test.go", []byte(sampleGo))
	require.NoError(t, err)
	require.NotNil(t, f)

	funcs := p.ExtractFunctions(f)
	require.Len(t, funcs, 2)

	tests := p.ExtractTestMethods(f)
	require.Len(t, tests, 1)
	require.Equal(t, "TestChargeCustomer", tests[0].Name)

	require.Empty(t, p.ExtractStringReferences(f))
}

func TestGoResolveModuleName(t *testing.T) {
	p := parser.NewGoParser(parser.ParserModeSimplified)
	name := p.ResolveModuleName("/repo/internal/billing/service.go", "/repo")
	require.Equal(t, "internal/billing", name)
}
