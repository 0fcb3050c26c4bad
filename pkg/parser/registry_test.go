// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/parser"
)

func TestRegistryDispatchesByExtension(t *testing.T) {
	r := parser.NewDefaultRegistry()

	p, ok := r.DetectLanguage("/repo/app/service.py")
	require.True(t, ok)
	require.Equal(t, "python", p.LanguageName())

	p, ok = r.DetectLanguage("/repo/app/service.go")
	require.True(t, ok)
	require.Equal(t, "go", p.LanguageName())

	_, ok = r.DetectLanguage("/repo/app/service.rb")
	require.False(t, ok)
}

func TestRegistryLookupByLanguageName(t *testing.T) {
	r := parser.NewRegistry()
	first := parser.NewPythonParser(parser.ParserModeSimplified)
	second := parser.NewGoParser(parser.ParserModeSimplified)

	r.Register(first)
	r.Register(second)

	p, ok := r.Lookup("python")
	require.True(t, ok)
	require.Equal(t, "python", p.LanguageName())

	p, ok = r.Lookup("go")
	require.True(t, ok)
	require.Equal(t, "go", p.LanguageName())
}
