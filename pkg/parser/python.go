// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"path/filepath"
	"strings"
)

// pythonParser implements LanguageParser for Python sources. It prefers
// the tree-sitter grammar and falls back to a line-oriented scanner when
// mode requests it or when tree-sitter parsing fails, mirroring the
// teacher's parser_interface.go ParserMode dispatch.
type pythonParser struct {
	mode ParserMode
}

// NewPythonParser returns the Python LanguageParser for the given mode.
func NewPythonParser(mode ParserMode) LanguageParser {
	if mode == "" {
		mode = DefaultParserMode
	}
	return &pythonParser{mode: mode}
}

func (p *pythonParser) LanguageName() string { return "python" }

func (p *pythonParser) FileExtensions() []string { return []string{".py"} }

func (p *pythonParser) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}

func (p *pythonParser) ParseFile(ctx context.Context, path string, content []byte) (*File, error) {
	if p.mode == ParserModeSimplified {
		return parseSimplifiedPython(path, content), nil
	}

	f, err := parseGoTreeSitter(ctx, path, content)
	if err == nil {
		return f, nil
	}
	if p.mode == ParserModeTreeSitter {
		// A permanent parse failure is absent, not fatal (spec §4.1).
		return nil, nil
	}
	// ParserModeAuto degrades to the simplified scanner on any
	// tree-sitter failure rather than dropping the file.
	return parseSimplifiedPython(path, content), nil
}

func (p *pythonParser) ExtractImports(f *File) ImportSet { return f.imports }

func (p *pythonParser) ExtractClasses(f *File) []Class { return f.classes }

func (p *pythonParser) ExtractFunctions(f *File) []Function { return f.functions }

func (p *pythonParser) ExtractTestMethods(f *File) []Function {
	var out []Function
	for _, fn := range f.functions {
		if fn.IsTest() {
			out = append(out, fn)
		}
	}
	return out
}

func (p *pythonParser) ExtractFunctionCalls(f *File, fn Function) []CallSite {
	return f.callSites[callSiteKey(fn)]
}

func (p *pythonParser) ExtractStringReferences(f *File) []string { return f.stringRefs }

// ResolveModuleName converts a path under projectRoot into a dotted
// module name (foo/bar/baz.py -> foo.bar.baz), dropping a trailing
// __init__, mirroring python_parser.py's module-name derivation.
func (p *pythonParser) ResolveModuleName(path, projectRoot string) string {
	rel := path
	if projectRoot != "" {
		if r, err := filepath.Rel(projectRoot, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}
