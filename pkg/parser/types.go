// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

// File is the parsed representation of one test source file: an opaque
// handle owned by the extractor plus the raw content needed for
// re-slicing identifiers, matching spec §9 "AST objects as opaque
// handles" - extract_* are value-producing pure functions on a parsed
// tree, returning plain data, never exposing the tree itself.
type File struct {
	Path    string
	Content []byte
	Tree    any // *sitter.Tree for tree-sitter-backed parsers, nil for the simplified fallback

	// Precomputed facts. A parser populates these once during ParseFile;
	// Extract* accessors merely return them, so a test's call sites are
	// never re-derived by walking the tree twice.
	imports    ImportSet
	classes    []Class
	functions  []Function
	callSites  map[string][]CallSite // keyed by callSiteKey(fn)
	stringRefs []string
	testBodies []pyTestBody
}

// ImportSet is the result of ExtractImports (spec §4.2): plain imports,
// from-imports retaining (module, [names]), and the flattened union used
// downstream by stage 4.
type ImportSet struct {
	Imports     []string
	FromImports []FromImport
	AllImports  []string
}

// FromImport is one `from <module> import <names>` statement. Relative
// imports (module absent) are skipped entirely and never appear here.
type FromImport struct {
	Module        string
	ImportedNames []string
}

// Class is one class/struct-like declaration.
type Class struct {
	Name       string
	Bases      []string
	Methods    []string
	LineNumber int
}

// Function is one function or method declaration.
type Function struct {
	Name       string
	IsAsync    bool
	Parameters []string
	Decorators []string
	ClassName  string // empty for free functions
	LineNumber int
}

// IsTest reports whether this function is a test function: its name
// begins with "test_" (spec §4.2).
func (f Function) IsTest() bool {
	return len(f.Name) >= 5 && f.Name[:5] == "test_"
}

// CallKind distinguishes a bare-name call from an attribute/method call.
type CallKind string

const (
	CallKindDirect CallKind = "direct"
	CallKindMethod CallKind = "method"
)

// CallSite is one call found inside a test method's body (spec §4.2).
// Object is the receiver path's leftmost name, set only for method calls.
type CallSite struct {
	Function   string
	Object     string
	Kind       CallKind
	LineNumber int
}
