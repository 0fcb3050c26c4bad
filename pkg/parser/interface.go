// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package parser implements the language parser registry (C1) and the
// AST fact extractor (C2): a fixed capability set each language parser
// implements, dispatched by file extension.
package parser

import "context"

// LanguageParser is the fixed capability set every registered parser
// implements (spec §4.1). Every extractor is total: unrecognized nodes
// are ignored silently and no extractor raises on malformed input.
type LanguageParser interface {
	// LanguageName is the lowercase language identifier, e.g. "python".
	LanguageName() string

	// FileExtensions lists the lowercase extensions this parser claims,
	// including the leading dot, e.g. []string{".py"}.
	FileExtensions() []string

	// CanParse reports whether path has one of FileExtensions' suffixes.
	CanParse(path string) bool

	// ParseFile parses content, already read from path by the caller,
	// into a File. It does no file I/O and does not retry; the pipeline
	// reads each file once with os.ReadFile and a failed read skips the
	// file. On permanent parse failure it returns (nil, nil) - absent
	// without raising, per spec §4.1.
	ParseFile(ctx context.Context, path string, content []byte) (*File, error)

	ExtractImports(f *File) ImportSet
	ExtractClasses(f *File) []Class
	ExtractFunctions(f *File) []Function
	ExtractTestMethods(f *File) []Function
	ExtractFunctionCalls(f *File, fn Function) []CallSite
	ExtractStringReferences(f *File) []string

	// ResolveModuleName derives the module name for path relative to
	// projectRoot. When path is not under projectRoot, the name is
	// derived from path as given rather than from a relative path.
	ResolveModuleName(path, projectRoot string) string
}
