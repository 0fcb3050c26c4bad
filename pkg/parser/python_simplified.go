// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"regexp"
	"strings"
)

// parseSimplifiedPython extracts the same facts as the tree-sitter
// backend using line-oriented pattern matching and indentation tracking
// instead of a real grammar. It never fails: every recognized
// construct is best-effort, unrecognized lines are ignored, matching
// the "total extractor" requirement (spec §4.1) for environments where
// the tree-sitter grammar is unavailable.
func parseSimplifiedPython(path string, content []byte) *File {
	f := &File{Path: path, Content: content, Tree: nil, callSites: make(map[string][]CallSite)}

	lines := strings.Split(string(content), "\n")
	var classStack []simplifiedClassFrame
	var pendingDecorators []string

	for i, raw := range lines {
		lineNo := i + 1
		indent := indentOf(raw)
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		for len(classStack) > 0 && indent <= classStack[len(classStack)-1].indent {
			classStack = classStack[:len(classStack)-1]
		}

		switch {
		case importStmtRE.MatchString(trimmed):
			extractSimplifiedImport(f, trimmed)
		case fromImportRE.MatchString(trimmed):
			extractSimplifiedFromImport(f, trimmed)
		case classDefRE.MatchString(trimmed):
			m := classDefRE.FindStringSubmatch(trimmed)
			name := m[1]
			var bases []string
			if m[2] != "" {
				for _, b := range strings.Split(m[2], ",") {
					b = strings.TrimSpace(b)
					if b != "" {
						bases = append(bases, b)
					}
				}
			}
			f.classes = append(f.classes, Class{Name: name, Bases: bases, LineNumber: lineNo})
			classStack = append(classStack, simplifiedClassFrame{name: name, indent: indent})
		case funcDefRE.MatchString(trimmed):
			m := funcDefRE.FindStringSubmatch(trimmed)
			className := ""
			if len(classStack) > 0 {
				className = classStack[len(classStack)-1].name
				for ci := range f.classes {
					if f.classes[ci].Name == className {
						f.classes[ci].Methods = append(f.classes[ci].Methods, m[2])
					}
				}
			}
			fn := Function{
				Name:       m[2],
				IsAsync:    m[1] != "",
				Parameters: splitParams(m[3]),
				ClassName:  className,
				LineNumber: lineNo,
			}
			fn.Decorators = pendingDecorators
			pendingDecorators = nil
			f.functions = append(f.functions, fn)
			if fn.IsTest() {
				body, next := simplifiedBodyLines(lines, i, indent)
				f.callSites[callSiteKey(fn)] = extractSimplifiedCallSites(body)
				_ = next
			}
		case decoratorRE.MatchString(trimmed):
			m := decoratorRE.FindStringSubmatch(trimmed)
			pendingDecorators = append(pendingDecorators, m[1])
			if isPatchFunction(lastSegment(m[1])) {
				for _, ref := range stringLiteralRE.FindAllStringSubmatch(trimmed, -1) {
					if isValidStringRef(ref[1]) {
						f.stringRefs = append(f.stringRefs, ref[1])
					}
				}
			}
		default:
			for _, ref := range patchCallRE.FindAllStringSubmatch(trimmed, -1) {
				if isValidStringRef(ref[2]) {
					f.stringRefs = append(f.stringRefs, ref[2])
				}
			}
		}
	}

	return f
}

type simplifiedClassFrame struct {
	name   string
	indent int
}

var (
	importStmtRE    = regexp.MustCompile(`^import\s+([\w.]+)(?:\s+as\s+\w+)?\s*$`)
	fromImportRE    = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+(.+)$`)
	classDefRE      = regexp.MustCompile(`^class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	funcDefRE       = regexp.MustCompile(`^(async\s+)?def\s+(\w+)\s*\(([^)]*)\)`)
	decoratorRE     = regexp.MustCompile(`^@([\w.]+)`)
	callExprRE      = regexp.MustCompile(`([\w.]+)\s*\(`)
	stringLiteralRE = regexp.MustCompile(`["']([^"']+)["']`)
	patchCallRE     = regexp.MustCompile(`(patch|Mock|MagicMock|PropertyMock|AsyncMock)\s*\(\s*["']([^"']+)["']`)
)

func indentOf(s string) int {
	n := 0
	for _, c := range s {
		if c == ' ' {
			n++
		} else if c == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

func extractSimplifiedImport(f *File, line string) {
	m := importStmtRE.FindStringSubmatch(line)
	if m == nil {
		return
	}
	f.imports.Imports = append(f.imports.Imports, m[1])
	f.imports.AllImports = append(f.imports.AllImports, m[1])
}

func extractSimplifiedFromImport(f *File, line string) {
	m := fromImportRE.FindStringSubmatch(line)
	if m == nil {
		return
	}
	module := m[1]
	if strings.HasPrefix(module, ".") {
		return
	}
	var names []string
	for _, n := range strings.Split(strings.Trim(m[2], "()"), ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if idx := strings.Index(n, " as "); idx >= 0 {
			n = n[:idx]
		}
		names = append(names, strings.TrimSpace(n))
	}
	f.imports.FromImports = append(f.imports.FromImports, FromImport{Module: module, ImportedNames: names})
	f.imports.AllImports = append(f.imports.AllImports, module)
}

func splitParams(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(p, "*")
		p = strings.TrimPrefix(p, "*")
		if idx := strings.IndexAny(p, ":="); idx >= 0 {
			p = p[:idx]
		}
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// simplifiedBodyLines returns the lines that make up the body of the
// block starting after defLine (indented deeper than headerIndent),
// and the index immediately following the block.
func simplifiedBodyLines(lines []string, defLine, headerIndent int) ([]string, int) {
	var body []string
	i := defLine + 1
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			body = append(body, lines[i])
			continue
		}
		if indentOf(lines[i]) <= headerIndent {
			break
		}
		body = append(body, lines[i])
	}
	return body, i
}

func extractSimplifiedCallSites(body []string) []CallSite {
	var out []CallSite
	for i, line := range body {
		for _, m := range callExprRE.FindAllStringSubmatch(line, -1) {
			expr := m[1]
			if idx := strings.LastIndexByte(expr, '.'); idx >= 0 {
				name := expr[idx+1:]
				object := expr[:idx]
				if object != "" {
					if oi := strings.LastIndexByte(object, '.'); oi >= 0 {
						object = object[:oi]
					}
				}
				if isTestFrameworkFunction(name) {
					continue
				}
				out = append(out, CallSite{Function: name, Object: firstSegment(object), Kind: CallKindMethod, LineNumber: i + 1})
			} else {
				if isTestFrameworkFunction(expr) {
					continue
				}
				out = append(out, CallSite{Function: expr, Kind: CallKindDirect, LineNumber: i + 1})
			}
		}
	}
	return out
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}
