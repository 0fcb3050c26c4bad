// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsgolang "github.com/smacker/go-tree-sitter/golang"
)

// goParser implements LanguageParser for Go sources, proving the
// registry dispatches on more than one language. It is narrower than
// the Python parser: Go has no decorators or string-literal mock
// patching convention, so ExtractStringReferences is always empty and
// IsTest follows Go's own `func TestXxx(*testing.T)` convention rather
// than a "test_" prefix rule.
type goParser struct {
	mode ParserMode
}

// NewGoParser returns the Go LanguageParser for the given mode.
func NewGoParser(mode ParserMode) LanguageParser {
	if mode == "" {
		mode = DefaultParserMode
	}
	return &goParser{mode: mode}
}

func (g *goParser) LanguageName() string { return "go" }

func (g *goParser) FileExtensions() []string { return []string{".go"} }

func (g *goParser) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".go")
}

func (g *goParser) ParseFile(ctx context.Context, path string, content []byte) (*File, error) {
	if g.mode == ParserModeSimplified {
		return parseSimplifiedGo(path, content), nil
	}

	f, err := parseGoTreeSitterGo(ctx, path, content)
	if err == nil {
		return f, nil
	}
	if g.mode == ParserModeTreeSitter {
		return nil, nil
	}
	return parseSimplifiedGo(path, content), nil
}

func (g *goParser) ExtractImports(f *File) ImportSet { return f.imports }

func (g *goParser) ExtractClasses(f *File) []Class { return f.classes }

func (g *goParser) ExtractFunctions(f *File) []Function { return f.functions }

func (g *goParser) ExtractTestMethods(f *File) []Function {
	var out []Function
	for _, fn := range f.functions {
		if isGoTestFunction(fn) {
			out = append(out, fn)
		}
	}
	return out
}

func (g *goParser) ExtractFunctionCalls(f *File, fn Function) []CallSite {
	return f.callSites[callSiteKey(fn)]
}

func (g *goParser) ExtractStringReferences(f *File) []string { return nil }

// ResolveModuleName derives a Go import-path-shaped name from a file's
// directory relative to projectRoot, since Go packages, unlike Python
// modules, are directories rather than one name per file.
func (g *goParser) ResolveModuleName(path, projectRoot string) string {
	dir := filepath.Dir(path)
	rel := dir
	if projectRoot != "" {
		if r, err := filepath.Rel(projectRoot, dir); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return filepath.Base(projectRoot)
	}
	return rel
}

// isGoTestFunction reports whether fn looks like `func TestXxx(t
// *testing.T)`: a package-level function (no receiver) named Test
// followed by an uppercase-leading word.
func isGoTestFunction(fn Function) bool {
	if fn.ClassName != "" {
		return false
	}
	if !strings.HasPrefix(fn.Name, "Test") || len(fn.Name) == len("Test") {
		return false
	}
	r := fn.Name[len("Test")]
	return r >= 'A' && r <= 'Z'
}

func parseGoTreeSitterGo(ctx context.Context, path string, content []byte) (*File, error) {
	p := sitter.NewParser()
	p.SetLanguage(tsgolang.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	f := &File{Path: path, Content: content, Tree: tree, callSites: make(map[string][]CallSite)}
	testBodies := map[string]*sitter.Node{}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "import_declaration":
			collectGoImports(n, content, f)
		case "type_declaration":
			collectGoTypes(n, content, f)
		case "function_declaration":
			fn := goFunctionFromNode(n, content, "")
			f.functions = append(f.functions, fn)
			if isGoTestFunction(fn) {
				if body := n.ChildByFieldName("body"); body != nil {
					testBodies[callSiteKey(fn)] = body
				}
			}
		case "method_declaration":
			recv := n.ChildByFieldName("receiver")
			className := ""
			if recv != nil {
				className = goReceiverTypeName(recv, content)
			}
			fn := goFunctionFromNode(n, content, className)
			f.functions = append(f.functions, fn)
			for ci := range f.classes {
				if f.classes[ci].Name == className {
					f.classes[ci].Methods = append(f.classes[ci].Methods, fn.Name)
				}
			}
		}
	}

	for key, body := range testBodies {
		f.callSites[key] = walkGoCallSites(body, content)
	}

	return f, nil
}

func collectGoImports(n *sitter.Node, content []byte, f *File) {
	var specs []*sitter.Node
	if n.NamedChild(0) != nil && n.NamedChild(0).Type() == "import_spec_list" {
		list := n.NamedChild(0)
		for i := 0; i < int(list.NamedChildCount()); i++ {
			specs = append(specs, list.NamedChild(i))
		}
	} else if n.NamedChild(0) != nil {
		specs = append(specs, n.NamedChild(0))
	}

	for _, spec := range specs {
		if spec.Type() != "import_spec" {
			continue
		}
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		imp := strings.Trim(pathNode.Content(content), `"`)
		f.imports.Imports = append(f.imports.Imports, imp)
		f.imports.AllImports = append(f.imports.AllImports, imp)
	}
}

func collectGoTypes(n *sitter.Node, content []byte, f *File) {
	var specs []*sitter.Node
	if n.NamedChild(0) != nil && n.NamedChild(0).Type() == "type_spec_list" {
		list := n.NamedChild(0)
		for i := 0; i < int(list.NamedChildCount()); i++ {
			specs = append(specs, list.NamedChild(i))
		}
	} else if n.NamedChild(0) != nil {
		specs = append(specs, n.NamedChild(0))
	}

	for _, spec := range specs {
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		if structNode := spec.ChildByFieldName("type"); structNode == nil || structNode.Type() == "struct_type" {
			f.classes = append(f.classes, Class{
				Name:       nameNode.Content(content),
				LineNumber: int(spec.StartPoint().Row) + 1,
			})
		}
	}
}

func goReceiverTypeName(recv *sitter.Node, content []byte) string {
	if recv.NamedChildCount() == 0 {
		return ""
	}
	param := recv.NamedChild(0)
	typeNode := param.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	name := typeNode.Content(content)
	return strings.TrimPrefix(name, "*")
}

func goFunctionFromNode(n *sitter.Node, content []byte, className string) Function {
	nameNode := n.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = nameNode.Content(content)
	}

	var params []string
	if pn := n.ChildByFieldName("parameters"); pn != nil {
		for i := 0; i < int(pn.NamedChildCount()); i++ {
			p := pn.NamedChild(i)
			if id := p.ChildByFieldName("name"); id != nil {
				params = append(params, id.Content(content))
			}
		}
	}

	return Function{
		Name:       name,
		Parameters: params,
		ClassName:  className,
		LineNumber: int(n.StartPoint().Row) + 1,
	}
}

func walkGoCallSites(n *sitter.Node, content []byte) []CallSite {
	var out []CallSite
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "call_expression" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				out = append(out, goCallSiteFromExpr(fn, content, int(node.StartPoint().Row)+1))
			}
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(n)
	return out
}

func goCallSiteFromExpr(fn *sitter.Node, content []byte, line int) CallSite {
	switch fn.Type() {
	case "identifier":
		return CallSite{Function: fn.Content(content), Kind: CallKindDirect, LineNumber: line}
	case "selector_expression":
		operand := fn.ChildByFieldName("operand")
		field := fn.ChildByFieldName("field")
		name := ""
		if field != nil {
			name = field.Content(content)
		}
		object := ""
		if operand != nil {
			object = operand.Content(content)
		}
		return CallSite{Function: name, Object: object, Kind: CallKindMethod, LineNumber: line}
	default:
		return CallSite{Function: fn.Content(content), Kind: CallKindDirect, LineNumber: line}
	}
}

// parseSimplifiedGo is a minimal regex-based fallback, sufficient to
// register function names and the package clause's import block
// without a working tree-sitter grammar.
func parseSimplifiedGo(path string, content []byte) *File {
	f := &File{Path: path, Content: content, Tree: nil, callSites: make(map[string][]CallSite)}
	lines := strings.Split(string(content), "\n")

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`):
			imp := strings.Trim(trimmed, `"`)
			if imp != "" {
				f.imports.Imports = append(f.imports.Imports, imp)
				f.imports.AllImports = append(f.imports.AllImports, imp)
			}
		case strings.HasPrefix(trimmed, "func "):
			name, className := parseSimplifiedGoFuncHeader(trimmed)
			if name == "" {
				continue
			}
			fn := Function{Name: name, ClassName: className, LineNumber: i + 1}
			f.functions = append(f.functions, fn)
		}
	}
	return f
}

func parseSimplifiedGoFuncHeader(line string) (name, className string) {
	rest := strings.TrimPrefix(line, "func ")
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return "", ""
		}
		recv := rest[1:end]
		fields := strings.Fields(recv)
		if len(fields) > 0 {
			className = strings.TrimPrefix(fields[len(fields)-1], "*")
		}
		rest = strings.TrimSpace(rest[end+1:])
	}
	paren := strings.IndexByte(rest, '(')
	if paren < 0 {
		return "", ""
	}
	name = strings.TrimSpace(rest[:paren])
	return name, className
}
