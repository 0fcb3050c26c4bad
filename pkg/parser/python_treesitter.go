// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"
)

// parseGoTreeSitter parses content with the tree-sitter Python grammar
// and extracts every fact this system needs in a single walk, mirroring
// the teacher's parseGoAST two-pass shape (walk for declarations, then
// walk each test function's body for call sites) in
// pkg/ingestion/parser_go.go, retargeted at Python's grammar.
func parseGoTreeSitter(ctx context.Context, path string, content []byte) (*File, error) {
	p := sitter.NewParser()
	p.SetLanguage(tspython.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	f := &File{Path: path, Content: content, Tree: tree, callSites: make(map[string][]CallSite)}
	w := &pyWalker{content: content, file: f}
	w.walkTopLevel(root, "")
	w.resolveCallSites()
	f.stringRefs = extractStringReferencesTS(root, content)
	f.testBodies = nil
	return f, nil
}

type pyWalker struct {
	content []byte
	file    *File
}

// walkTopLevel visits module-level and class-body statements, collecting
// imports, classes and functions. className is non-empty while walking a
// class body, so nested function_definitions are attributed to it.
func (w *pyWalker) walkTopLevel(n *sitter.Node, className string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		w.visitStatement(child, className)
	}
}

func (w *pyWalker) visitStatement(n *sitter.Node, className string) {
	switch n.Type() {
	case "import_statement":
		w.extractImportStatement(n)
	case "import_from_statement":
		w.extractImportFromStatement(n)
	case "class_definition":
		w.extractClass(n)
	case "function_definition":
		w.extractFunction(n, "", className)
	case "decorated_definition":
		w.extractDecorated(n, className)
	}
}

func (w *pyWalker) extractImportStatement(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			name := child.Content(w.content)
			w.file.imports.Imports = append(w.file.imports.Imports, name)
			w.file.imports.AllImports = append(w.file.imports.AllImports, name)
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			if nameNode != nil {
				name := nameNode.Content(w.content)
				w.file.imports.Imports = append(w.file.imports.Imports, name)
				w.file.imports.AllImports = append(w.file.imports.AllImports, name)
			}
		}
	}
}

func (w *pyWalker) extractImportFromStatement(n *sitter.Node) {
	var module string
	var names []string
	sawModule := false

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "relative_import":
			// A relative import has no resolvable module name; skip the
			// whole statement per spec §4.2.
			return
		case "dotted_name":
			if !sawModule {
				module = child.Content(w.content)
				sawModule = true
				continue
			}
			names = append(names, child.Content(w.content))
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			if nameNode != nil {
				names = append(names, nameNode.Content(w.content))
			}
		case "wildcard_import":
			names = append(names, "*")
		}
	}

	if !sawModule {
		return
	}

	w.file.imports.FromImports = append(w.file.imports.FromImports, FromImport{Module: module, ImportedNames: names})
	w.file.imports.AllImports = append(w.file.imports.AllImports, module)
}

func (w *pyWalker) extractClass(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.content)

	var bases []string
	if super := firstChildOfType(n, "argument_list"); super != nil {
		for i := 0; i < int(super.NamedChildCount()); i++ {
			bases = append(bases, reconstructDottedExpr(super.NamedChild(i), w.content))
		}
	}

	var methods []string
	body := n.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			stmt := body.NamedChild(i)
			def := stmt
			if stmt.Type() == "decorated_definition" {
				def = stmt.ChildByFieldName("definition")
			}
			if def != nil && def.Type() == "function_definition" {
				if mn := def.ChildByFieldName("name"); mn != nil {
					methods = append(methods, mn.Content(w.content))
				}
			}
		}
	}

	w.file.classes = append(w.file.classes, Class{
		Name:       name,
		Bases:      bases,
		Methods:    methods,
		LineNumber: int(n.StartPoint().Row) + 1,
	})

	// Methods are attributed functions in their own right, so call-site
	// extraction works the same whether a test is a method or a free
	// function.
	if body != nil {
		w.walkTopLevel(body, name)
	}
}

func (w *pyWalker) extractDecorated(n *sitter.Node, className string) {
	var decorators []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" {
			// First named child of a decorator is the expression after '@'.
			if expr := child.NamedChild(0); expr != nil {
				decorators = append(decorators, decoratorName(expr, w.content))
			}
		}
	}

	def := n.ChildByFieldName("definition")
	if def == nil {
		return
	}
	switch def.Type() {
	case "function_definition":
		w.extractFunction(def, strings.Join(decorators, "\x00"), className)
	case "class_definition":
		w.extractClass(def)
	}
}

// decoratorName reconstructs a decorator's qualified name. A bare call
// decorator (`@pytest.mark.parametrize(...)`) reconstructs from its
// function expression, matching python_parser.py's handling of
// Call-typed decorators whose .func is an Attribute.
func decoratorName(n *sitter.Node, content []byte) string {
	if n.Type() == "call" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			return reconstructDottedExpr(fn, content)
		}
		return ""
	}
	return reconstructDottedExpr(n, content)
}

// reconstructDottedExpr walks an attribute chain (a.b.c) collecting
// segments left-to-right, the Go analogue of python_parser.py's
// _get_attr_name helper.
func reconstructDottedExpr(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return n.Content(content)
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return n.Content(content)
		}
		return reconstructDottedExpr(obj, content) + "." + attr.Content(content)
	default:
		return n.Content(content)
	}
}

func (w *pyWalker) extractFunction(n *sitter.Node, decoratorsJoined, className string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	isAsync := false
	if first := n.Child(0); first != nil && first.Content(w.content) == "async" {
		isAsync = true
	}

	var params []string
	if pn := n.ChildByFieldName("parameters"); pn != nil {
		for i := 0; i < int(pn.NamedChildCount()); i++ {
			p := pn.NamedChild(i)
			switch p.Type() {
			case "identifier":
				params = append(params, p.Content(w.content))
			case "typed_parameter", "default_parameter", "typed_default_parameter":
				if id := firstChildOfType(p, "identifier"); id != nil {
					params = append(params, id.Content(w.content))
				}
			}
		}
	}

	var decorators []string
	if decoratorsJoined != "" {
		decorators = strings.Split(decoratorsJoined, "\x00")
	}

	fn := Function{
		Name:       nameNode.Content(w.content),
		IsAsync:    isAsync,
		Parameters: params,
		Decorators: decorators,
		ClassName:  className,
		LineNumber: int(n.StartPoint().Row) + 1,
	}
	w.file.functions = append(w.file.functions, fn)

	if fn.IsTest() {
		if body := n.ChildByFieldName("body"); body != nil {
			w.file.testBodies = append(w.file.testBodies, pyTestBody{fn: fn, body: body})
		}
	}
}

// pyTestBody pairs a test function with its body node, deferred until
// resolveCallSites so every top-level declaration is known first
// (matters for string-reference extraction, which also looks at
// decorator calls on functions discovered earlier in the same pass).
type pyTestBody struct {
	fn   Function
	body *sitter.Node
}

func (w *pyWalker) resolveCallSites() {
	for _, tb := range w.file.testBodies {
		key := callSiteKey(tb.fn)
		w.file.callSites[key] = walkCallSites(tb.body, w.content)
	}
}

func walkCallSites(n *sitter.Node, content []byte) []CallSite {
	var out []CallSite
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "call" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				out = append(out, callSiteFromExpr(fn, content, int(node.StartPoint().Row)+1))
			}
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(n)

	filtered := out[:0]
	for _, cs := range out {
		if isTestFrameworkFunction(cs.Function) {
			continue
		}
		filtered = append(filtered, cs)
	}
	return filtered
}

func callSiteFromExpr(fn *sitter.Node, content []byte, line int) CallSite {
	switch fn.Type() {
	case "identifier":
		return CallSite{Function: fn.Content(content), Kind: CallKindDirect, LineNumber: line}
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		obj := fn.ChildByFieldName("object")
		name := ""
		if attr != nil {
			name = attr.Content(content)
		}
		object := ""
		if obj != nil {
			object = leftmostName(obj, content)
		}
		return CallSite{Function: name, Object: object, Kind: CallKindMethod, LineNumber: line}
	default:
		return CallSite{Function: fn.Content(content), Kind: CallKindDirect, LineNumber: line}
	}
}

// leftmostName walks down an attribute chain's object side to its root
// identifier, e.g. `a.b.c` -> "a".
func leftmostName(n *sitter.Node, content []byte) string {
	for n.Type() == "attribute" {
		obj := n.ChildByFieldName("object")
		if obj == nil {
			break
		}
		n = obj
	}
	return n.Content(content)
}

func callSiteKey(fn Function) string {
	return fn.ClassName + "\x00" + fn.Name + "\x00" + strconv.Itoa(fn.LineNumber)
}

func firstChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

// extractStringReferencesTS walks the whole tree (not just test bodies)
// looking for calls to a patch-family function, collecting qualifying
// string-literal arguments, including decorated (`@patch('…')`) forms.
func extractStringReferencesTS(root *sitter.Node, content []byte) []string {
	seen := make(map[string]bool)
	var out []string

	addFromArgs := func(args *sitter.Node) {
		if args == nil {
			return
		}
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() != "string" {
				continue
			}
			s := stringLiteralValue(arg, content)
			if isValidStringRef(s) && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	var visit func(*sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "call":
			fn := n.ChildByFieldName("function")
			if fn != nil && isPatchFunction(lastSegment(reconstructDottedExpr(fn, content))) {
				addFromArgs(n.ChildByFieldName("arguments"))
			}
		case "decorator":
			if expr := n.NamedChild(0); expr != nil && expr.Type() == "call" {
				fn := expr.ChildByFieldName("function")
				if fn != nil && isPatchFunction(lastSegment(reconstructDottedExpr(fn, content))) {
					addFromArgs(expr.ChildByFieldName("arguments"))
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(root)
	return out
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

// stringLiteralValue strips the surrounding quotes from a tree-sitter
// "string" node's raw content.
func stringLiteralValue(n *sitter.Node, content []byte) string {
	raw := n.Content(content)
	raw = strings.TrimPrefix(raw, "f")
	raw = strings.TrimPrefix(raw, "r")
	if len(raw) >= 6 && (strings.HasPrefix(raw, `"""`) || strings.HasPrefix(raw, "'''")) {
		return raw[3 : len(raw)-3]
	}
	if len(raw) >= 2 {
		return raw[1 : len(raw)-1]
	}
	return raw
}
