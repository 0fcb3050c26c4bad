// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/parser"
)

// FunctionMappingRecord is one row of stage 5's artifact.
type FunctionMappingRecord struct {
	TestID       string `json:"test_id"`
	ModuleName   string `json:"module_name"`
	FunctionName string `json:"function_name"`
	CallType     string `json:"call_type"`
	Source       string `json:"source"`
}

// ExtractFunctionCalls (stage 5) derives FunctionMapping rows from call
// sites inside each test body and from the file's string references,
// splitting on the last dot into (module, symbol). A row whose module
// can't be resolved, or whose module has no dot of its own, is
// discarded rather than guessed (an explicitly resolved open question,
// see DESIGN.md).
func (p *Pipeline) ExtractFunctionCalls(ctx context.Context, parsed []parsedFile, ids map[testKey]string) (int, error) {
	var records []FunctionMappingRecord
	total := 0

	for _, pf := range parsed {
		importMap := importNameMap(pf.Lang.ExtractImports(pf.File))
		stringMappings := stringRefMappings(pf.Lang.ExtractStringReferences(pf.File))

		for _, fn := range pf.Lang.ExtractTestMethods(pf.File) {
			key := testKey{filePath: pf.Path, className: fn.ClassName, methodName: fn.Name}
			testID, ok := ids[key]
			if !ok {
				continue
			}

			var mappings []model.FunctionMapping
			for _, cs := range pf.Lang.ExtractFunctionCalls(pf.File, fn) {
				module, ok := resolveCallModule(cs, importMap)
				if !ok {
					continue
				}
				callType := model.CallDirect
				if cs.Kind == parser.CallKindMethod {
					callType = model.CallMethod
				}
				mappings = append(mappings, model.FunctionMapping{
					TestID: testID, ModuleName: module, FunctionName: cs.Function,
					CallType: callType, Source: model.SourceMethodCall,
				})
			}
			mappings = append(mappings, stringMappings...)
			for i := range mappings {
				mappings[i].TestID = testID
			}

			if err := p.Store.UpsertFunctionMappings(ctx, testID, mappings); err != nil {
				return 0, fmt.Errorf("extract function calls: %s: %w", testID, err)
			}
			for _, m := range mappings {
				records = append(records, FunctionMappingRecord{
					TestID: m.TestID, ModuleName: m.ModuleName, FunctionName: m.FunctionName,
					CallType: string(m.CallType), Source: string(m.Source),
				})
			}
			total += len(mappings)
		}
	}

	if err := writeArtifact(p.ArtifactDir, 5, records); err != nil {
		return 0, err
	}
	return total, nil
}

// importNameMap maps an imported symbol's bare name to its owning
// module, built from from-imports only: a plain `import a.b.c` carries
// no bound name we can resolve a bare call against without tracking
// aliases, which this parser does not model.
func importNameMap(imports parser.ImportSet) map[string]string {
	out := make(map[string]string)
	for _, fi := range imports.FromImports {
		for _, name := range fi.ImportedNames {
			out[name] = fi.Module
		}
	}
	return out
}

// resolveCallModule resolves a call site's callee to a (module,
// function) pair using only the file's recorded from-imports. A method
// call's Object is looked up as if it were a directly imported class
// constructor; anything else - an unimported name, a locally defined
// helper, an alias - is discarded rather than guessed.
func resolveCallModule(cs parser.CallSite, importMap map[string]string) (string, bool) {
	name := cs.Function
	if cs.Kind == parser.CallKindMethod {
		name = cs.Object
	}
	module, ok := importMap[name]
	if !ok || !strings.Contains(module, ".") {
		return "", false
	}
	return module, true
}

// stringRefMappings splits each string reference on its last dot into
// (module, symbol), rejecting single-word modules like `agent` alone
// as too broad to be useful.
func stringRefMappings(refs []string) []model.FunctionMapping {
	var out []model.FunctionMapping
	for _, ref := range refs {
		i := strings.LastIndexByte(ref, '.')
		if i < 0 {
			continue
		}
		module, symbol := ref[:i], ref[i+1:]
		if !strings.Contains(module, ".") || symbol == "" {
			continue
		}
		out = append(out, model.FunctionMapping{
			ModuleName: module, FunctionName: symbol,
			CallType: model.CallPatchRef, Source: model.SourcePatchRef,
		})
	}
	return out
}
