// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package match implements the six-strategy matcher: each strategy
// adds evidence to a running set of candidate tests, never removing
// one another's findings.
package match

import (
	"context"
	"strings"

	"github.com/kraklabs/tia/pkg/diff"
	"github.com/kraklabs/tia/pkg/embedding"
	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

// Engine runs the match strategies against a fact store and, when
// configured, a semantic backend.
type Engine struct {
	st               *store.Store
	semanticProvider embedding.Provider
	semanticBackend  embedding.VectorBackend

	// SimilarityThreshold and MaxSemanticResults default to 0.3 and 20
	// when zero.
	SimilarityThreshold float64
	MaxSemanticResults  int
}

// NewEngine builds a match Engine. semanticProvider/semanticBackend may
// be nil, in which case strategy 4 is skipped with a
// VectorBackendUnavailable warning rather than failing the query.
func NewEngine(st *store.Store, semanticProvider embedding.Provider, semanticBackend embedding.VectorBackend) *Engine {
	return &Engine{
		st:                  st,
		semanticProvider:    semanticProvider,
		semanticBackend:     semanticBackend,
		SimilarityThreshold: 0.3,
		MaxSemanticResults:  20,
	}
}

// candidate accumulates a test's match reasons across strategies.
type candidate struct {
	test    model.Test
	reasons []model.MatchReason
}

// Run executes every strategy in a fixed order and returns the union
// of matched tests, each carrying its accumulated MatchReasons (not
// yet scored; see pkg/score).
func (e *Engine) Run(ctx context.Context, req diff.Request) ([]model.ScoredTest, error) {
	found := make(map[string]*candidate)

	add := func(t model.Test, reason model.MatchReason) {
		c, ok := found[t.TestID]
		if !ok {
			c = &candidate{test: t}
			found[t.TestID] = c
		}
		c.reasons = append(c.reasons, reason)
	}

	// Strategy 0: function-level.
	for _, cf := range req.ChangedFunctions {
		if !strings.Contains(cf.Module, ".") {
			continue // module segment must itself contain a dot
		}
		tests, err := e.st.TestsForFunction(ctx, cf.Module, cf.Function)
		if err != nil {
			return nil, err
		}
		for _, t := range tests {
			add(t, model.MatchReason{
				Type:         model.ReasonFunctionLevel,
				Confidence:   model.ConfidenceVeryHigh,
				ModuleName:   cf.Module,
				FunctionName: cf.Function,
			})
		}
	}

	// Strategy 1, sub-strategies (i)+(ii): direct test file, against the
	// synthesized "test_*" candidate names.
	for _, candidatePath := range req.TestFileCandidates {
		tests, err := e.directFileMatches(ctx, candidatePath)
		if err != nil {
			return nil, err
		}
		for _, t := range tests {
			add(t, model.MatchReason{Type: model.ReasonDirectFile, Confidence: model.ConfidenceHigh})
		}
	}

	// Strategy 1, sub-strategy (iii): tests whose file contains the
	// changed module's own basename.
	for _, base := range req.ModuleBasenames {
		tests, err := e.testsContainingSubstring(ctx, base)
		if err != nil {
			return nil, err
		}
		for _, t := range tests {
			add(t, model.MatchReason{Type: model.ReasonDirectFile, Confidence: model.ConfidenceHigh})
		}
	}

	// Strategy 1, sub-strategy (iv): tests whose file contains the
	// production file's own stem.
	for _, stem := range req.ProductionStems {
		tests, err := e.testsContainingSubstring(ctx, stem)
		if err != nil {
			return nil, err
		}
		for _, t := range tests {
			add(t, model.MatchReason{Type: model.ReasonDirectFile, Confidence: model.ConfidenceHigh})
		}
	}

	// Strategy 1.5: integration/e2e, skipping import_only files.
	for _, fc := range req.FileChanges {
		if fc.ChangeType == diff.ChangeImportOnly {
			continue
		}
		full, _ := diff.ModuleCandidates(fc.Path)
		entries, err := e.st.IntegrationTestsForClass(ctx, full)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			test, ok, err := e.st.GetTest(ctx, entry.TestID)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			add(test, model.MatchReason{Type: model.ReasonIntegration, Confidence: model.ConfidenceMedium, ModuleName: full})
		}
	}

	// Strategy 2: exact class match.
	for _, name := range req.ExactMatches {
		entries, err := e.st.TestsForClass(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			test, ok, err := e.st.GetTest(ctx, entry.TestID)
			if err != nil || !ok {
				continue
			}
			add(test, model.MatchReason{
				Type:          model.ReasonExactClass,
				Confidence:    model.ConfidenceHigh,
				ReferenceType: entry.ReferenceType,
				ModuleName:    name,
			})
		}
	}

	// Strategy 3: module pattern, skipping import-only modules, restricting
	// to specific changed classes inside the module when any changed.
	importOnlyModules := importOnlySet(req.FileChanges)
	for _, fc := range req.FileChanges {
		if fc.ChangeType == diff.ChangeImportOnly {
			continue
		}
		full, _ := diff.ModuleCandidates(fc.Path)
		if importOnlyModules[full] {
			continue
		}
		var specific []string
		for name := range fc.ChangedClasses {
			specific = append(specific, name)
		}
		entries, err := e.st.TestsForModulePattern(ctx, full, len(specific) > 0, specific)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			test, ok, err := e.st.GetTest(ctx, entry.TestID)
			if err != nil || !ok {
				continue
			}
			add(test, model.MatchReason{
				Type:          model.ReasonModulePattern,
				Confidence:    model.ConfidenceMedium,
				ReferenceType: entry.ReferenceType,
				ModuleName:    full,
			})
		}
	}

	// Strategy 4: semantic, only adding tests not already present.
	if e.semanticProvider != nil && e.semanticBackend != nil && e.semanticBackend.IsAvailable() {
		if err := e.semanticStrategy(ctx, req, found, add); err != nil {
			return nil, err
		}
	}

	out := make([]model.ScoredTest, 0, len(found))
	for _, c := range found {
		out = append(out, model.ScoredTest{Test: c.test, Reasons: c.reasons})
	}
	return out, nil
}

// RunSemanticOnly runs strategy 4 in isolation, skipping the AST
// strategies entirely - used by `select --compare` to measure what the
// semantic strategy contributes on its own. Returns an empty, non-error
// result when no semantic backend is configured or available.
func (e *Engine) RunSemanticOnly(ctx context.Context, req diff.Request) ([]model.ScoredTest, error) {
	if e.semanticProvider == nil || e.semanticBackend == nil || !e.semanticBackend.IsAvailable() {
		return nil, nil
	}
	found := make(map[string]*candidate)
	add := func(t model.Test, reason model.MatchReason) {
		c, ok := found[t.TestID]
		if !ok {
			c = &candidate{test: t}
			found[t.TestID] = c
		}
		c.reasons = append(c.reasons, reason)
	}
	if err := e.semanticStrategy(ctx, req, found, add); err != nil {
		return nil, err
	}
	out := make([]model.ScoredTest, 0, len(found))
	for _, c := range found {
		out = append(out, model.ScoredTest{Test: c.test, Reasons: c.reasons})
	}
	return out, nil
}

func (e *Engine) semanticStrategy(ctx context.Context, req diff.Request, found map[string]*candidate, add func(model.Test, model.MatchReason)) error {
	desc := buildChangeDescription(req)
	if desc == "" {
		return nil
	}

	vectors, err := e.semanticProvider.Embed(ctx, []string{desc})
	if err != nil || len(vectors) == 0 || vectors[0] == nil {
		return nil // provider failure: strategy 4 is skipped silently and the caller is not told
	}

	results, err := e.semanticBackend.SearchSimilar(vectors[0], e.SimilarityThreshold, e.MaxSemanticResults)
	if err != nil {
		return nil
	}

	for _, r := range results {
		if _, already := found[r.TestID]; already {
			continue
		}
		test, ok, err := e.st.GetTest(ctx, r.TestID)
		if err != nil || !ok {
			continue
		}
		add(test, model.MatchReason{Type: model.ReasonSemantic, Confidence: model.ConfidenceMedium, Similarity: r.Similarity})
	}
	return nil
}

// buildChangeDescription renders the semantic query text:
// "Changed functions: f1() in m1, f2() in m2. Module: m1."
func buildChangeDescription(req diff.Request) string {
	if len(req.ChangedFunctions) == 0 {
		return ""
	}
	var parts []string
	for _, cf := range req.ChangedFunctions {
		parts = append(parts, cf.Function+"() in "+cf.Module)
	}
	modules := map[string]bool{}
	var moduleList []string
	for _, cf := range req.ChangedFunctions {
		if !modules[cf.Module] {
			modules[cf.Module] = true
			moduleList = append(moduleList, cf.Module)
		}
	}
	return "Changed functions: " + strings.Join(parts, ", ") + ". Module: " + strings.Join(moduleList, ", ") + "."
}

func importOnlySet(changes []diff.FileChange) map[string]bool {
	out := map[string]bool{}
	for _, fc := range changes {
		if fc.ChangeType == diff.ChangeImportOnly {
			full, _ := diff.ModuleCandidates(fc.Path)
			out[full] = true
		}
	}
	return out
}

// directFileMatches runs the direct-test-file strategy's sub-strategies
// (i) exact filename suffix and (ii) wildcard pattern against one
// synthesized test-file candidate name. Sub-strategies (iii) and (iv)
// run separately in Run, against the original production file's own
// module basename and stem rather than against this candidate string.
func (e *Engine) directFileMatches(ctx context.Context, candidateName string) ([]model.Test, error) {
	seen := make(map[string]bool)
	var out []model.Test

	appendUnique := func(tests []model.Test) {
		for _, t := range tests {
			if !seen[t.TestID] {
				seen[t.TestID] = true
				out = append(out, t)
			}
		}
	}

	// (i) exact filename suffix match.
	exact, err := e.st.TestsByPathPattern(ctx, "%"+candidateName)
	if err != nil {
		return nil, err
	}
	appendUnique(exact)

	// (ii) wildcard pattern (candidateName may itself contain a `*`).
	if strings.Contains(candidateName, "*") {
		wildcard, err := e.st.TestsByPathPattern(ctx, "%"+strings.ReplaceAll(candidateName, "*", "%"))
		if err != nil {
			return nil, err
		}
		appendUnique(wildcard)
	}

	return out, nil
}

// testsContainingSubstring runs strategy 1's sub-strategies (iii)/(iv):
// any indexed test whose file path contains substr anywhere.
func (e *Engine) testsContainingSubstring(ctx context.Context, substr string) ([]model.Test, error) {
	if substr == "" {
		return nil, nil
	}
	return e.st.TestsByPathPattern(ctx, "%"+substr+"%")
}
