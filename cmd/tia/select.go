// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kraklabs/tia/internal/contract"
	tiaerrors "github.com/kraklabs/tia/internal/errors"
	"github.com/kraklabs/tia/internal/output"
	"github.com/kraklabs/tia/pkg/diff"
	"github.com/kraklabs/tia/pkg/embedding"
	"github.com/kraklabs/tia/pkg/match"
	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/score"
	"github.com/kraklabs/tia/pkg/store"
)

// runSelect executes the 'select' CLI command: parse a unified diff,
// match it against the fact store, and print the ranked test plans.
//
// Usage: tia select <diff-file> [options]
//
// Flags:
//   - --explain: include each test's match reasons in JSON output
//   - --plan: which plan to print (all, high, fast); default all
//   - --json: emit JSON instead of a human-readable list
func runSelect(args []string, configPath string) {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	explain := fs.Bool("explain", false, "Print the parsed diff summary and include match reasons in JSON output")
	compare := fs.Bool("compare", false, "Run AST-only and semantic-only matching side by side and compare")
	plan := fs.String("plan", "all", "Which plan to print: all, high, fast")
	jsonOut := fs.Bool("json", false, "Emit JSON instead of a human-readable list")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia select <diff-file> [options]

Selects the minimal ranked set of tests a unified diff should re-run.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	diffPath := fs.Arg(0)

	root, err := resolveRoot(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve project root: %v\n", err)
		os.Exit(1)
	}
	cfg := loadProjectConfig(root)

	diffBytes, err := os.ReadFile(diffPath)
	if err != nil {
		ue := tiaerrors.NewInputMalformedError(
			fmt.Sprintf("cannot read diff file %s", diffPath),
			err.Error(),
			"verify the path is correct and the file is readable",
		)
		tiaerrors.FatalError(ue, *jsonOut)
		return
	}
	diffText := string(diffBytes)

	if res := contract.ValidateDiffInput(diffText); !res.OK {
		ue := tiaerrors.NewInputMalformedError("diff input rejected", res.Message, "split the diff or raise TIA_DIFF_SOFT_LIMIT_BYTES")
		tiaerrors.FatalError(ue, *jsonOut)
		return
	}

	changes := diff.ParseUnifiedDiff(diffText)
	req := diff.BuildRequest(changes)

	if *explain && !*jsonOut {
		printDiffSummary(changes, req)
	}

	st := openProjectStore(root, cfg)
	defer st.Close()

	ctx := context.Background()

	provider := embeddingProvider(cfg)
	backend, err := embeddingBackend(cfg.VectorBackend, st, embeddingDimension)
	if err != nil || !backend.IsAvailable() {
		tiaerrors.WarnVectorBackendUnavailable(err)
		provider = nil
		backend = nil
	}

	if *compare {
		runCompare(ctx, st, req, provider, backend)
		return
	}

	engine := match.NewEngine(st, provider, backend)
	matched, err := engine.Run(ctx, req)
	if err != nil {
		ue := tiaerrors.NewInternalError("test selection failed", err.Error(), "check the fact store is reachable and up to date", err)
		tiaerrors.FatalError(ue, *jsonOut)
		return
	}

	plans := score.Rank(matched)

	if *jsonOut {
		printSelectJSON(plans, *plan, *explain)
		return
	}
	printSelectText(plans, *plan, *explain)
}

// printDiffSummary prints the parsed-diff overview `select --explain`
// shows before the ranked results.
func printDiffSummary(changes []diff.FileChange, req diff.Request) {
	fmt.Println("=== Parsed Changes ===")
	fmt.Printf("Changed files: %d\n", len(changes))
	for _, fc := range changes {
		fmt.Printf("  - %s (%s)\n", fc.Path, fc.ChangeType)
	}
	fmt.Println()

	if len(req.ExactMatches) > 0 {
		fmt.Printf("Changed classes: %d\n", len(req.ExactMatches))
		for _, c := range req.ExactMatches {
			fmt.Printf("  - %s\n", c)
		}
	} else {
		fmt.Println("Changed classes: none detected")
	}
	fmt.Println()

	if len(req.ChangedFunctions) > 0 {
		fmt.Printf("Changed functions: %d\n", len(req.ChangedFunctions))
		for _, cf := range req.ChangedFunctions {
			fmt.Printf("  - %s.%s (will match tests that call/patch this function)\n", cf.Module, cf.Function)
		}
	} else {
		fmt.Println("Changed functions: none detected")
	}
	fmt.Println()
}

// runCompare executes `select --compare`: AST-only matching (no
// semantic provider/backend) and semantic-only matching, side by side,
// reporting the overlap and each method's unique finds.
func runCompare(ctx context.Context, st *store.Store, req diff.Request, provider embedding.Provider, backend embedding.VectorBackend) {
	astEngine := match.NewEngine(st, nil, nil)
	astResults, err := astEngine.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: AST matching failed: %v\n", err)
		os.Exit(1)
	}

	var semanticResults []model.ScoredTest
	if provider != nil && backend != nil {
		semanticEngine := match.NewEngine(st, provider, backend)
		semanticResults, err = semanticEngine.RunSemanticOnly(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: semantic matching failed: %v\n", err)
			os.Exit(1)
		}
	}

	astIDs := make(map[string]model.ScoredTest, len(astResults))
	for _, t := range astResults {
		astIDs[t.TestID] = t
	}
	semanticIDs := make(map[string]model.ScoredTest, len(semanticResults))
	for _, t := range semanticResults {
		semanticIDs[t.TestID] = t
	}

	var onlyAST, onlySemantic, both []string
	for id := range astIDs {
		if _, ok := semanticIDs[id]; ok {
			both = append(both, id)
		} else {
			onlyAST = append(onlyAST, id)
		}
	}
	for id := range semanticIDs {
		if _, ok := astIDs[id]; !ok {
			onlySemantic = append(onlySemantic, id)
		}
	}

	fmt.Println("=== AST vs Semantic Comparison ===")
	fmt.Printf("AST-based matching found:     %d tests\n", len(astIDs))
	fmt.Printf("Semantic search found:        %d tests\n", len(semanticIDs))
	fmt.Printf("Found by both methods:        %d tests\n", len(both))
	fmt.Printf("Found only by AST:            %d tests\n", len(onlyAST))
	fmt.Printf("Found only by Semantic:       %d tests\n", len(onlySemantic))
	if len(astIDs) > 0 {
		fmt.Printf("Overlap percentage:           %.1f%%\n", float64(len(both))/float64(len(astIDs))*100)
	}
}

func selectedPlan(plans score.Plans, name string) []scoredTestView {
	switch name {
	case "high":
		return viewOf(plans.High)
	case "fast":
		return viewOf(plans.Fast)
	default:
		return viewOf(plans.All)
	}
}

type scoredTestView struct {
	TestID     string         `json:"test_id"`
	FilePath   string         `json:"file_path"`
	ClassName  string         `json:"class_name,omitempty"`
	MethodName string         `json:"method_name"`
	TestType   model.TestType `json:"test_type"`
	Score      int            `json:"score"`
	Reasons    []string       `json:"reasons,omitempty"`
}

func viewOf(tests []model.ScoredTest) []scoredTestView {
	out := make([]scoredTestView, len(tests))
	for i, t := range tests {
		out[i] = scoredTestView{
			TestID:     t.TestID,
			FilePath:   t.FilePath,
			ClassName:  t.ClassName,
			MethodName: t.MethodName,
			TestType:   t.TestType,
			Score:      t.Score,
		}
		for _, r := range t.Reasons {
			out[i].Reasons = append(out[i].Reasons, reasonLine(r))
		}
	}
	return out
}

// reasonLine renders one MatchReason as a short human-readable line,
// carrying whichever type-specific fields that reason set.
func reasonLine(r model.MatchReason) string {
	switch r.Type {
	case model.ReasonFunctionLevel:
		return fmt.Sprintf("function_level: %s.%s (%s)", r.ModuleName, r.FunctionName, r.Confidence)
	case model.ReasonExactClass:
		return fmt.Sprintf("exact_class: %s (%s)", r.ReferenceType, r.Confidence)
	case model.ReasonDirectFile:
		return fmt.Sprintf("direct_file (%s)", r.Confidence)
	case model.ReasonIntegration:
		return fmt.Sprintf("integration (%s)", r.Confidence)
	case model.ReasonModulePattern:
		return fmt.Sprintf("module_pattern: %s (%s)", r.ReferenceType, r.Confidence)
	case model.ReasonSemantic:
		return fmt.Sprintf("semantic: similarity %.2f", r.Similarity)
	default:
		return string(r.Type)
	}
}

// runnerCommand renders nodeIDs as a single ready-to-run pytest
// invocation, one node ID per continuation line.
func runnerCommand(nodeIDs []string) string {
	if len(nodeIDs) == 0 {
		return "# No tests matched this filter"
	}
	return "pytest " + strings.Join(nodeIDs, " \\\n       ") + " -v"
}

func printSelectJSON(plans score.Plans, planName string, explain bool) {
	views := selectedPlan(plans, planName)
	if !explain {
		for i := range views {
			views[i].Reasons = nil
		}
	}
	payload := map[string]any{
		"plan":  planName,
		"tests": views,
		"count": len(views),
		"run_plans": map[string]any{
			"run_all":  score.NodeIDs(plans.All),
			"run_high": score.NodeIDs(plans.High),
			"run_fast": score.NodeIDs(plans.Fast),
		},
		"commands": map[string]string{
			"run_all":  runnerCommand(score.NodeIDs(plans.All)),
			"run_high": runnerCommand(score.NodeIDs(plans.High)),
			"run_fast": runnerCommand(score.NodeIDs(plans.Fast)),
		},
	}
	if err := output.JSON(payload); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot encode output: %v\n", err)
		os.Exit(1)
	}
}

func printSelectText(plans score.Plans, planName string, explain bool) {
	views := selectedPlan(plans, planName)
	if len(views) == 0 {
		fmt.Println("No tests matched this diff.")
		return
	}
	fmt.Printf("=== %d test(s) selected (%s) ===\n", len(views), planName)
	for _, v := range views {
		label := v.FilePath
		if v.ClassName != "" {
			label = fmt.Sprintf("%s::%s::%s", v.FilePath, v.ClassName, v.MethodName)
		} else {
			label = fmt.Sprintf("%s::%s", v.FilePath, v.MethodName)
		}
		fmt.Printf("  [%3d] %-12s %s\n", v.Score, v.TestType, label)
		if explain {
			for _, reason := range v.Reasons {
				fmt.Printf("        - %s\n", reason)
			}
		}
	}

	fmt.Println()
	fmt.Println("=== Runner commands ===")
	fmt.Printf("# run_all (%d tests)\n%s\n\n", len(plans.All), runnerCommand(score.NodeIDs(plans.All)))
	fmt.Printf("# run_high (%d tests)\n%s\n\n", len(plans.High), runnerCommand(score.NodeIDs(plans.High)))
	fmt.Printf("# run_fast (%d tests)\n%s\n", len(plans.Fast), runnerCommand(score.NodeIDs(plans.Fast)))
}
