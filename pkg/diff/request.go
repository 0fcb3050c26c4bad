// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package diff

// BuildRequest filters parsed file changes to production files and
// derives the structured query C7 consumes.
//
// Import-only files still contribute exact_matches and
// test_file_candidates; only module_matches are suppressed for them,
// per the S2 scenario wording in spec.md §8 (recorded as the
// authoritative resolution in SPEC_FULL.md §5 / DESIGN.md).
func BuildRequest(changes []FileChange) Request {
	req := Request{FileChanges: changes}

	for _, fc := range changes {
		if !IsProductionFile(fc.Path) {
			continue
		}
		if fc.ChangeType == ChangeCommentOnly {
			continue
		}

		full, first := ModuleCandidates(fc.Path)
		req.ExactMatches = append(req.ExactMatches, dottedClassNames(fc)...)
		req.TestFileCandidates = append(req.TestFileCandidates, TestFileCandidates(fc.Path)...)
		req.ModuleBasenames = append(req.ModuleBasenames, ModuleBasename(full))
		req.ProductionStems = append(req.ProductionStems, ProductionStem(fc.Path))

		if fc.ChangeType != ChangeImportOnly {
			req.ModuleMatches = append(req.ModuleMatches, full, first)
		}

		for fn := range fc.ChangedFuncs {
			req.ChangedFunctions = append(req.ChangedFunctions, ChangedFunction{Module: full, Function: fn})
		}
	}

	req.ExactMatches = dedupeStrings(req.ExactMatches)
	req.ModuleMatches = dedupeStrings(req.ModuleMatches)
	req.TestFileCandidates = dedupeStrings(req.TestFileCandidates)
	req.ModuleBasenames = dedupeStrings(req.ModuleBasenames)
	req.ProductionStems = dedupeStrings(req.ProductionStems)
	return req
}

func dottedClassNames(fc FileChange) []string {
	var out []string
	for name := range fc.ChangedClasses {
		out = append(out, name)
	}
	return out
}
