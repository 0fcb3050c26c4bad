// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package score collapses a test's match reasons into a confidence
// score in [0,100] and emits the three runner plans.
package score

import (
	"sort"

	"github.com/kraklabs/tia/pkg/model"
)

// Plans is the output of Rank: the full ranked list plus the three
// pytest-style invocation plans.
type Plans struct {
	All  []model.ScoredTest
	High []model.ScoredTest
	Fast []model.ScoredTest
}

// highThreshold is the run_high score cutoff.
const highThreshold = 60

// Rank scores every test, sorts by score descending then by test_id,
// and partitions into the three runner plans.
func Rank(tests []model.ScoredTest) Plans {
	scored := make([]model.ScoredTest, len(tests))
	copy(scored, tests)
	for i := range scored {
		base := Score(scored[i].Reasons)
		if isSemanticOnly(scored[i].Reasons) {
			scored[i].Score = base // bonuses never apply to a semantic-only hit, which must stay <= 60
			continue
		}
		scored[i].Score = ApplyTypeBonus(base, scored[i].TestType)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].TestID < scored[j].TestID
	})

	var high, fast []model.ScoredTest
	for _, t := range scored {
		if t.Score >= highThreshold {
			high = append(high, t)
			if t.TestType == model.TestTypeUnit {
				fast = append(fast, t)
			}
		}
	}

	return Plans{All: scored, High: high, Fast: fast}
}

// Score sums the weights of reasons plus bonuses and clamps to 100, per
// a fixed weight table. A semantic-only hit (no non-semantic reasons) is
// capped at its similarity * 60, floored to int, so it can never
// outrank a name-based match.
func Score(reasons []model.MatchReason) int {
	if len(reasons) == 0 {
		return 0
	}

	var nonSemantic []model.MatchReason
	var semanticOnly *model.MatchReason
	for i, r := range reasons {
		if r.Type == model.ReasonSemantic {
			if semanticOnly == nil {
				semanticOnly = &reasons[i]
			}
			continue
		}
		nonSemantic = append(nonSemantic, r)
	}

	if len(nonSemantic) == 0 && semanticOnly != nil {
		cap := int(semanticOnly.Similarity * 60)
		if cap > highThreshold {
			cap = highThreshold
		}
		return cap
	}

	total := 0
	hasFunctionLevel := false
	for _, r := range nonSemantic {
		switch r.Type {
		case model.ReasonFunctionLevel:
			total += 50
			hasFunctionLevel = true
		case model.ReasonExactClass:
			if r.ReferenceType == model.ReferenceDirectImport {
				total += 45
			} else if r.ReferenceType == model.ReferenceStringRef {
				total += 40
			} else {
				total += 35
			}
		case model.ReasonDirectFile:
			total += 35
		case model.ReasonIntegration:
			total += 25
		case model.ReasonModulePattern:
			total += 15
		}
	}

	if hasFunctionLevel {
		total += 20
	}

	return clamp(total)
}

// ApplyTypeBonus adds the test_type bonus from a fixed weight table. It is
// kept separate from Score because the bonus depends on the Test's
// TestType, not on its match reasons.
func ApplyTypeBonus(score int, testType model.TestType) int {
	switch testType {
	case model.TestTypeUnit:
		score += 15
	case model.TestTypeIntegration:
		score += 5
	}
	return clamp(score)
}

func isSemanticOnly(reasons []model.MatchReason) bool {
	for _, r := range reasons {
		if r.Type != model.ReasonSemantic {
			return false
		}
	}
	return len(reasons) > 0
}

func clamp(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// NodeIDs renders a plan as pytest-style node identifiers.
func NodeIDs(tests []model.ScoredTest) []string {
	out := make([]string, len(tests))
	for i, t := range tests {
		out[i] = t.NodeID()
	}
	return out
}
