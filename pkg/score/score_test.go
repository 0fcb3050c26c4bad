// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package score_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/score"
)

func TestFunctionLevelMatchScoresAtLeast70(t *testing.T) {
	s := score.Score([]model.MatchReason{{Type: model.ReasonFunctionLevel}})
	require.GreaterOrEqual(t, s, 70)
}

func TestFunctionLevelUnitTestScoresAtLeast85(t *testing.T) {
	base := score.Score([]model.MatchReason{{Type: model.ReasonFunctionLevel}})
	withBonus := score.ApplyTypeBonus(base, model.TestTypeUnit)
	require.GreaterOrEqual(t, withBonus, 85)
}

func TestScoreIsMonotone(t *testing.T) {
	one := score.Score([]model.MatchReason{{Type: model.ReasonModulePattern}})
	two := score.Score([]model.MatchReason{
		{Type: model.ReasonModulePattern},
		{Type: model.ReasonDirectFile},
	})
	require.GreaterOrEqual(t, two, one)
}

func TestSemanticOnlyHitCappedAt60(t *testing.T) {
	s := score.Score([]model.MatchReason{{Type: model.ReasonSemantic, Similarity: 0.9}})
	require.LessOrEqual(t, s, 60)
}

func TestRunFastSubsetOfHighSubsetOfAll(t *testing.T) {
	tests := []model.ScoredTest{
		{Test: model.Test{TestID: "test_0001", TestType: model.TestTypeUnit}, Reasons: []model.MatchReason{{Type: model.ReasonFunctionLevel}}},
		{Test: model.Test{TestID: "test_0002", TestType: model.TestTypeIntegration}, Reasons: []model.MatchReason{{Type: model.ReasonModulePattern}}},
		{Test: model.Test{TestID: "test_0003", TestType: model.TestTypeUnit}, Reasons: []model.MatchReason{{Type: model.ReasonSemantic, Similarity: 0.5}}},
	}

	plans := score.Rank(tests)
	require.LessOrEqual(t, len(plans.Fast), len(plans.High))
	require.LessOrEqual(t, len(plans.High), len(plans.All))

	fastIDs := map[string]bool{}
	for _, st := range plans.Fast {
		fastIDs[st.TestID] = true
	}
	highIDs := map[string]bool{}
	for _, st := range plans.High {
		highIDs[st.TestID] = true
	}
	for id := range fastIDs {
		require.True(t, highIDs[id])
	}
}

func TestNodeIDOmitsClassForFreeFunctions(t *testing.T) {
	ids := score.NodeIDs([]model.ScoredTest{
		{Test: model.Test{FilePath: "x.py", MethodName: "test_free"}},
		{Test: model.Test{FilePath: "x.py", ClassName: "TestX", MethodName: "test_method"}},
	})
	require.Equal(t, []string{"x.py::test_free", "x.py::TestX::test_method"}, ids)
}
