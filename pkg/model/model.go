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

// Package model holds the shared entities of the test-impact index: the
// five normalized tables described by the reverse-index store, plus the
// in-memory types passed between the pipeline, the match engine, and the
// scorer.
package model

// TestType classifies a test by its position in the test tree.
type TestType string

const (
	TestTypeUnit        TestType = "unit"
	TestTypeIntegration TestType = "integration"
	TestTypeE2E         TestType = "e2e"
)

// ReferenceType classifies how a test came to reference a production
// symbol.
type ReferenceType string

const (
	ReferenceDirectImport ReferenceType = "direct_import"
	ReferenceStringRef    ReferenceType = "string_ref"
	ReferenceIndirect     ReferenceType = "indirect"
)

// CallType classifies a call site found inside a test body.
type CallType string

const (
	CallDirect   CallType = "direct"
	CallMethod   CallType = "method"
	CallPatchRef CallType = "patch_ref"
)

// MappingSource distinguishes a FunctionMapping derived from an actual
// call site from one derived from a string reference passed to a mock.
type MappingSource string

const (
	SourceMethodCall MappingSource = "method_call"
	SourcePatchRef   MappingSource = "patch_ref"
)

// Test is the atomic unit of selection.
type Test struct {
	TestID     string
	FilePath   string
	ClassName  string
	MethodName string
	TestType   TestType
	LineNumber int
}

// NodeID renders the pytest-style identifier file::class::method, with
// the class segment omitted for free functions.
func (t Test) NodeID() string {
	if t.ClassName == "" {
		return t.FilePath + "::" + t.MethodName
	}
	return t.FilePath + "::" + t.ClassName + "::" + t.MethodName
}

// Dependency is an import-based edge from a test to a production symbol.
type Dependency struct {
	TestID          string
	ReferencedClass string
	ImportType      ReferenceType
}

// ReverseIndexEntry is the inverse of Dependency, denormalized with the
// owning test's file path for ranking tie-breaks.
type ReverseIndexEntry struct {
	ProductionClass string
	TestID          string
	TestFilePath    string
	ReferenceType   ReferenceType
}

// FunctionMapping is an edge from a test to a specific production
// function. Rows with an absent ModuleName are never persisted.
type FunctionMapping struct {
	TestID       string
	ModuleName   string
	FunctionName string
	CallType     CallType
	Source       MappingSource
}

// TestMetadata carries the descriptive fields used by stage 7 and the
// embedding generator. Exactly one row exists per test.
type TestMetadata struct {
	TestID           string
	Description      string
	Markers          []string
	IsAsync          bool
	IsParameterized  bool
	Pattern          string
	Embedding        []float32
}

// TestStructure summarizes one directory of the test tree.
type TestStructure struct {
	DirectoryPath string
	Category      TestType
	FileCount     int
	TotalLines    int
}

// MatchConfidence is the coarse confidence band a match engine strategy
// asserts for a MatchReason, independent of the final numeric score.
type MatchConfidence string

const (
	ConfidenceVeryHigh MatchConfidence = "very_high"
	ConfidenceHigh     MatchConfidence = "high"
	ConfidenceMedium   MatchConfidence = "medium"
)

// MatchReasonType names which of the six match-engine strategies
// produced a MatchReason.
type MatchReasonType string

const (
	ReasonFunctionLevel  MatchReasonType = "function_level"
	ReasonDirectFile     MatchReasonType = "direct_file"
	ReasonIntegration    MatchReasonType = "integration"
	ReasonExactClass     MatchReasonType = "exact_class"
	ReasonModulePattern  MatchReasonType = "module_pattern"
	ReasonSemantic       MatchReasonType = "semantic"
)

// MatchReason is one piece of evidence that a test is affected by a
// diff. A Test may accumulate several.
type MatchReason struct {
	Type          MatchReasonType
	Confidence    MatchConfidence
	ReferenceType ReferenceType // set for exact_class / module_pattern reasons
	ModuleName    string        // set for function_level / integration / exact_class / module_pattern reasons
	FunctionName  string        // set for function_level reasons
	Similarity    float64       // set for semantic reasons, in [0,1]
}

// ScoredTest is a Test together with its accumulated match reasons and
// final confidence score, as returned by the match engine and ranked
// by the scorer.
type ScoredTest struct {
	Test
	Reasons []MatchReason
	Score   int
}
