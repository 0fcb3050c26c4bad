// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package embedding

import "github.com/kraklabs/tia/pkg/model"

// SearchResult is one hit returned by VectorBackend.SearchSimilar,
// already carrying the fields the semantic match strategy needs
// without a second store round-trip.
type SearchResult struct {
	TestID         string
	MethodName     string
	ClassName      string
	TestFilePath   string
	TestType       model.TestType
	Similarity     float64
	MatchType      string
	ConfidenceCap  int
}

// VectorBackend is the common contract both concrete vector stores
// implement, hiding their distance metric and its transformation to a
// [0,1] similarity.
type VectorBackend interface {
	Store(tests []model.Test, vectors [][]float32) (stored, failed int, err error)
	SearchSimilar(queryVector []float32, threshold float64, maxResults int) ([]SearchResult, error)
	IsAvailable() bool
}
