// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"context"
	"math"
	"sort"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

// RelationalBackend is the pure-Go VectorBackend: vectors live in the
// same sqlite fact store as everything else (test_metadata.embedding),
// and similarity is computed as `1 - cosine distance` directly in Go.
// It needs no CGO grammar or native extension, so it is always
// available, unlike EmbeddedBackend.
type RelationalBackend struct {
	st *store.Store
}

// NewRelationalBackend wraps an already-open fact store.
func NewRelationalBackend(st *store.Store) *RelationalBackend {
	return &RelationalBackend{st: st}
}

func (b *RelationalBackend) IsAvailable() bool { return b.st != nil }

// Store upserts each test's metadata row with its vector, skipping
// (and counting as failed) any test whose vector is nil - a provider
// failure never produces a partial write for that test.
func (b *RelationalBackend) Store(tests []model.Test, vectors [][]float32) (int, int, error) {
	ctx := context.Background()
	stored, failed := 0, 0

	for i, t := range tests {
		if i >= len(vectors) || vectors[i] == nil {
			failed++
			continue
		}

		existing, ok, err := b.st.Metadata(ctx, t.TestID)
		if err != nil {
			failed++
			continue
		}
		if !ok {
			existing = model.TestMetadata{TestID: t.TestID}
		}
		existing.Embedding = vectors[i]

		if err := b.st.UpsertMetadata(ctx, existing); err != nil {
			failed++
			continue
		}
		stored++
	}
	return stored, failed, nil
}

// SearchSimilar scans every test with a stored embedding and ranks by
// cosine similarity. This is a full scan, appropriate for the modest
// corpus sizes a single repository's test suite produces; a production
// deployment would swap in EmbeddedBackend for sqlite-vec's indexed
// search without changing callers.
func (b *RelationalBackend) SearchSimilar(query []float32, threshold float64, maxResults int) ([]SearchResult, error) {
	ctx := context.Background()

	tests, err := b.st.AllTests(ctx)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, t := range tests {
		meta, ok, err := b.st.Metadata(ctx, t.TestID)
		if err != nil || !ok || len(meta.Embedding) == 0 {
			continue
		}
		sim := cosineSimilarity(query, meta.Embedding)
		if sim < threshold {
			continue
		}
		results = append(results, SearchResult{
			TestID:        t.TestID,
			MethodName:    t.MethodName,
			ClassName:     t.ClassName,
			TestFilePath:  t.FilePath,
			TestType:      t.TestType,
			Similarity:    sim,
			MatchType:     "semantic",
			ConfidenceCap: int(sim * 60),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
