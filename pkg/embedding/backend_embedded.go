// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package embedding

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

var registerVecOnce sync.Once

// EmbeddedBackend is the persistent-embedded VectorBackend: vectors live
// in a sqlite-vec `vec0` virtual table, and the native extension
// computes L2 distance with an index instead of a Go-side full scan.
// Distance is mapped to similarity via `1 / (1 + d/100)`. It wires a
// CGO-only sqlite extension behind the same *sql.DB the rest of the
// store uses.
type EmbeddedBackend struct {
	db  *sql.DB
	dim int
}

// NewEmbeddedBackend opens (or reuses) st's underlying *sql.DB and
// ensures the vec0 virtual table exists for the given vector
// dimension. Returns an error if the sqlite-vec extension failed to
// register, in which case callers should fall back to
// RelationalBackend and surface a VectorBackendUnavailable warning.
func NewEmbeddedBackend(st *store.Store, dim int) (*EmbeddedBackend, error) {
	registerVecOnce.Do(func() { sqlitevec.Auto() })

	b := &EmbeddedBackend{db: st.DB(), dim: dim}
	if _, err := b.db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS test_vectors USING vec0(test_id TEXT PRIMARY KEY, embedding FLOAT[%d])`, dim)); err != nil {
		return nil, fmt.Errorf("embedding: create vec0 table: %w", err)
	}
	return b, nil
}

func (b *EmbeddedBackend) IsAvailable() bool { return b.db != nil }

func (b *EmbeddedBackend) Store(tests []model.Test, vectors [][]float32) (int, int, error) {
	stored, failed := 0, 0
	for i, t := range tests {
		if i >= len(vectors) || vectors[i] == nil {
			failed++
			continue
		}
		blob, err := sqlitevec.SerializeFloat32(vectors[i])
		if err != nil {
			failed++
			continue
		}
		_, err = b.db.Exec(
			`INSERT INTO test_vectors(test_id, embedding) VALUES (?, ?)
			 ON CONFLICT(test_id) DO UPDATE SET embedding = excluded.embedding`,
			t.TestID, blob)
		if err != nil {
			failed++
			continue
		}
		stored++
	}
	return stored, failed, nil
}

func (b *EmbeddedBackend) SearchSimilar(query []float32, threshold float64, maxResults int) ([]SearchResult, error) {
	blob, err := sqlitevec.SerializeFloat32(query)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	rows, err := b.db.Query(`
		SELECT tr.test_id, tr.method_name, tr.class_name, tr.file_path, tr.test_type, v.distance
		FROM test_vectors v
		JOIN test_registry tr ON tr.test_id = v.test_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance`, blob, maxResults)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var dist float64
		var testType string
		if err := rows.Scan(&r.TestID, &r.MethodName, &r.ClassName, &r.TestFilePath, &testType, &dist); err != nil {
			return nil, err
		}
		r.TestType = model.TestType(testType)
		r.Similarity = 1.0 / (1.0 + dist/100.0)
		if r.Similarity < threshold {
			continue
		}
		r.MatchType = "semantic"
		r.ConfidenceCap = int(r.Similarity * 60)
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	return results, rows.Err()
}
