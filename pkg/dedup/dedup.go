// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package dedup implements deduplication, verification, and
// incremental re-indexing (C10, spec §4.10).
package dedup

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/store"
)

// categoryParents is the fixed set of parent-directory names normalize
// falls back to when no `test_repository` segment is present (spec
// §4.10's dedup key).
var categoryParents = map[string]bool{
	"unit": true, "integration": true, "e2e": true, "tests": true, "test": true,
}

// Normalize collapses a file path to its dedup-key form (spec §4.10):
// everything up to and including a `test_repository` path segment is
// stripped if present; otherwise, if the immediate parent directory is
// one of the category names, the key is `parent/filename`; otherwise
// it is the bare filename. This is never persisted - it exists only to
// compare two paths that may point at the same logical test file.
func Normalize(path string) string {
	slash := filepath.ToSlash(path)
	if i := strings.Index(slash, "test_repository/"); i >= 0 {
		return slash[i+len("test_repository/"):]
	}

	dir, file := filepath.Split(slash)
	parent := filepath.Base(strings.TrimSuffix(dir, "/"))
	if categoryParents[strings.ToLower(parent)] {
		return parent + "/" + file
	}
	return file
}

// Key is the dedup-key triple (spec §4.10).
type Key struct {
	NormalizedPath string
	ClassName      string
	MethodName     string
}

func keyOf(t model.Test) Key {
	return Key{NormalizedPath: Normalize(t.FilePath), ClassName: t.ClassName, MethodName: t.MethodName}
}

// Duplicate groups every test_id sharing a dedup key. Keep is the
// lowest test_id among them; Remove is every other one.
type Duplicate struct {
	Key    Key
	Keep   string
	Remove []string
}

// Find scans every registered test for dedup-key collisions.
func Find(ctx context.Context, st *store.Store) ([]Duplicate, error) {
	tests, err := st.AllTests(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[Key][]string)
	for _, t := range tests {
		k := keyOf(t)
		groups[k] = append(groups[k], t.TestID)
	}

	var dups []Duplicate
	for k, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		sortStrings(ids)
		dups = append(dups, Duplicate{Key: k, Keep: ids[0], Remove: ids[1:]})
	}
	return dups, nil
}

// Remove cascades-deletes every duplicate's Remove set, keeping the
// lowest test_id of each group (spec §4.10 "keep the row with the
// lowest test_id").
func Remove(ctx context.Context, st *store.Store, dups []Duplicate) (int, error) {
	var ids []string
	for _, d := range dups {
		ids = append(ids, d.Remove...)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := st.DeleteTestsCascade(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}
