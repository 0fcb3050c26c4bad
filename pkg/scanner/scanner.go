// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package scanner walks a test-tree root and classifies each file it
// finds as unit, integration, or e2e.
package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kraklabs/tia/pkg/model"
)

// File is one discovered test file.
type File struct {
	Path     string
	Size     int64
	Lines    int
	Category model.TestType
}

// excludedDirs is the fixed infrastructure-directory deny-list: cache,
// VCS, dependency stores, virtualenvs, build outputs.
var excludedDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"__pycache__": true, ".pytest_cache": true, ".mypy_cache": true, ".ruff_cache": true,
	"node_modules": true, "vendor": true, ".venv": true, "venv": true, "env": true,
	"dist": true, "build": true, ".tox": true, "site-packages": true,
	".git-worktrees": true,
}

// categoryDirs triggers inclusion for any file residing in one of
// these directories even when the filename itself doesn't match a
// test pattern.
var categoryDirs = map[string]bool{
	"unit": true, "integration": true, "e2e": true, "end_to_end": true,
	"tests": true, "test": true,
}

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^test_.*\.(py|go)$`),
	regexp.MustCompile(`^.*_test\.(py|go)$`),
	regexp.MustCompile(`^.*Test\.(py|go)$`),
}

var categoryByKeyword = []struct {
	re  *regexp.Regexp
	typ model.TestType
}{
	{regexp.MustCompile(`(?i)end[-_]?to[-_]?end|endtoend|e2e`), model.TestTypeE2E},
	{regexp.MustCompile(`(?i)integration`), model.TestTypeIntegration},
	{regexp.MustCompile(`(?i)unit`), model.TestTypeUnit},
}

// Scan walks root, returning every matched file deduplicated by
// canonicalized path.
func Scan(root string) ([]File, error) {
	seen := make(map[string]bool)
	var out []File

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // per-file errors are skipped, never fatal
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		inCategoryDir := pathHasCategoryDir(path, root)
		if !matchesNamePattern(name) && !inCategoryDir {
			return nil
		}

		canon, err := filepath.Abs(path)
		if err != nil {
			canon = path
		}
		if seen[canon] {
			return nil
		}
		seen[canon] = true

		info, err := d.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		lines := countLines(path)

		out = append(out, File{
			Path:     canon,
			Size:     size,
			Lines:    lines,
			Category: Categorize(path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesNamePattern(name string) bool {
	for _, re := range namePatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func pathHasCategoryDir(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if categoryDirs[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}

// Categorize classifies path in order, first match wins: e2e keywords,
// then integration, then unit, anywhere in the path; else the
// immediate parent directory name against the same table; else unit.
func Categorize(path string) model.TestType {
	slash := filepath.ToSlash(path)
	for _, rule := range categoryByKeyword {
		if rule.re.MatchString(slash) {
			return rule.typ
		}
	}

	parent := strings.ToLower(filepath.Base(filepath.Dir(path)))
	switch {
	case strings.Contains(parent, "e2e"), strings.Contains(parent, "end_to_end"), strings.Contains(parent, "endtoend"):
		return model.TestTypeE2E
	case strings.Contains(parent, "integration"):
		return model.TestTypeIntegration
	case strings.Contains(parent, "unit"):
		return model.TestTypeUnit
	}
	return model.TestTypeUnit
}

func countLines(path string) int {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	if len(content) == 0 {
		return 0
	}
	return strings.Count(string(content), "\n") + 1
}
