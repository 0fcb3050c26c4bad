// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"path/filepath"
	"regexp"
	"strings"
)

// languageExtensions is the fixed set of extensions a production file
// may carry (spec §4.6 production-file filter, (a)).
var languageExtensions = map[string]bool{".py": true, ".go": true}

var testFileNameRE = regexp.MustCompile(`(?i)^(test_.*|.*_test|.*Test)\.(py|go)$`)

var artifactDirRE = regexp.MustCompile(`(?i)(^|/)(node_modules|vendor|dist|build|frontend|data|\.git|__pycache__)(/|$)`)

// IsProductionFile reports whether path should be considered a
// candidate production file under spec §4.6's filter.
func IsProductionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !languageExtensions[ext] {
		return false
	}
	if testFileNameRE.MatchString(filepath.Base(path)) {
		return false
	}
	if artifactDirRE.MatchString(filepath.ToSlash(path)) {
		return false
	}
	return true
}

// knownProjectPrefixes are stripped from a derived module name, the
// Go analogue of the source's `backend.` prefix-stripping convention.
var knownProjectPrefixes = []string{"backend.", "src.", "app."}

// ModuleCandidates derives the dotted module name for a production
// file path and its first segment, per spec §4.6's module-name
// derivation.
func ModuleCandidates(path string) (full, first string) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	dotted := strings.ReplaceAll(filepath.ToSlash(stem), "/", ".")
	dotted = strings.TrimPrefix(dotted, ".")

	for _, prefix := range knownProjectPrefixes {
		if strings.HasPrefix(dotted, prefix) {
			dotted = strings.TrimPrefix(dotted, prefix)
			break
		}
	}

	parts := strings.Split(dotted, ".")
	first = parts[0]
	return dotted, first
}

// ModuleBasename returns the last dotted segment of a derived module
// name (spec §4.7 strategy 1 sub-strategy (iii)). For a package file
// (e.g. `billing/__init__.py`, module `billing.__init__`) this is
// `__init__`: ModuleCandidates keeps every path segment, so the result
// equals the file's own stem.
func ModuleBasename(full string) string {
	parts := strings.Split(full, ".")
	return parts[len(parts)-1]
}

// ProductionStem returns a production file's own stem with its
// extension stripped (spec §4.7 strategy 1 sub-strategy (iv)) - the
// changed file's basename, not any synthesized test-file candidate
// name.
func ProductionStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TestFileCandidates generates the set of test-file-name candidates
// for a production path dir/.../stem.ext (spec §4.6).
func TestFileCandidates(path string) []string {
	ext := filepath.Ext(path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, ext)
	parent := filepath.Base(dir)

	candidates := []string{
		"test_" + stem + ext,
		"test_" + parent + "_" + stem + ext,
		"test_" + stem + "_*" + ext,
		"test" + strings.ReplaceAll(stem, "_", "") + ext,
	}
	return dedupeStrings(candidates)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
