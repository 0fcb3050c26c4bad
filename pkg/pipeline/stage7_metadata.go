// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/tia/pkg/model"
	"github.com/kraklabs/tia/pkg/parser"
)

// MetadataRecord is one row of stage 7's artifact.
type MetadataRecord struct {
	TestID          string   `json:"test_id"`
	Description     string   `json:"description,omitempty"`
	Markers         []string `json:"markers,omitempty"`
	IsAsync         bool     `json:"is_async"`
	IsParameterized bool     `json:"is_parameterized"`
	Pattern         string   `json:"pattern"`
}

// ExtractMetadata (stage 7) records each test's docstring, markers,
// async flag, parameterization, and naming-pattern classification.
func (p *Pipeline) ExtractMetadata(ctx context.Context, parsed []parsedFile, ids map[testKey]string) error {
	var records []MetadataRecord

	for _, pf := range parsed {
		lines := strings.Split(string(pf.File.Content), "\n")

		for _, fn := range pf.Lang.ExtractTestMethods(pf.File) {
			key := testKey{filePath: pf.Path, className: fn.ClassName, methodName: fn.Name}
			testID, ok := ids[key]
			if !ok {
				continue
			}

			m := model.TestMetadata{
				TestID:          testID,
				Description:     docstring(lines, fn.LineNumber),
				Markers:         markers(fn.Decorators),
				IsAsync:         fn.IsAsync,
				IsParameterized: isParameterized(fn),
				Pattern:         namingPattern(fn.Name),
			}
			if err := p.Store.UpsertMetadata(ctx, m); err != nil {
				return fmt.Errorf("extract metadata: %s: %w", testID, err)
			}
			records = append(records, MetadataRecord{
				TestID: m.TestID, Description: m.Description, Markers: m.Markers,
				IsAsync: m.IsAsync, IsParameterized: m.IsParameterized, Pattern: m.Pattern,
			})
		}
	}

	return writeArtifact(p.ArtifactDir, 7, records)
}

// markers extracts `@pytest.mark.<name>`-style decorator names,
// lower-cased.
func markers(decorators []string) []string {
	var out []string
	for _, d := range decorators {
		if !strings.Contains(d, "mark.") {
			continue
		}
		i := strings.LastIndex(d, "mark.")
		name := d[i+len("mark."):]
		if paren := strings.IndexByte(name, '('); paren >= 0 {
			name = name[:paren]
		}
		if name != "" {
			out = append(out, strings.ToLower(name))
		}
	}
	return out
}

// isParameterized reports a decorator whose qualified name ends in
// "parametrize", or a parameter list with entries beyond "self"/"cls".
func isParameterized(fn parser.Function) bool {
	for _, d := range fn.Decorators {
		if strings.HasSuffix(strings.SplitN(d, "(", 2)[0], "parametrize") {
			return true
		}
	}
	for _, param := range fn.Parameters {
		if param != "self" && param != "cls" {
			return true
		}
	}
	return false
}

// namingPattern classifies a test's name into a fixed vocabulary of
// naming conventions.
func namingPattern(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "test_should_") || strings.Contains(lower, "_should_"):
		return "should_pattern"
	case strings.HasPrefix(lower, "test_given_") || strings.HasPrefix(lower, "test_when_"):
		return "bdd_pattern"
	case strings.HasPrefix(lower, "test_"):
		return "test_prefix"
	default:
		return "other"
	}
}

// docstring returns the function's leading triple-quoted string, if
// any, searched from defLine (1-based) forward to the first non-blank
// statement line.
func docstring(lines []string, defLine int) string {
	for i := defLine; i < len(lines) && i < defLine+20; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		for _, quote := range []string{`"""`, `'''`} {
			if !strings.HasPrefix(trimmed, quote) {
				continue
			}
			rest := trimmed[len(quote):]
			if end := strings.Index(rest, quote); end >= 0 {
				return strings.TrimSpace(rest[:end])
			}
			var b strings.Builder
			b.WriteString(rest)
			for j := i + 1; j < len(lines); j++ {
				if end := strings.Index(lines[j], quote); end >= 0 {
					b.WriteString("\n")
					b.WriteString(lines[j][:end])
					return strings.TrimSpace(b.String())
				}
				b.WriteString("\n")
				b.WriteString(lines[j])
			}
			return strings.TrimSpace(b.String())
		}
		return "" // first statement wasn't a string literal: no docstring
	}
	return ""
}
