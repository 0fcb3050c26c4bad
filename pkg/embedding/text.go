// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"fmt"
	"strings"

	"github.com/kraklabs/tia/pkg/model"
)

// BuildText renders the newline-joined descriptive text for one test,
// including only non-empty fields, in a fixed field order.
func BuildText(t model.Test, meta model.TestMetadata, mappings []model.FunctionMapping, moduleName string) string {
	var lines []string

	lines = append(lines, "Test: "+humanize(t.MethodName))
	if t.ClassName != "" {
		lines = append(lines, "Component: "+humanize(t.ClassName))
	}
	if meta.Description != "" {
		lines = append(lines, "Purpose: "+meta.Description)
	}
	if moduleName != "" {
		lines = append(lines, "Module under test: "+moduleName)
	}
	if funcs := functionList(mappings); funcs != "" {
		lines = append(lines, "Tests functions: "+funcs)
	}
	if t.TestType != "" {
		lines = append(lines, "Test type: "+string(t.TestType))
	}
	if len(meta.Markers) > 0 {
		lines = append(lines, "Markers: "+strings.Join(meta.Markers, ", "))
	}
	if meta.IsAsync {
		lines = append(lines, "Async test")
	}

	return strings.Join(lines, "\n")
}

func functionList(mappings []model.FunctionMapping) string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range mappings {
		if m.ModuleName == "" || m.FunctionName == "" {
			continue
		}
		qualified := fmt.Sprintf("%s.%s", m.ModuleName, m.FunctionName)
		if seen[qualified] {
			continue
		}
		seen[qualified] = true
		out = append(out, qualified)
		if len(out) == 10 {
			break
		}
	}
	return strings.Join(out, ", ")
}

// humanize turns a snake_case or CamelCase identifier into readable
// words: "test_charges_customer" -> "charges customer".
func humanize(name string) string {
	name = strings.TrimPrefix(name, "test_")
	if strings.HasPrefix(name, "Test") && len(name) > 4 {
		name = name[4:]
	}
	name = strings.ReplaceAll(name, "_", " ")

	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' && name[i-1] != ' ' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.TrimSpace(b.String()))
}
