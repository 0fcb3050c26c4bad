// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "strings"

// testFrameworkModules is the fixed allowlist of top-level module
// segments that never count as a production reference: the test
// frameworks themselves and their common plugin names.
var testFrameworkModules = map[string]bool{
	"pytest": true, "unittest": true, "mock": true, "nose": true, "nose2": true,
	"test": true, "tests": true, "testing": true,
	"pytest_mock": true, "pytest_asyncio": true, "pytest_cov": true, "hypothesis": true,
}

// stdlibModules is a fixed allowlist of common standard-library top-
// level packages, excluded from production references for the same
// reason: a test importing `json` isn't exercising application code.
var stdlibModules = map[string]bool{
	"os": true, "sys": true, "re": true, "io": true, "json": true, "typing": true,
	"collections": true, "itertools": true, "functools": true, "dataclasses": true,
	"datetime": true, "time": true, "math": true, "random": true, "logging": true,
	"pathlib": true, "shutil": true, "subprocess": true, "tempfile": true,
	"contextlib": true, "copy": true, "enum": true, "abc": true, "asyncio": true,
	"unittest.mock": true, "uuid": true, "string": true, "decimal": true,
}

// isProductionRef reports whether ref's top-level segment names
// application code rather than a test framework or the standard
// library.
func isProductionRef(ref string) bool {
	top := ref
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		top = ref[:i]
	}
	top = strings.ToLower(top)
	return !testFrameworkModules[top] && !stdlibModules[top]
}
