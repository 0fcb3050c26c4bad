// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

import "strings"

// testFrameworkFunctions is the fixed deny-list of test-framework
// primitives excluded from call-site extraction: assertion helpers,
// mocking constructors, fixture decorators, and setup/teardown names.
var testFrameworkFunctions = map[string]bool{
	"assert": true, "assertEqual": true, "assertNotEqual": true,
	"assertTrue": true, "assertFalse": true, "assertIn": true, "assertNotIn": true,
	"assertIs": true, "assertIsNot": true, "assertIsNone": true, "assertIsNotNone": true,
	"assertRaises": true, "assertRaisesRegex": true,
	"patch": true, "Mock": true, "MagicMock": true, "AsyncMock": true, "PropertyMock": true,
	"pytest": true, "fixture": true, "mark": true, "raises": true, "parametrize": true,
	"setUp": true, "tearDown": true, "setUpClass": true, "tearDownClass": true,
}

func isTestFrameworkFunction(name string) bool {
	return testFrameworkFunctions[name]
}

// patchFunctions is the set of mock constructors whose string-literal
// arguments are collected as string references (spec §4.2).
var patchFunctions = map[string]bool{
	"patch": true, "Mock": true, "MagicMock": true, "PropertyMock": true, "AsyncMock": true,
}

func isPatchFunction(name string) bool {
	return patchFunctions[name]
}

// isValidStringRef reports whether a string literal argument qualifies
// as a string reference: contains a dot, and is not a URL or filesystem
// path (spec §4.2).
func isValidStringRef(s string) bool {
	return strings.Contains(s, ".") &&
		!strings.HasPrefix(s, "http") &&
		!strings.HasPrefix(s, "/") &&
		!strings.HasPrefix(s, `\`)
}
