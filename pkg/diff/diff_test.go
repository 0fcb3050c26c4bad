// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package diff_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/diff"
)

const functionChangeDiff = `diff --git a/agent/langgraph_agent.py b/agent/langgraph_agent.py
index 111..222 100644
--- a/agent/langgraph_agent.py
+++ b/agent/langgraph_agent.py
@@ -8,8 +8,10 @@ class LangGraphAgent:
-    def initialize(self):
-        self.ready = False
+    def initialize(self):
+        self.ready = True
+        self.extra = 1
+        self.more = 2
`

const importOnlyDiff = `diff --git a/agent/mcp_client.py b/agent/mcp_client.py
index 111..222 100644
--- a/agent/mcp_client.py
+++ b/agent/mcp_client.py
@@ -1,3 +1,4 @@
 import os
+import sys
 import json
`

const nonProductionDiff = `diff --git a/frontend/App.tsx b/frontend/App.tsx
index 111..222 100644
--- a/frontend/App.tsx
+++ b/frontend/App.tsx
@@ -1,2 +1,3 @@
 const App = () => {
+  console.log("hi")
 }
`

func TestParseUnifiedDiffClassifiesFunctionChange(t *testing.T) {
	changes := diff.ParseUnifiedDiff(functionChangeDiff)
	require.Len(t, changes, 1)
	require.Equal(t, diff.ChangeCode, changes[0].ChangeType)
	require.True(t, changes[0].ChangedFuncs["initialize"])
}

func TestBuildRequestSuppressesModuleMatchesOnImportOnly(t *testing.T) {
	changes := diff.ParseUnifiedDiff(importOnlyDiff)
	require.Equal(t, diff.ChangeImportOnly, changes[0].ChangeType)

	req := diff.BuildRequest(changes)
	require.Empty(t, req.ModuleMatches)
	require.NotEmpty(t, req.TestFileCandidates)
}

func TestBuildRequestSkipsNonProductionFiles(t *testing.T) {
	changes := diff.ParseUnifiedDiff(nonProductionDiff)
	req := diff.BuildRequest(changes)
	require.Empty(t, req.ExactMatches)
	require.Empty(t, req.ModuleMatches)
	require.Empty(t, req.TestFileCandidates)
}

func TestModuleCandidatesStripsKnownPrefix(t *testing.T) {
	full, first := diff.ModuleCandidates("backend/agent/tool_converter.py")
	require.True(t, strings.HasSuffix(full, "agent.tool_converter"))
	require.Equal(t, "agent", first)
}
