// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the tia CLI for indexing a test repository
// and selecting the minimal test set a diff should re-run.
//
// Usage:
//
//	tia init                      Create .tia/project.yaml configuration
//	tia build-index                Build the fact store from the test tree
//	tia embed                      Generate and store test embeddings
//	tia select <diff-file>          Select tests impacted by a diff
//	tia verify                     Reconcile the fact store against disk
//	tia reindex                    Incrementally index newly found files
//	tia deduplicate                 Find and optionally remove duplicate rows
//	tia clear-embeddings            Drop stored embeddings
//	tia diagnose [diff-file]        Print fact-store counts, or match diagnosis for a diff
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Project root directory containing .tia/project.yaml (default: current directory)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `tia - Test Impact Analyzer CLI

Usage:
  tia <command> [options]

Commands:
  init             Create .tia/project.yaml configuration
  build-index      Build the fact store from the test tree
  embed            Generate and store test embeddings
  select           Select tests impacted by a diff
  verify           Reconcile the fact store against disk
  reindex          Incrementally index newly discovered test files
  deduplicate      Find and optionally remove duplicate test rows
  clear-embeddings Drop stored embeddings
  diagnose         Print fact-store counts, or match diagnosis for a diff

Global Options:
  --config   Project root directory containing .tia/project.yaml
  --version  Show version and exit

Examples:
  tia init
  tia build-index --test-repo tests/
  tia embed --backend relational
  tia select changes.diff --explain
  tia verify
  tia reindex
  tia deduplicate --remove-duplicates

Data Storage:
  Data is stored in .tia/index.db under the project root unless
  .tia/project.yaml sets store.dsn to another path (relative paths
  are resolved against the project root).

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("tia version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, *configPath)
	case "build-index":
		runBuildIndex(cmdArgs, *configPath)
	case "embed":
		runEmbed(cmdArgs, *configPath)
	case "select":
		runSelect(cmdArgs, *configPath)
	case "verify":
		runVerify(cmdArgs, *configPath)
	case "reindex":
		runReindex(cmdArgs, *configPath)
	case "deduplicate":
		runDeduplicate(cmdArgs, *configPath)
	case "clear-embeddings":
		runClearEmbeddings(cmdArgs, *configPath)
	case "diagnose":
		runDiagnose(cmdArgs, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
