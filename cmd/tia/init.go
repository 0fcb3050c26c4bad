// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/tia/internal/config"
)

// runInit executes the 'init' CLI command, creating a .tia/project.yaml
// configuration file.
//
// Flags:
//   - --force: overwrite an existing configuration
//   - --project-id: project identifier (default: directory name)
//   - --test-repo: path to the test tree, relative to the project root
//   - --source-root: path to the production source tree
//   - --embedding-provider: embedding provider (ollama, mock)
func runInit(args []string, configPath string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing configuration")
	projectID := fs.String("project-id", "", "Project identifier")
	testRepo := fs.String("test-repo", "", "Path to the test tree")
	sourceRoot := fs.String("source-root", "", "Path to the production source tree")
	embeddingProvider := fs.String("embedding-provider", "", "Embedding provider (ollama, mock)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia init [options]

Creates .tia/project.yaml configuration file.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	root, err := resolveRoot(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve project root: %v\n", err)
		os.Exit(1)
	}

	target := config.ConfigPath(root)
	if _, err := os.Stat(target); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", target)
		os.Exit(1)
	}

	pid := *projectID
	if pid == "" {
		pid = filepath.Base(root)
	}
	cfg := config.DefaultConfig(pid)
	if *testRepo != "" {
		cfg.TestRepo = *testRepo
	}
	if *sourceRoot != "" {
		cfg.SourceRoot = *sourceRoot
	}
	if *embeddingProvider != "" {
		cfg.EmbeddingProvider = *embeddingProvider
	}

	if err := config.Save(root, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s\n", target)
	addToGitignore(root)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .tia/project.yaml if needed")
	fmt.Println("  2. Run 'tia build-index' to index your test tree")
	fmt.Println("  3. Run 'tia select <diff-file>' to select impacted tests")
}

// addToGitignore adds .tia/ to the project's .gitignore if not already
// present; it silently does nothing if .gitignore is absent or
// unwritable.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".tia/" || line == ".tia" || line == "/.tia/" || line == "/.tia" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# tia configuration\n.tia/\n")
	fmt.Println("Added .tia/ to .gitignore")
}
