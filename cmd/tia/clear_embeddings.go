// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// runClearEmbeddings executes the 'clear-embeddings' CLI command,
// dropping every stored vector so a later 'tia embed' starts fresh
// (e.g. after switching embedding providers or models).
func runClearEmbeddings(args []string, configPath string) {
	fs := flag.NewFlagSet("clear-embeddings", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia clear-embeddings

Drops every stored test embedding.
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	root, err := resolveRoot(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve project root: %v\n", err)
		os.Exit(1)
	}
	cfg := loadProjectConfig(root)

	st := openProjectStore(root, cfg)
	defer st.Close()

	if err := st.ClearEmbeddings(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot clear embeddings: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Cleared all stored embeddings. Run 'tia embed' to regenerate them.")
}
