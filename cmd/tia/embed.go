// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/tia/internal/config"
	"github.com/kraklabs/tia/pkg/embedding"
	"github.com/kraklabs/tia/pkg/parser"
	"github.com/kraklabs/tia/pkg/store"
)

// embeddingDimension is the vector width every provider and backend in
// a given store must agree on.
const embeddingDimension = 768

// runEmbed executes the 'embed' CLI command, generating and storing a
// vector embedding for every test in the fact store.
//
// Flags:
//   - --backend: relational (default, cosine similarity over rows) or
//     embedded (sqlite-vec, requires a CGO build)
//   - --batch-size: embedding request batch size / concurrency
func runEmbed(args []string, configPath string) {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	backendFlag := fs.String("backend", "", "Vector backend: relational or embedded (overrides project.yaml)")
	batchSize := fs.Int("batch-size", 0, "Embedding batch size / concurrency (default: 10)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia embed [options]

Generates and stores embeddings for every test currently in the fact store.

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
	cfg := loadProjectConfig(root)

	backendName := cfg.VectorBackend
	if *backendFlag != "" {
		backendName = *backendFlag
	}

	st := openProjectStore(root, cfg)
	defer st.Close()

	ctx := context.Background()

	provider := embeddingProvider(cfg)

	backend, err := embeddingBackend(backendName, st, embeddingDimension)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !backend.IsAvailable() {
		fmt.Fprintf(os.Stderr, "Warning: vector backend %q is unavailable, falling back to relational\n", backendName)
		backend = embedding.NewRelationalBackend(st)
	}

	tests, err := st.AllTests(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot list tests: %v\n", err)
		os.Exit(1)
	}
	if len(tests) == 0 {
		fmt.Println("No tests in the fact store. Run 'tia build-index' first.")
		return
	}

	reg := parser.NewDefaultRegistry()
	sourceRoot := filepath.Join(root, cfg.SourceRoot)

	inputs := make([]embedding.Input, 0, len(tests))
	for _, t := range tests {
		mappings, err := st.FunctionMappingsForTest(ctx, t.TestID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot load function mappings for %s: %v\n", t.TestID, err)
		}
		meta, _, err := st.Metadata(ctx, t.TestID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot load metadata for %s: %v\n", t.TestID, err)
		}
		inputs = append(inputs, embedding.Input{
			Test:       t,
			Metadata:   meta,
			Mappings:   mappings,
			ModuleName: resolveModuleName(reg, t.FilePath, sourceRoot),
		})
	}

	gen := embedding.NewGenerator(provider, backend, *batchSize)
	result, err := gen.Run(ctx, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: embedding run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=== Embed Complete ===")
	fmt.Printf("Backend: %s\n", backendName)
	fmt.Printf("Stored:  %d\n", result.Stored)
	fmt.Printf("Failed:  %d\n", result.Failed)
}

// embeddingProvider builds the configured embedding provider, falling
// back to the deterministic mock provider for any unrecognized name so
// that 'tia embed' always has something to run against.
func embeddingProvider(cfg *config.Config) embedding.Provider {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, embeddingDimension)
	default:
		return embedding.NewMockProvider(embeddingDimension)
	}
}

// embeddingBackend builds the configured vector backend. "embedded"
// requires the sqlite-vec CGO extension; an unknown name is treated as
// "relational".
func embeddingBackend(name string, st *store.Store, dim int) (embedding.VectorBackend, error) {
	if name == "embedded" {
		backend, err := embedding.NewEmbeddedBackend(st, dim)
		if err != nil {
			return nil, fmt.Errorf("embedded vector backend: %w", err)
		}
		return backend, nil
	}
	return embedding.NewRelationalBackend(st), nil
}

func resolveModuleName(reg *parser.Registry, path, root string) string {
	if lang, ok := reg.DetectLanguage(path); ok {
		return lang.ResolveModuleName(path, root)
	}
	return ""
}
