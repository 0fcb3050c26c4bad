// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/tia/pkg/parser"
	"github.com/kraklabs/tia/pkg/pipeline"
)

// runBuildIndex executes the 'build-index' CLI command, running
// stages 1 through 7 against the configured test tree.
//
// Flags:
//   - --test-repo: override the test tree root from project.yaml
//   - --artifact-dir: where to write per-stage JSON artifacts
//   - --debug: enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (empty disables)
func runBuildIndex(args []string, configPath string) {
	fs := flag.NewFlagSet("build-index", flag.ExitOnError)
	testRepo := fs.String("test-repo", "", "Path to the test tree (overrides project.yaml)")
	artifactDir := fs.String("artifact-dir", "", "Directory for per-stage JSON artifacts (default: .tia/artifacts)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: tia build-index [options]

Builds the fact store from the test tree configured in .tia/project.yaml.

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
	logger := newLogger(*debug)

	testRoot := filepath.Join(root, cfg.TestRepo)
	if *testRepo != "" {
		testRoot = *testRepo
	}
	artifacts := filepath.Join(root, ".tia", "artifacts")
	if *artifactDir != "" {
		artifacts = *artifactDir
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	st := openProjectStore(root, cfg)
	defer st.Close()

	reg := parser.NewDefaultRegistry()
	p := pipeline.New(st, reg, testRoot, filepath.Join(root, cfg.SourceRoot), artifacts, logger)

	logger.Info("build_index.starting", "project_id", cfg.ProjectID, "test_root", testRoot)

	result, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: build-index failed: %v\n", err)
		os.Exit(1)
	}

	printBuildIndexResult(result)
}

func printBuildIndexResult(result pipeline.Result) {
	fmt.Println()
	fmt.Println("=== Build Index Complete ===")
	fmt.Printf("Files Scanned:      %d\n", result.FilesScanned)
	fmt.Printf("Parse Errors:       %d\n", result.ParseErrors)
	fmt.Printf("Tests Registered:   %d\n", result.TestsRegistered)
	fmt.Printf("Dependency Rows:    %d\n", result.DependencyRows)
	fmt.Printf("Function Map Rows:  %d\n", result.FunctionMapRows)
	fmt.Printf("Reverse Index Rows: %d\n", result.ReverseIndexRows)
	fmt.Printf("Structure Rows:     %d\n", result.StructureRows)
	fmt.Printf("Framework:          %s (%s confidence)\n", result.Framework.Primary, result.Framework.Confidence)
	fmt.Println()
}
