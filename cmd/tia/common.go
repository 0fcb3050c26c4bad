// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/tia/internal/config"
	"github.com/kraklabs/tia/pkg/store"
)

// resolveRoot returns the project root a command should operate
// against: configPath if set (a directory containing .tia/project.yaml),
// otherwise the current working directory.
func resolveRoot(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return os.Getwd()
}

// loadProjectConfig loads .tia/project.yaml from root, exiting the
// process on failure the same way the teacher's LoadConfig call sites
// do.
func loadProjectConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openProjectStore opens root's fact store, creating its schema if
// this is the first run.
func openProjectStore(root string, cfg *config.Config) *store.Store {
	dsn := cfg.Store.DSN
	if !filepath.IsAbs(dsn) {
		dsn = filepath.Join(root, dsn)
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot create store directory: %v\n", err)
			os.Exit(1)
		}
	}

	driver := store.DriverPure
	if cfg.Store.Driver == string(store.DriverCGO) {
		driver = store.DriverCGO
	}

	st, err := store.Open(driver, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open store: %v\n", err)
		os.Exit(1)
	}
	if err := st.EnsureSchema(context.TODO()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot ensure schema: %v\n", err)
		os.Exit(1)
	}
	return st
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
