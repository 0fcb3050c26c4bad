// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads .tia/project.yaml and applies environment
// variable overrides on top of it (spec §6 "Environment
// configuration"), mirroring the teacher's .cie/project.yaml loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full set of settings a tia invocation needs: where the
// test tree and production source live, which fact-store driver and
// vector backend to use, and how to reach the embedding provider.
type Config struct {
	ProjectID string `yaml:"project_id"`
	TestRepo  string `yaml:"test_repo"`
	SourceRoot string `yaml:"source_root"`

	Store StoreConfig `yaml:"store"`

	VectorBackend   string `yaml:"vector_backend"` // "relational" or "embedded" (spec's chromadb/pgvector slots)
	EmbeddingProvider string `yaml:"embedding_provider"`
	EmbeddingBaseURL  string `yaml:"embedding_base_url"`
	EmbeddingModel    string `yaml:"embedding_model"`
}

// StoreConfig names the fact store's connection, standing in for the
// spec's illustrative DB_HOST/DB_PORT/DB_NAME/DB_SCHEMA cluster with
// the single DSN this system's sqlite-backed store actually needs.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "pure" or "cgo"
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

// DefaultConfig mirrors the teacher's createInitConfig defaults:
// reasonable values a fresh `tia init` can write out unmodified.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID:  projectID,
		TestRepo:   "tests",
		SourceRoot: ".",
		Store: StoreConfig{
			Driver: "pure",
			DSN:    filepath.Join(".tia", "index.db"),
			Schema: "planon1",
		},
		VectorBackend:     "relational",
		EmbeddingProvider: "mock",
		EmbeddingBaseURL:  "http://localhost:11434",
		EmbeddingModel:    "nomic-embed-text",
	}
}

// ConfigDir returns the .tia directory under root.
func ConfigDir(root string) string {
	return filepath.Join(root, ".tia")
}

// ConfigPath returns the project.yaml path under root, mirroring the
// teacher's ConfigPath(cwd) helper.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), "project.yaml")
}

// Load reads .tia/project.yaml under root and applies environment
// overrides. A missing file is not an error: the caller gets
// DefaultConfig with env overrides applied, so `select`/`build-index`
// work against an un-initialized project using only environment
// configuration (spec §6).
func Load(root string) (*Config, error) {
	cfg := DefaultConfig(filepath.Base(root))

	buf, err := os.ReadFile(ConfigPath(root))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", ConfigPath(root), err)
		}
	case os.IsNotExist(err):
		// fall through with defaults
	default:
		return nil, fmt.Errorf("config: reading %s: %w", ConfigPath(root), err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to root/.tia/project.yaml, creating the directory if
// needed.
func Save(root string, cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(root), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", ConfigDir(root), err)
	}
	buf, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	return os.WriteFile(ConfigPath(root), buf, 0o644)
}

// applyEnvOverrides lays environment variables over cfg, following
// spec §6's illustrative name list: DB_* for the store, VECTOR_BACKEND,
// EMBEDDING_PROVIDER, and a <PROVIDER>_BASE_URL/<PROVIDER>_EMBEDDING_MODEL
// pair for the active embedding provider.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DB_SCHEMA"); v != "" {
		cfg.Store.Schema = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("VECTOR_BACKEND"); v != "" {
		cfg.VectorBackend = v
	}
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.EmbeddingProvider = v
	}
	if v := os.Getenv(envPrefix(cfg.EmbeddingProvider) + "_BASE_URL"); v != "" {
		cfg.EmbeddingBaseURL = v
	}
	if v := os.Getenv(envPrefix(cfg.EmbeddingProvider) + "_EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
}

func envPrefix(provider string) string {
	out := make([]byte, len(provider))
	for i := 0; i < len(provider); i++ {
		c := provider[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
