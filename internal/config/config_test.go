// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/internal/config"
)

func TestLoadFallsBackToDefaultsWhenUnconfigured(t *testing.T) {
	root := t.TempDir()
	cfg, err := config.Load(root)
	require.NoError(t, err)
	require.Equal(t, "relational", cfg.VectorBackend)
	require.Equal(t, "planon1", cfg.Store.Schema)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig("demo")
	cfg.Store.Schema = "custom_schema"
	require.NoError(t, config.Save(root, cfg))

	loaded, err := config.Load(root)
	require.NoError(t, err)
	require.Equal(t, "custom_schema", loaded.Store.Schema)
	require.Equal(t, "demo", loaded.ProjectID)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, config.Save(root, config.DefaultConfig("demo")))

	t.Setenv("DB_SCHEMA", "env_schema")
	os.Unsetenv("VECTOR_BACKEND")

	cfg, err := config.Load(root)
	require.NoError(t, err)
	require.Equal(t, "env_schema", cfg.Store.Schema)
}
