// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the seven idempotent, replayable stages
// that turn a test tree into the fact store's five normalized tables
// plus one JSON artifact per stage.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is the envelope every stage writes: {generated_at, data}.
type Artifact struct {
	GeneratedAt string `json:"generated_at"`
	Data        any    `json:"data"`
}

// artifactNames maps a stage number to its JSON artifact file name.
var artifactNames = map[int]string{
	1: "01_scan.json",
	2: "02_framework.json",
	3: "03_registry.json",
	4: "04_dependencies.json",
	5: "05_function_calls.json",
	6: "06_reverse_index.json",
	7: "07_metadata.json",
	8: "08_embeddings.json",
}

// writeArtifact persists data under dir/artifactNames[stage], stamped
// with the current time.
func writeArtifact(dir string, stage int, data any) error {
	name, ok := artifactNames[stage]
	if !ok {
		return fmt.Errorf("pipeline: no artifact name registered for stage %d", stage)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pipeline: creating artifact dir: %w", err)
	}
	buf, err := json.MarshalIndent(Artifact{GeneratedAt: time.Now().UTC().Format(time.RFC3339), Data: data}, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: encoding artifact %q: %w", name, err)
	}
	return os.WriteFile(filepath.Join(dir, name), buf, 0o644)
}

// readArtifact loads a previously written artifact's Data payload into
// out. Used by stages that read an upstream stage's output rather than
// re-deriving it from the fact store.
func readArtifact(dir string, stage int, out any) error {
	name, ok := artifactNames[stage]
	if !ok {
		return fmt.Errorf("pipeline: no artifact name registered for stage %d", stage)
	}
	path := filepath.Join(dir, name)
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var env struct {
		GeneratedAt string          `json:"generated_at"`
		Data        json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(buf, &env); err != nil {
		return fmt.Errorf("pipeline: decoding artifact %q: %w", name, err)
	}
	return json.Unmarshal(env.Data, out)
}

// ArtifactPath returns the on-disk path for a stage's artifact under dir.
func ArtifactPath(dir string, stage int) string {
	return filepath.Join(dir, artifactNames[stage])
}
