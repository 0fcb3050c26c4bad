// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/tia/pkg/model"
)

const (
	// DefaultBatchSize is both the embedding request batch size and the
	// worker-pool concurrency: a small pool, default concurrency equal
	// to the batch size.
	DefaultBatchSize = 10
)

// Input is one test's worth of context the generator needs to build
// its descriptive text and persist the result.
type Input struct {
	Test       model.Test
	Metadata   model.TestMetadata
	Mappings   []model.FunctionMapping
	ModuleName string
}

// Generator batches tests, builds each one's descriptive text, calls a
// Provider, and stores the resulting vectors through a VectorBackend,
// using golang.org/x/sync/errgroup for the batch worker pool.
type Generator struct {
	provider  Provider
	backend   VectorBackend
	batchSize int
}

// NewGenerator builds a Generator. batchSize <= 0 uses DefaultBatchSize.
func NewGenerator(provider Provider, backend VectorBackend, batchSize int) *Generator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Generator{provider: provider, backend: backend, batchSize: batchSize}
}

// Result summarizes one Run.
type Result struct {
	Stored int
	Failed int
}

// Run embeds every input and stores the vectors, batching requests and
// running up to batchSize batches concurrently. A failed text within a
// batch is recorded as failed and never blocks the rest of the batch:
// failures surface per-text and are skipped, with no partial writes.
func (g *Generator) Run(ctx context.Context, inputs []Input) (Result, error) {
	batches := chunkInputs(inputs, g.batchSize)

	var mu sync.Mutex
	total := Result{}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.batchSize)

	for _, batch := range batches {
		batch := batch
		eg.Go(func() error {
			texts := make([]string, len(batch))
			tests := make([]model.Test, len(batch))
			for i, in := range batch {
				texts[i] = BuildText(in.Test, in.Metadata, in.Mappings, in.ModuleName)
				tests[i] = in.Test
			}

			vectors, err := g.provider.Embed(ctx, texts)
			if err != nil {
				mu.Lock()
				total.Failed += len(batch)
				mu.Unlock()
				return nil // a provider-level failure counts the whole batch as failed; not fatal here
			}

			stored, failed, err := g.backend.Store(tests, vectors)
			if err != nil {
				return err
			}
			mu.Lock()
			total.Stored += stored
			total.Failed += failed
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

func chunkInputs(inputs []Input, size int) [][]Input {
	var out [][]Input
	for i := 0; i < len(inputs); i += size {
		end := i + size
		if end > len(inputs) {
			end = len(inputs)
		}
		out = append(out, inputs[i:end])
	}
	return out
}
