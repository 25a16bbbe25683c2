// Package embedding is the 4.B embedding provider adapter: text to
// fixed-dimension vector, one text at a time or in a batch. Calls are
// not retried: a provider rate-limit response is returned to the caller
// as EmbedRateLimited.
package embedding

import (
	"context"
	"fmt"

	"ragforge/internal/ragerr"
)

// Provider is the embedding surface. Implementations must reject text
// whose resulting vector would not match the index's configured
// dimension.
type Provider interface {
	Embed(ctx context.Context, text string, indexName string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, indexName string) ([][]float32, error)
}

// IndexDimensions maps an index name to its fixed dimension, resolved
// from the config file's `entities[].vectorIndexes` section.
type IndexDimensions map[string]int

// validateDimension enforces the 4.B contract once, shared by every
// backend so a new provider can't silently skip the check.
func validateDimension(dims IndexDimensions, indexName string, vector []float32) error {
	want, ok := dims[indexName]
	if !ok {
		return ragerr.New(ragerr.IndexMissing, indexName, nil)
	}
	if len(vector) != want {
		return ragerr.New(ragerr.EmbedDimensionMismatch, indexName,
			fmt.Errorf("got %d dims, index requires %d", len(vector), want))
	}
	return nil
}

const maxInputChars = 36000 // conservative bound under typical provider token ceilings

func validateInputSize(text string) error {
	if len(text) > maxInputChars {
		return ragerr.New(ragerr.EmbedInputTooLarge, "embedding.embed",
			fmt.Errorf("input is %d chars, limit %d", len(text), maxInputChars))
	}
	return nil
}
