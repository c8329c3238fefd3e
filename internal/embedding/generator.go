// Package embedding turns entry text into vectors through an embedding
// provider. The compiler and the search service depend only on Generator;
// OpenAI is the production implementation.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Generator produces fixed-dimension vectors for text.
type Generator interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the length every returned vector has.
	Dimension() int
	// Model names the provider model.
	Model() string
}

// ErrProvider marks every failure coming out of a Generator.
var ErrProvider = errors.New("embedding provider error")

// ProviderError describes a failed provider call or an invalid response.
type ProviderError struct {
	Op    string // "embed", "embed_batch", "validate"
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding %s (%s): %v", e.Op, e.Model, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }

// modelDims lists the dimensions of the known OpenAI embedding models.
var modelDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
	"text-embedding-3-large": 3072,
}

// DimensionFor returns the configured override when positive, otherwise the
// known dimension of model. It fails for unknown models without override.
func DimensionFor(model string, override int) (int, error) {
	if override > 0 {
		return override, nil
	}
	if d, ok := modelDims[model]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown embedding model %q: set EMBEDDING_DIM", model)
}
