package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/jubileesolutions/overlay-backend/internal/config"
)

// OpenAI is a Generator backed by the OpenAI embeddings endpoint (or any
// API-compatible server reachable through BaseURL).
type OpenAI struct {
	client   *openai.Client
	model    string
	dim      int
	batchMax int
}

// NewOpenAI builds an OpenAI generator from configuration.
func NewOpenAI(cfg config.EmbeddingConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
	}
	dim, err := DimensionFor(cfg.Model, cfg.Dim)
	if err != nil {
		return nil, err
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	batchMax := cfg.BatchMax
	if batchMax < 1 {
		batchMax = 256
	}
	log.Info().Str("model", cfg.Model).Int("dim", dim).Msg("embedding provider initialized")
	return &OpenAI{
		client:   openai.NewClientWithConfig(oc),
		model:    cfg.Model,
		dim:      dim,
		batchMax: batchMax,
	}, nil
}

// Dimension implements Generator.
func (o *OpenAI) Dimension() int { return o.dim }

// Model implements Generator.
func (o *OpenAI) Model() string { return o.model }

// Embed implements Generator.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := o.embed(ctx, "embed", []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch implements Generator. Inputs are sent in provider requests of at
// most batchMax texts; any failing request fails the whole call.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += o.batchMax {
		end := min(start+o.batchMax, len(texts))
		vecs, err := o.embed(ctx, "embed_batch", texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (o *OpenAI) embed(ctx context.Context, op string, texts []string) ([][]float32, error) {
	clean := make([]string, len(texts))
	for i, s := range texts {
		// the API rejects empty strings
		if strings.TrimSpace(s) == "" {
			s = " "
		}
		clean[i] = s
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: clean,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, &ProviderError{Op: op, Model: o.model, Err: err}
	}
	if len(resp.Data) != len(clean) {
		return nil, &ProviderError{Op: "validate", Model: o.model,
			Err: fmt.Errorf("requested %d embeddings, got %d", len(clean), len(resp.Data))}
	}

	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, &ProviderError{Op: "validate", Model: o.model,
				Err: fmt.Errorf("invalid or duplicate embedding index %d", d.Index)}
		}
		if len(d.Embedding) != o.dim {
			return nil, &ProviderError{Op: "validate", Model: o.model,
				Err: fmt.Errorf("embedding %d has dimension %d, want %d", d.Index, len(d.Embedding), o.dim)}
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
