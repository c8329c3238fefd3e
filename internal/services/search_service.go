package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jubileesolutions/overlay-backend/internal/embedding"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"
)

// Search limits.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	MaxQueryLength     = 4000
)

// SearchService runs similarity queries over active indexed entries.
type SearchService struct {
	Embedder embedding.Generator
	Index    vectorindex.Index
}

// NewSearchService wires a search service.
func NewSearchService(emb embedding.Generator, idx vectorindex.Index) *SearchService {
	return &SearchService{Embedder: emb, Index: idx}
}

// Search embeds query and returns the closest active points matching f.
// Inactive points are never returned, whatever f.ActiveOnly says.
func (s *SearchService) Search(ctx context.Context, query string, f vectorindex.Filter, limit int) ([]vectorindex.Match, error) {
	ctx, span := otel.Tracer("services/SearchService").Start(ctx, "Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query", "must not be empty")
	}
	if len(query) > MaxQueryLength {
		return nil, invalid("query", "is too long")
	}
	if f.Domain != "" && !f.Domain.Valid() {
		return nil, invalid("domain", "is not a known domain")
	}
	if f.ScopeLevel != "" && !f.ScopeLevel.Valid() {
		return nil, invalid("scope_level", "must be shared or individual")
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}
	span.SetAttributes(attribute.Int("search.limit", limit))

	vec, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	f.ActiveOnly = true
	return s.Index.Search(ctx, vec, f, limit)
}
