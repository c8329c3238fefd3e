// Package services – InheritanceResolver
//
// This file implements the read-time merge of shared and individual content.
// For one (domain, domain key, individual) it loads both tiers of active
// entries, collapses same-tier duplicates, lets individual entries replace
// shared entries with the same override key, and returns individual entries
// first followed by the surviving shared ones, each tier in authoring order.

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OverrideKey derives the logical key under which an individual entry
// replaces a shared one.
type OverrideKey func(e *domain.ContentEntry) string

// KeyDomainTitle matches entries with the same domain and title.
func KeyDomainTitle(e *domain.ContentEntry) string { return string(e.Domain) + "\x00" + e.Title }

// KeyTitle matches entries with the same title in any domain.
func KeyTitle(e *domain.ContentEntry) string { return e.Title }

// FoldCase wraps k so that keys compare under Unicode case folding.
func FoldCase(k OverrideKey) OverrideKey {
	return func(e *domain.ContentEntry) string {
		return cases.Fold().String(k(e))
	}
}

// OverrideKeyByName maps the OVERRIDE_KEY setting to an OverrideKey.
func OverrideKeyByName(name string, fold bool) (OverrideKey, error) {
	var k OverrideKey
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "domain_title":
		k = KeyDomainTitle
	case "title":
		k = KeyTitle
	default:
		return nil, fmt.Errorf("unknown override key %q", name)
	}
	if fold {
		k = FoldCase(k)
	}
	return k, nil
}

// Resolution is the outcome of one inheritance walk.
type Resolution struct {
	// Entries is the effective set: individual entries, then shared ones.
	Entries []domain.ContentEntry `json:"entries"`
	// Overridden lists shared entry ids replaced by an individual entry.
	Overridden []string `json:"overridden"`
	// Duplicates lists ids dropped because a later entry in the same tier
	// had the same override key.
	Duplicates []string `json:"duplicates"`
}

// InheritanceResolver computes the content visible to one individual.
type InheritanceResolver struct {
	DB  *gorm.DB
	Key OverrideKey
}

// NewInheritanceResolver constructs a resolver. A nil key defaults to
// KeyDomainTitle.
func NewInheritanceResolver(db *gorm.DB, key OverrideKey) *InheritanceResolver {
	if key == nil {
		key = KeyDomainTitle
	}
	return &InheritanceResolver{DB: db, Key: key}
}

// ResolveForIndividual returns the effective entries for individual.
func (r *InheritanceResolver) ResolveForIndividual(ctx context.Context, d domain.Domain, domainKey, individual string) ([]domain.ContentEntry, error) {
	res, err := r.Resolve(ctx, d, domainKey, individual)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// Resolve is ResolveForIndividual with the override bookkeeping. An empty
// individual yields the shared tier alone.
func (r *InheritanceResolver) Resolve(ctx context.Context, d domain.Domain, domainKey, individual string) (*Resolution, error) {
	tr := otel.Tracer("services/InheritanceResolver")
	ctx, span := tr.Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("domain", string(d)),
		attribute.String("domain_key", domainKey),
		attribute.String("individual", individual),
	))
	defer span.End()

	if !d.Valid() {
		return nil, invalid("domain", "unknown domain \""+string(d)+"\"")
	}
	if strings.TrimSpace(domainKey) == "" {
		return nil, invalid("domain_key", "is required")
	}
	key := r.Key
	if key == nil {
		key = KeyDomainTitle
	}

	shared, err := repo.ListActiveByScope(ctx, r.DB, repo.ScopeFilter{
		Domain: d, DomainKey: domainKey, Level: domain.ScopeShared,
	})
	if err != nil {
		return nil, err
	}
	var individuals []domain.ContentEntry
	if individual != "" {
		individuals, err = repo.ListActiveByScope(ctx, r.DB, repo.ScopeFilter{
			Domain: d, DomainKey: domainKey, Level: domain.ScopeIndividual, SubKey: &individual,
		})
		if err != nil {
			return nil, err
		}
	}

	res := &Resolution{Overridden: []string{}, Duplicates: []string{}}
	shared = dedupeTier(shared, key, res, d, domainKey, domain.ScopeShared)
	individuals = dedupeTier(individuals, key, res, d, domainKey, domain.ScopeIndividual)

	overrides := make(map[string]struct{}, len(individuals))
	for i := range individuals {
		overrides[key(&individuals[i])] = struct{}{}
	}
	res.Entries = make([]domain.ContentEntry, 0, len(individuals)+len(shared))
	res.Entries = append(res.Entries, individuals...)
	for i := range shared {
		if _, hit := overrides[key(&shared[i])]; hit {
			res.Overridden = append(res.Overridden, shared[i].ID)
			continue
		}
		res.Entries = append(res.Entries, shared[i])
	}

	span.SetAttributes(
		attribute.Int("entries", len(res.Entries)),
		attribute.Int("overridden", len(res.Overridden)),
	)
	return res, nil
}

// dedupeTier keeps, for every override key, only the last entry in tier
// order; the survivor stays at its own position. Dropped ids are recorded
// and logged.
func dedupeTier(tier []domain.ContentEntry, key OverrideKey, res *Resolution, d domain.Domain, domainKey string, level domain.ScopeLevel) []domain.ContentEntry {
	if len(tier) < 2 {
		return tier
	}
	last := make(map[string]int, len(tier))
	for i := range tier {
		last[key(&tier[i])] = i
	}
	if len(last) == len(tier) {
		return tier
	}
	out := make([]domain.ContentEntry, 0, len(last))
	for i := range tier {
		k := key(&tier[i])
		if last[k] == i {
			out = append(out, tier[i])
			continue
		}
		winner := tier[last[k]].ID
		res.Duplicates = append(res.Duplicates, tier[i].ID)
		log.Warn().
			Str("domain", string(d)).
			Str("domain_key", domainKey).
			Str("scope_level", string(level)).
			Str("title", tier[i].Title).
			Str("dropped_entry_id", tier[i].ID).
			Str("entry_id", winner).
			Msg("duplicate override key within scope tier; later entry wins")
	}
	return out
}
