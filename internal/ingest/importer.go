package ingest

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/services"
)

// DefaultThreshold is the Jaccard score at or above which a paragraph is
// treated as a copy of an existing entry.
const DefaultThreshold = 0.8

// EntryStore is the slice of the overlay service the importer needs.
type EntryStore interface {
	Create(ctx context.Context, in services.CreateEntryInput) (*domain.ContentEntry, error)
	ListByScopeStatus(ctx context.Context, d domain.Domain, domainKey string, subKey *string, statuses ...domain.Status) ([]domain.ContentEntry, error)
}

// Target is where imported sections land. Level is derived from SubKey:
// empty means the shared tier.
type Target struct {
	Domain     string `json:"domain"`
	DomainKey  string `json:"domain_key"`
	SubKey     string `json:"sub_key,omitempty"`
	Guardrails string `json:"guardrails,omitempty"`
	Notes      string `json:"authoring_notes,omitempty"`
}

// Skipped is a section left out as a near duplicate.
type Skipped struct {
	Title       string  `json:"title"`
	DuplicateOf string  `json:"duplicate_of"`
	Score       float64 `json:"score"`
}

// Report summarizes one import. In a dry run Created holds the titles that
// would have been created instead of ids.
type Report struct {
	DryRun   bool      `json:"dry_run"`
	Sections int       `json:"sections"`
	Created  []string  `json:"created"`
	Skipped  []Skipped `json:"skipped"`
}

// Importer creates draft entries from Markdown documents.
type Importer struct {
	Store EntryStore

	// Threshold overrides DefaultThreshold when in (0, 1].
	Threshold float64

	// Stopwords are ignored when comparing paragraphs.
	Stopwords []string

	// MinRunes drops short paragraphs; zero keeps the parser default.
	MinRunes int
}

// NewImporter returns an Importer with the default threshold.
func NewImporter(store EntryStore) *Importer {
	return &Importer{Store: store, Threshold: DefaultThreshold}
}

func (im *Importer) tracer() trace.Tracer { return otel.Tracer("ingest/Importer") }

func (im *Importer) threshold() float64 {
	if im.Threshold > 0 && im.Threshold <= 1 {
		return im.Threshold
	}
	return DefaultThreshold
}

// Import parses r and creates one draft entry per section under t. Sections
// whose content is a near duplicate of a draft or active entry in the same
// scope, or of an earlier section of the same document, are skipped. The
// first creation failure stops the import; entries created before it stay.
func (im *Importer) Import(ctx context.Context, r io.Reader, t Target, dryRun bool) (*Report, error) {
	ctx, span := im.tracer().Start(ctx, "Import", trace.WithAttributes(
		attribute.String("domain", t.Domain),
		attribute.String("domain_key", t.DomainKey),
		attribute.Bool("dry_run", dryRun),
	))
	defer span.End()

	if im.Store == nil {
		return nil, errors.New("ingest: no entry store")
	}
	t.Domain = strings.TrimSpace(t.Domain)
	t.DomainKey = strings.TrimSpace(t.DomainKey)
	t.SubKey = strings.TrimSpace(t.SubKey)

	var opts []ParseOption
	if im.MinRunes > 0 {
		opts = append(opts, WithMinRunes(im.MinRunes))
	}
	sections, err := ParseMarkdown(r, opts...)
	if err != nil {
		return nil, err
	}

	var sub *string
	if t.SubKey != "" {
		sub = &t.SubKey
	}
	existing, err := im.Store.ListByScopeStatus(ctx, domain.Domain(t.Domain), t.DomainKey, sub,
		domain.StatusDraft, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	idx := NewLexicalIndex(im.Stopwords...)
	for i := range existing {
		// a nil sub key lists every sub-scope; only the target tier counts
		if sub == nil && existing[i].Scope.Level != domain.ScopeShared {
			continue
		}
		idx.Add(existing[i].ID, existing[i].Content)
	}

	rep := &Report{DryRun: dryRun, Sections: len(sections), Created: []string{}, Skipped: []Skipped{}}
	limit := im.threshold()
	for _, s := range sections {
		if best := idx.TopK(s.Content, 1); len(best) == 1 && best[0].Score >= limit {
			rep.Skipped = append(rep.Skipped, Skipped{Title: s.Title, DuplicateOf: best[0].ID, Score: best[0].Score})
			continue
		}
		if dryRun {
			idx.Add("section:"+s.Title, s.Content)
			rep.Created = append(rep.Created, s.Title)
			continue
		}
		e, err := im.Store.Create(ctx, im.input(t, s))
		if err != nil {
			span.RecordError(err)
			return rep, err
		}
		idx.Add(e.ID, e.Content)
		rep.Created = append(rep.Created, e.ID)
	}

	log.Info().
		Str("domain", t.Domain).
		Str("domain_key", t.DomainKey).
		Bool("dry_run", dryRun).
		Int("sections", rep.Sections).
		Int("created", len(rep.Created)).
		Int("skipped", len(rep.Skipped)).
		Msg("markdown import finished")
	return rep, nil
}

func (im *Importer) input(t Target, s Section) services.CreateEntryInput {
	in := services.CreateEntryInput{
		Title:          s.Title,
		Content:        s.Content,
		Domain:         t.Domain,
		Scope:          services.ScopeInput{Level: string(domain.ScopeShared), DomainKey: t.DomainKey},
		Status:         string(domain.StatusDraft),
		AuthoringNotes: t.Notes,
	}
	if t.SubKey != "" {
		in.Scope.Level = string(domain.ScopeIndividual)
		in.Scope.SubKey = t.SubKey
	}
	if t.Guardrails != "" {
		in.Guardrails = &services.GuardrailsInput{Level: t.Guardrails}
	}
	return in
}
