// Package services – OverlayService
//
// This file implements OverlayService, the repository of content entries.
// It validates input schemas, keeps content_hash and metadata_hash current on
// every write, enforces the status lifecycle, and appends one audit row per
// state-changing operation in the same transaction as the change itself.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the entry id where one applies.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HardDeletePrefix prefixes the entry id to form the hard-delete
// confirmation token.
const HardDeletePrefix = "DELETE_PERMANENTLY_"

// allowedTransitions lists the legal status changes.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusDraft:  {domain.StatusActive, domain.StatusDeprecated},
	domain.StatusActive: {domain.StatusDeprecated},
}

// OverlayService owns content entries and their audit trail.
type OverlayService struct {
	DB *gorm.DB

	// Now is the clock used for timestamps; tests may replace it.
	Now func() time.Time
}

// NewOverlayService constructs an OverlayService over db.
func NewOverlayService(db *gorm.DB) *OverlayService {
	return &OverlayService{DB: db, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *OverlayService) tracer() trace.Tracer { return otel.Tracer("services/OverlayService") }

func (s *OverlayService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// Create validates in, computes both hashes, and persists a new entry with
// a "created" audit row.
func (s *OverlayService) Create(ctx context.Context, in CreateEntryInput) (*domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "Create")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out *domain.ContentEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.insert(ctx, tx, in)
		out = e
		return err
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entry.id", out.ID))
	return out, nil
}

// insert builds and stores the entry described by a validated input.
func (s *OverlayService) insert(ctx context.Context, tx *gorm.DB, in CreateEntryInput) (*domain.ContentEntry, error) {
	now := s.now()
	e := &domain.ContentEntry{
		ID:      uuid.NewString(),
		Title:   in.Title,
		Status:  domain.StatusDraft,
		Content: in.Content,
		Domain:  domain.Domain(in.Domain),
		Scope: domain.Scope{
			Level:     domain.ScopeLevel(in.Scope.Level),
			DomainKey: in.Scope.DomainKey,
			SubKey:    in.Scope.SubKey,
		},
		Associations:   datatypes.NewJSONType(in.Associations.toDomain()),
		Guardrails:     domain.Guardrails{Level: domain.GuardrailMedium},
		Version:        domain.Version{Major: 1, Minor: 0},
		AuthoringNotes: in.AuthoringNotes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Status != "" {
		e.Status = domain.Status(in.Status)
	}
	if in.Guardrails != nil {
		e.Guardrails.Level = domain.GuardrailLevel(in.Guardrails.Level)
	}
	if in.Version != nil {
		e.Version = domain.Version{Major: in.Version.Major, Minor: in.Version.Minor}
	}
	e.Rehash()

	if err := repo.CreateEntry(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, e.ID, domain.AuditCreated, nil, &e.ContentHash,
		map[string]any{"metadata_hash": e.MetadataHash, "status": e.Status}); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns the entry, or nil and no error when it does not exist.
func (s *OverlayService) Get(ctx context.Context, id string) (*domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "Get", trace.WithAttributes(attribute.String("entry.id", id)))
	defer span.End()

	e, err := repo.GetEntry(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

// ListByScope returns the active entries of d under domainKey. A nil subKey
// matches every sub-scope.
func (s *OverlayService) ListByScope(ctx context.Context, d domain.Domain, domainKey string, subKey *string) ([]domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "ListByScope", trace.WithAttributes(
		attribute.String("domain", string(d)),
		attribute.String("domain_key", domainKey),
	))
	defer span.End()

	if !d.Valid() {
		return nil, invalid("domain", "unknown domain \""+string(d)+"\"")
	}
	if strings.TrimSpace(domainKey) == "" {
		return nil, invalid("domain_key", "is required")
	}
	return repo.ListActiveByScope(ctx, s.DB, repo.ScopeFilter{Domain: d, DomainKey: domainKey, SubKey: subKey})
}

// ListByScopeStatus is ListByScope over the given statuses instead of
// active only. No statuses means any status.
func (s *OverlayService) ListByScopeStatus(ctx context.Context, d domain.Domain, domainKey string, subKey *string, statuses ...domain.Status) ([]domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "ListByScopeStatus", trace.WithAttributes(
		attribute.String("domain", string(d)),
		attribute.String("domain_key", domainKey),
	))
	defer span.End()

	if !d.Valid() {
		return nil, invalid("domain", "unknown domain \""+string(d)+"\"")
	}
	if strings.TrimSpace(domainKey) == "" {
		return nil, invalid("domain_key", "is required")
	}
	return repo.ListByScope(ctx, s.DB, repo.ScopeFilter{Domain: d, DomainKey: domainKey, SubKey: subKey}, statuses...)
}

// ListAll returns every entry.
func (s *OverlayService) ListAll(ctx context.Context) ([]domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "ListAll")
	defer span.End()
	return repo.ListEntries(ctx, s.DB)
}

// ListActive returns every active entry.
func (s *OverlayService) ListActive(ctx context.Context) ([]domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "ListActive")
	defer span.End()
	return repo.ListActiveEntries(ctx, s.DB)
}

// ListPage returns a page of entries and the total count. It applies
// defaults for invalid page/pageSize.
func (s *OverlayService) ListPage(ctx context.Context, activeOnly bool, page, pageSize int) ([]domain.ContentEntry, int64, error) {
	ctx, span := s.tracer().Start(ctx, "ListPage", trace.WithAttributes(
		attribute.Bool("active_only", activeOnly),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountEntries(ctx, s.DB, activeOnly)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ContentEntry{}, 0, nil
	}
	items, err := repo.ListEntriesPage(ctx, s.DB, activeOnly, (page-1)*pageSize, pageSize)
	return items, total, err
}

// UpdateMetadata merges the editable metadata fields, recomputes
// metadata_hash, and leaves content_hash untouched.
func (s *OverlayService) UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "UpdateMetadata", trace.WithAttributes(attribute.String("entry.id", id)))
	defer span.End()

	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *gorm.DB, e *domain.ContentEntry) error {
		before := e.MetadataHash
		if patch.Title != nil {
			e.Title = *patch.Title
		}
		if patch.Associations != nil {
			e.Associations = datatypes.NewJSONType(patch.Associations.toDomain())
		}
		if patch.Guardrails != nil {
			e.Guardrails.Level = domain.GuardrailLevel(patch.Guardrails.Level)
		}
		if patch.AuthoringNotes != nil {
			e.AuthoringNotes = *patch.AuthoringNotes
		}
		e.MetadataHash = domain.MetadataHash(e.Title, e.Domain, e.Scope, e.Assoc(), e.Guardrails)
		e.UpdatedAt = s.now()
		if err := repo.SaveEntry(ctx, tx, e); err != nil {
			return err
		}
		return s.audit(ctx, tx, e.ID, domain.AuditMetadataUpdated, &before, &e.MetadataHash, nil)
	})
}

// UpdateContent replaces the body and recomputes content_hash. It is the
// only operation that changes content_hash. Identical content is a no-op.
func (s *OverlayService) UpdateContent(ctx context.Context, id, content string) (*domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "UpdateContent", trace.WithAttributes(attribute.String("entry.id", id)))
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return nil, invalid("content", "is required")
	}
	return s.mutate(ctx, id, func(tx *gorm.DB, e *domain.ContentEntry) error {
		if e.Content == content {
			return nil
		}
		before := e.ContentHash
		e.Content = content
		e.ContentHash = domain.ContentHash(content)
		e.UpdatedAt = s.now()
		if err := repo.SaveEntry(ctx, tx, e); err != nil {
			return err
		}
		return s.audit(ctx, tx, e.ID, domain.AuditContentUpdated, &before, &e.ContentHash, nil)
	})
}

// UpdateStatus moves the entry along the lifecycle. Setting the current
// status again is a no-op; any other transition not in allowedTransitions
// fails with ErrInvalidTransition.
func (s *OverlayService) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "UpdateStatus", trace.WithAttributes(
		attribute.String("entry.id", id),
		attribute.String("status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return nil, invalid("status", "must be one of: draft, active, deprecated")
	}
	return s.mutate(ctx, id, func(tx *gorm.DB, e *domain.ContentEntry) error {
		from := e.Status
		if from == status {
			return nil
		}
		if !canTransition(from, status) {
			return &ValidationError{Field: "status",
				Reason: "cannot change status from " + string(from) + " to " + string(status), Err: ErrInvalidTransition}
		}
		e.Status = status
		e.UpdatedAt = s.now()
		if err := repo.SaveEntry(ctx, tx, e); err != nil {
			return err
		}
		return s.audit(ctx, tx, e.ID, domain.AuditStatusChanged, nil, nil,
			map[string]any{"from": from, "to": status})
	})
}

// SoftDelete deprecates the entry, keeping the row. Deprecated entries are
// left as they are.
func (s *OverlayService) SoftDelete(ctx context.Context, id string) error {
	ctx, span := s.tracer().Start(ctx, "SoftDelete", trace.WithAttributes(attribute.String("entry.id", id)))
	defer span.End()

	_, err := s.mutate(ctx, id, func(tx *gorm.DB, e *domain.ContentEntry) error {
		if e.Status == domain.StatusDeprecated {
			return nil
		}
		from := e.Status
		e.Status = domain.StatusDeprecated
		e.UpdatedAt = s.now()
		if err := repo.SaveEntry(ctx, tx, e); err != nil {
			return err
		}
		return s.audit(ctx, tx, e.ID, domain.AuditSoftDeleted, nil, nil, map[string]any{"from": from})
	})
	return err
}

// Supersede creates a replacement entry and deprecates id, linking it to the
// replacement, in a single transaction. When in.Status is empty the new
// entry is active if the old one was, and draft otherwise.
func (s *OverlayService) Supersede(ctx context.Context, id string, in CreateEntryInput) (*domain.ContentEntry, error) {
	ctx, span := s.tracer().Start(ctx, "Supersede", trace.WithAttributes(attribute.String("entry.id", id)))
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	var created *domain.ContentEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := repo.GetEntry(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if old.SupersededBy != nil {
			return &ValidationError{Field: "id", Reason: "already superseded by " + *old.SupersededBy, Err: ErrAlreadySuperseded}
		}

		if in.Status == "" && old.Status == domain.StatusActive {
			in.Status = string(domain.StatusActive)
		}
		created, err = s.insert(ctx, tx, in)
		if err != nil {
			return err
		}

		old.Status = domain.StatusDeprecated
		old.SupersededBy = &created.ID
		old.UpdatedAt = s.now()
		if err := repo.SaveEntry(ctx, tx, old); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, old.ID, domain.AuditSuperseded, nil, nil,
			map[string]any{"superseded_by": created.ID}); err != nil {
			return err
		}
		return s.audit(ctx, tx, created.ID, domain.AuditSupersedes, nil, &created.ContentHash,
			map[string]any{"supersedes": old.ID})
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entry.new_id", created.ID))
	return created, nil
}

// HardDelete physically removes the entry after writing a final audit row.
// token must equal HardDeletePrefix+id; otherwise ErrForbidden is returned
// and nothing changes.
func (s *OverlayService) HardDelete(ctx context.Context, id, token string) error {
	ctx, span := s.tracer().Start(ctx, "HardDelete", trace.WithAttributes(attribute.String("entry.id", id)))
	defer span.End()

	if token != HardDeletePrefix+id {
		return ErrForbidden
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := repo.GetEntry(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := s.audit(ctx, tx, id, domain.AuditHardDeleted, &e.ContentHash, nil,
			map[string]any{"title": e.Title, "status": e.Status, "metadata_hash": e.MetadataHash}); err != nil {
			return err
		}
		return repo.DeleteEntry(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	ev := log.Warn().Str("entry_id", id)
	if a, ok := ActorFrom(ctx); ok {
		ev = ev.Str("actor", a)
	}
	ev.Msg("overlay entry permanently deleted")
	return nil
}

// AuditLog returns the audit rows for id, oldest first. It fails with
// ErrNotFound only when there are no rows and no entry.
func (s *OverlayService) AuditLog(ctx context.Context, id string) ([]domain.AuditLogEntry, error) {
	ctx, span := s.tracer().Start(ctx, "AuditLog", trace.WithAttributes(attribute.String("entry.id", id)))
	defer span.End()

	rows, err := repo.ListAudit(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}
	if _, err := repo.GetEntry(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []domain.AuditLogEntry{}, nil
}

// mutate loads id inside a transaction and applies fn to it. The entry as
// left by fn is returned.
func (s *OverlayService) mutate(ctx context.Context, id string, fn func(tx *gorm.DB, e *domain.ContentEntry) error) (*domain.ContentEntry, error) {
	var out *domain.ContentEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := repo.GetEntry(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(tx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OverlayService) audit(ctx context.Context, tx *gorm.DB, entryID string, action domain.AuditAction, before, after *string, details map[string]any) error {
	row := &domain.AuditLogEntry{
		EntryID:    entryID,
		Action:     action,
		Actor:      actorPtr(ctx),
		BeforeHash: before,
		AfterHash:  after,
		CreatedAt:  s.now(),
	}
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		row.Details = string(b)
	}
	return repo.AppendAudit(ctx, tx, row)
}

func canTransition(from, to domain.Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
