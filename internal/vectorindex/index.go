// Package vectorindex defines the contract the compiler and search service
// use to talk to the vector index, plus two implementations: a Qdrant REST
// adapter and an in-process index used for tests and local runs.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

// Payload is the metadata stored next to each point. The point ID is the
// entry ID.
type Payload struct {
	EntryID      string                `json:"entry_id"`
	Title        string                `json:"title"`
	Content      string                `json:"content"`
	Domain       domain.Domain         `json:"domain"`
	ScopeLevel   domain.ScopeLevel     `json:"scope_level"`
	DomainKey    string                `json:"scope_domain_key"`
	SubKey       string                `json:"scope_sub_key"`
	Associations domain.Associations   `json:"associations"`
	Guardrail    domain.GuardrailLevel `json:"guardrail_level"`
	Version      domain.Version        `json:"version"`
	Status       domain.Status         `json:"status"`
	ContentHash  string                `json:"content_hash"`
	MetadataHash string                `json:"metadata_hash"`
	Active       bool                  `json:"active"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// PayloadFor builds the payload describing e's current state.
func PayloadFor(e *domain.ContentEntry) Payload {
	return Payload{
		EntryID:      e.ID,
		Title:        e.Title,
		Content:      e.Content,
		Domain:       e.Domain,
		ScopeLevel:   e.Scope.Level,
		DomainKey:    e.Scope.DomainKey,
		SubKey:       e.Scope.SubKey,
		Associations: e.Assoc(),
		Guardrail:    e.Guardrails.Level,
		Version:      e.Version,
		Status:       e.Status,
		ContentHash:  e.ContentHash,
		MetadataHash: e.MetadataHash,
		Active:       e.Status == domain.StatusActive,
		UpdatedAt:    e.UpdatedAt,
	}
}

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Match is one similarity search hit.
type Match struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// Filter restricts Search and Count. Zero fields match everything.
type Filter struct {
	Domain     domain.Domain
	DomainKey  string
	ScopeLevel domain.ScopeLevel
	SubKey     *string
	ActiveOnly bool
}

func (f Filter) matches(p Payload) bool {
	if f.Domain != "" && p.Domain != f.Domain {
		return false
	}
	if f.DomainKey != "" && p.DomainKey != f.DomainKey {
		return false
	}
	if f.ScopeLevel != "" && p.ScopeLevel != f.ScopeLevel {
		return false
	}
	if f.SubKey != nil && p.SubKey != *f.SubKey {
		return false
	}
	if f.ActiveOnly && !p.Active {
		return false
	}
	return true
}

// Index is the vector index contract.
type Index interface {
	// Upsert writes the point, replacing vector and payload.
	Upsert(ctx context.Context, p Point) error
	// SetPayload replaces the payload of an existing point without touching
	// its vector.
	SetPayload(ctx context.Context, id string, p Payload) error
	// MarkInactive flags a point as inactive so filtered searches skip it.
	MarkInactive(ctx context.Context, id string) error
	// Delete removes points. Unknown ids are ignored.
	Delete(ctx context.Context, ids ...string) error
	// Get returns the point, or nil and no error when it does not exist.
	Get(ctx context.Context, id string) (*Point, error)
	Search(ctx context.Context, vector []float32, f Filter, limit int) ([]Match, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// ListIDs returns the ids of every stored point.
	ListIDs(ctx context.Context) ([]string, error)
}

// ErrIndexWrite marks every failed write to the index.
var ErrIndexWrite = errors.New("vector index write failed")

// ErrPointNotFound is the cause of a payload write against a missing point.
var ErrPointNotFound = errors.New("point not found")

// WriteError describes a failed Upsert, SetPayload, MarkInactive, or Delete.
type WriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("vector index %s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *WriteError) Unwrap() []error { return []error{ErrIndexWrite, e.Err} }
