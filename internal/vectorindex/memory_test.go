package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

func pt(id string, v []float32, key string, active bool) Point {
	return Point{ID: id, Vector: v, Payload: Payload{
		EntryID: id, Domain: domain.DomainAbilities, DomainKey: key,
		ScopeLevel: domain.ScopeShared, Active: active, ContentHash: "c-" + id,
	}}
}

func TestMemory_UpsertGetAndDimension(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	if err := m.Upsert(ctx, pt("a", []float32{1, 0}, "k", true)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	err := m.Upsert(ctx, pt("b", []float32{1, 0, 0}, "k", true))
	var we *WriteError
	if !errors.As(err, &we) || !errors.Is(err, ErrIndexWrite) || we.ID != "b" {
		t.Fatalf("expected WriteError for wrong dimension, got %v", err)
	}
	got, err := m.Get(ctx, "a")
	if err != nil || got == nil || got.Payload.ContentHash != "c-a" {
		t.Fatalf("Get(a) = %+v, %v", got, err)
	}
	missing, err := m.Get(ctx, "zzz")
	if err != nil || missing != nil {
		t.Fatalf("Get(missing) should be nil, nil; got %+v, %v", missing, err)
	}
}

func TestMemory_PayloadWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	_ = m.Upsert(ctx, pt("a", []float32{1, 0}, "k", true))

	p := Payload{EntryID: "a", Title: "new", Active: true, MetadataHash: "m2"}
	if err := m.SetPayload(ctx, "a", p); err != nil {
		t.Fatalf("SetPayload: %v", err)
	}
	got, _ := m.Get(ctx, "a")
	if got.Payload.Title != "new" || len(got.Vector) != 2 {
		t.Fatalf("SetPayload must keep vector and replace payload: %+v", got)
	}
	if err := m.MarkInactive(ctx, "a"); err != nil {
		t.Fatalf("MarkInactive: %v", err)
	}
	got, _ = m.Get(ctx, "a")
	if got.Payload.Active {
		t.Fatalf("expected inactive point")
	}
	if err := m.SetPayload(ctx, "nope", p); !errors.Is(err, ErrPointNotFound) || !errors.Is(err, ErrIndexWrite) {
		t.Fatalf("expected point-not-found write error, got %v", err)
	}
	if err := m.MarkInactive(ctx, "nope"); !errors.Is(err, ErrIndexWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestMemory_SearchCountListDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	_ = m.Upsert(ctx, pt("near", []float32{1, 0.1}, "k", true))
	_ = m.Upsert(ctx, pt("far", []float32{0, 1}, "k", true))
	_ = m.Upsert(ctx, pt("off", []float32{1, 0}, "k", false))
	_ = m.Upsert(ctx, pt("other", []float32{1, 0}, "x", true))

	hits, err := m.Search(ctx, []float32{1, 0}, Filter{DomainKey: "k", ActiveOnly: true}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "near" || hits[1].ID != "far" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("scores not descending")
	}
	top1, _ := m.Search(ctx, []float32{1, 0}, Filter{}, 1)
	if len(top1) != 1 {
		t.Fatalf("limit not applied: %d", len(top1))
	}

	if n, _ := m.Count(ctx, Filter{ActiveOnly: true}); n != 3 {
		t.Fatalf("active count = %d", n)
	}
	if n, _ := m.Count(ctx, Filter{}); n != 4 {
		t.Fatalf("total count = %d", n)
	}

	if err := m.Delete(ctx, "far", "unknown"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, _ := m.ListIDs(ctx)
	if len(ids) != 3 || ids[0] != "near" || ids[1] != "off" || ids[2] != "other" {
		t.Fatalf("ListIDs = %v", ids)
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory(0)
	if err := m.Upsert(ctx, pt("a", []float32{1}, "k", true)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPayloadFor(t *testing.T) {
	e := &domain.ContentEntry{
		ID: "e1", Title: "Tone", Content: "Be gentle", Status: domain.StatusActive,
		Domain:     domain.DomainAbilities,
		Scope:      domain.Scope{Level: domain.ScopeIndividual, DomainKey: "jubilee", SubKey: "Grace"},
		Guardrails: domain.Guardrails{Level: domain.GuardrailHigh},
		Version:    domain.Version{Major: 2, Minor: 1},
	}
	e.Rehash()
	p := PayloadFor(e)
	if !p.Active || p.SubKey != "Grace" || p.Guardrail != domain.GuardrailHigh || p.Version.Major != 2 {
		t.Fatalf("payload mismatch: %+v", p)
	}
	if p.ContentHash != e.ContentHash || p.MetadataHash != e.MetadataHash {
		t.Fatalf("hashes not carried")
	}
	if p.Associations.Personas == nil {
		t.Fatalf("associations should be normalized")
	}
	e.Status = domain.StatusDeprecated
	if PayloadFor(e).Active {
		t.Fatalf("deprecated entry payload must be inactive")
	}
}
