package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

var seq int

func newEntry(id, title string, st domain.Status, level domain.ScopeLevel, key, sub string) *domain.ContentEntry {
	seq++
	at := time.Date(2025, 1, 1, 0, 0, seq, 0, time.UTC)
	e := &domain.ContentEntry{
		ID:           id,
		Title:        title,
		Status:       st,
		Content:      "body of " + title,
		Domain:       domain.DomainAbilities,
		Scope:        domain.Scope{Level: level, DomainKey: key, SubKey: sub},
		Associations: datatypes.NewJSONType(domain.Associations{}),
		Guardrails:   domain.Guardrails{Level: domain.GuardrailMedium},
		Version:      domain.Version{Major: 1},
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	e.Rehash()
	return e
}

func mustCreate(t *testing.T, db *gorm.DB, es ...*domain.ContentEntry) {
	t.Helper()
	for _, e := range es {
		if err := CreateEntry(context.Background(), db, e); err != nil {
			t.Fatalf("CreateEntry(%s): %v", e.ID, err)
		}
	}
}

func ids(es []domain.ContentEntry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestCreateEntry_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	if err := CreateEntry(context.Background(), db, newEntry("a", "A", domain.StatusDraft, domain.ScopeShared, "k", "")); err == nil {
		t.Fatalf("expected error creating without table")
	}
}

func TestGetEntry_FoundAndNotFound(t *testing.T) {
	db := newRepoDB(t, &domain.ContentEntry{})
	mustCreate(t, db, newEntry("a", "A", domain.StatusActive, domain.ScopeShared, "k", ""))

	got, err := GetEntry(context.Background(), db, "a")
	if err != nil || got.Title != "A" {
		t.Fatalf("GetEntry: got=%+v err=%v", got, err)
	}
	if _, err := GetEntry(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveEntry_WritesZeroValuesAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	db := newRepoDB(t, &domain.ContentEntry{})
	e := newEntry("a", "A", domain.StatusActive, domain.ScopeShared, "k", "")
	e.AuthoringNotes = "old notes"
	mustCreate(t, db, e)
	created := e.CreatedAt

	e.AuthoringNotes = ""
	e.Status = domain.StatusDeprecated
	next := "b"
	e.SupersededBy = &next
	e.CreatedAt = time.Now().UTC()
	if err := SaveEntry(ctx, db, e); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	got, _ := GetEntry(ctx, db, "a")
	if got.AuthoringNotes != "" || got.Status != domain.StatusDeprecated || got.SupersededBy == nil || *got.SupersededBy != "b" {
		t.Fatalf("SaveEntry did not persist fields: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at must not change: %v vs %v", got.CreatedAt, created)
	}

	ghost := newEntry("ghost", "G", domain.StatusDraft, domain.ScopeShared, "k", "")
	if err := SaveEntry(ctx, db, ghost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound saving missing row, got %v", err)
	}
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	db := newRepoDB(t, &domain.ContentEntry{})
	mustCreate(t, db, newEntry("a", "A", domain.StatusActive, domain.ScopeShared, "k", ""))
	if err := DeleteEntry(ctx, db, "a"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := GetEntry(ctx, db, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row should be gone, got %v", err)
	}
	if err := DeleteEntry(ctx, db, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestListing_OrderAndFilters(t *testing.T) {
	ctx := context.Background()
	db := newRepoDB(t, &domain.ContentEntry{})
	mustCreate(t, db,
		newEntry("z1", "S1", domain.StatusActive, domain.ScopeShared, "jubilee", ""),
		newEntry("a2", "S2", domain.StatusDraft, domain.ScopeShared, "jubilee", ""),
		newEntry("m3", "I1", domain.StatusActive, domain.ScopeIndividual, "jubilee", "Grace"),
		newEntry("b4", "I2", domain.StatusActive, domain.ScopeIndividual, "jubilee", "Hope"),
		newEntry("c5", "X", domain.StatusActive, domain.ScopeShared, "other", ""),
	)

	all, err := ListEntries(ctx, db)
	if err != nil || fmt.Sprint(ids(all)) != "[z1 a2 m3 b4 c5]" {
		t.Fatalf("ListEntries order = %v err=%v", ids(all), err)
	}
	active, _ := ListActiveEntries(ctx, db)
	if fmt.Sprint(ids(active)) != "[z1 m3 b4 c5]" {
		t.Fatalf("ListActiveEntries = %v", ids(active))
	}
	if n, _ := CountEntries(ctx, db, true); n != 4 {
		t.Fatalf("CountEntries(active) = %d", n)
	}
	if n, _ := CountEntries(ctx, db, false); n != 5 {
		t.Fatalf("CountEntries(all) = %d", n)
	}
	page, _ := ListEntriesPage(ctx, db, false, 1, 2)
	if fmt.Sprint(ids(page)) != "[a2 m3]" {
		t.Fatalf("ListEntriesPage = %v", ids(page))
	}

	byKey, _ := ListActiveByScope(ctx, db, ScopeFilter{Domain: domain.DomainAbilities, DomainKey: "jubilee"})
	if fmt.Sprint(ids(byKey)) != "[z1 m3 b4]" {
		t.Fatalf("scope (all sub keys) = %v", ids(byKey))
	}
	grace := "Grace"
	bySub, _ := ListActiveByScope(ctx, db, ScopeFilter{DomainKey: "jubilee", Level: domain.ScopeIndividual, SubKey: &grace})
	if fmt.Sprint(ids(bySub)) != "[m3]" {
		t.Fatalf("scope (sub key) = %v", ids(bySub))
	}
	other, _ := ListActiveByScope(ctx, db, ScopeFilter{Domain: domain.DomainPersonas, DomainKey: "jubilee"})
	if len(other) != 0 {
		t.Fatalf("domain filter should exclude everything, got %v", ids(other))
	}

	anyStatus, _ := ListByScope(ctx, db, ScopeFilter{DomainKey: "jubilee", Level: domain.ScopeShared})
	if fmt.Sprint(ids(anyStatus)) != "[z1 a2]" {
		t.Fatalf("scope (any status) = %v", ids(anyStatus))
	}
	drafts, _ := ListByScope(ctx, db, ScopeFilter{DomainKey: "jubilee"}, domain.StatusDraft, domain.StatusDeprecated)
	if fmt.Sprint(ids(drafts)) != "[a2]" {
		t.Fatalf("scope (draft|deprecated) = %v", ids(drafts))
	}

	some, _ := ListEntriesByIDs(ctx, db, []string{"m3", "nope", "a2"})
	if fmt.Sprint(ids(some)) != "[a2 m3]" {
		t.Fatalf("ListEntriesByIDs = %v", ids(some))
	}
	none, err := ListEntriesByIDs(ctx, db, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("ListEntriesByIDs(nil) = %v, %v", none, err)
	}
}
