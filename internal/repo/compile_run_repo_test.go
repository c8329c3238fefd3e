package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

func TestCompileRuns_LatestByStart(t *testing.T) {
	ctx := context.Background()
	db := newRepoDB(t, &domain.CompileRun{})

	if _, err := LatestCompileRun(ctx, db); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}

	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	older := &domain.CompileRun{Mode: "full", StartedAt: t0, FinishedAt: t0.Add(time.Second), NewEntries: 2, Errors: datatypes.JSON(`[]`)}
	newer := &domain.CompileRun{Mode: "targeted", StartedAt: t0.Add(time.Hour), FinishedAt: t0.Add(time.Hour), Unchanged: 1, Errors: datatypes.JSON(`[]`)}
	for _, r := range []*domain.CompileRun{newer, older} {
		if err := CreateCompileRun(ctx, db, r); err != nil {
			t.Fatalf("CreateCompileRun: %v", err)
		}
		if r.ID == "" {
			t.Fatalf("expected generated id")
		}
	}

	got, err := LatestCompileRun(ctx, db)
	if err != nil {
		t.Fatalf("LatestCompileRun: %v", err)
	}
	if got.ID != newer.ID || got.Mode != "targeted" || got.Unchanged != 1 {
		t.Fatalf("unexpected latest run: %+v", got)
	}
}
