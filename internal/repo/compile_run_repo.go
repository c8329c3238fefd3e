// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file persists compile run summaries.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

// CreateCompileRun stores a finished run. An ID is generated when empty.
func CreateCompileRun(ctx context.Context, db *gorm.DB, r *domain.CompileRun) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(r).Error
}

// LatestCompileRun returns the most recently started run, or ErrNotFound.
func LatestCompileRun(ctx context.Context, db *gorm.DB) (*domain.CompileRun, error) {
	var r domain.CompileRun
	err := db.WithContext(ctx).Order("started_at DESC").First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}
