// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ContentEntry model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
// Hashing, validation, and audit bookkeeping live in services.OverlayService.
//
// Error semantics:
//   - When an entry is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Other DB errors are propagated unchanged.
//
// Ordering: every list is ordered by (created_at ASC, id ASC) so callers
// that depend on authoring order (inheritance resolution) see a stable
// sequence.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

const entryOrder = "created_at ASC, id ASC"

// ScopeFilter narrows a scope lookup. Empty Domain or Level match any value;
// a nil SubKey matches every sub-scope under DomainKey.
type ScopeFilter struct {
	Domain    domain.Domain
	DomainKey string
	Level     domain.ScopeLevel
	SubKey    *string
}

// CreateEntry inserts a fully populated entry. The caller assigns the ID and
// hashes.
func CreateEntry(ctx context.Context, db *gorm.DB, e *domain.ContentEntry) error {
	return db.WithContext(ctx).Create(e).Error
}

// GetEntry fetches a single entry by ID, or ErrNotFound if missing.
func GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.ContentEntry, error) {
	var e domain.ContentEntry
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveEntry writes every column of e back to its row. It returns
// ErrNotFound when no row with e.ID exists.
func SaveEntry(ctx context.Context, db *gorm.DB, e *domain.ContentEntry) error {
	res := db.WithContext(ctx).
		Model(&domain.ContentEntry{}).
		Where("id = ?", e.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(e)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntry physically removes the row. It returns ErrNotFound when
// nothing was deleted.
func DeleteEntry(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ContentEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEntries returns every entry regardless of status.
func ListEntries(ctx context.Context, db *gorm.DB) ([]domain.ContentEntry, error) {
	var out []domain.ContentEntry
	err := db.WithContext(ctx).Order(entryOrder).Find(&out).Error
	return out, err
}

// ListActiveEntries returns entries whose status is active.
func ListActiveEntries(ctx context.Context, db *gorm.DB) ([]domain.ContentEntry, error) {
	var out []domain.ContentEntry
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Order(entryOrder).
		Find(&out).Error
	return out, err
}

// ListEntriesByIDs returns the entries among ids that exist. Missing ids are
// silently skipped.
func ListEntriesByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.ContentEntry, error) {
	var out []domain.ContentEntry
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

// CountEntries returns the number of entries, optionally only active ones.
func CountEntries(ctx context.Context, db *gorm.DB, activeOnly bool) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.ContentEntry{})
	if activeOnly {
		q = q.Where("status = ?", domain.StatusActive)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListEntriesPage returns a paginated slice. Use CountEntries for the total.
func ListEntriesPage(ctx context.Context, db *gorm.DB, activeOnly bool, offset, limit int) ([]domain.ContentEntry, error) {
	var out []domain.ContentEntry
	q := db.WithContext(ctx)
	if activeOnly {
		q = q.Where("status = ?", domain.StatusActive)
	}
	err := q.Order(entryOrder).Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// ListActiveByScope returns active entries matching f.
func ListActiveByScope(ctx context.Context, db *gorm.DB, f ScopeFilter) ([]domain.ContentEntry, error) {
	return ListByScope(ctx, db, f, domain.StatusActive)
}

// ListByScope returns entries matching f whose status is one of statuses.
// No statuses means any status.
func ListByScope(ctx context.Context, db *gorm.DB, f ScopeFilter, statuses ...domain.Status) ([]domain.ContentEntry, error) {
	var out []domain.ContentEntry
	q := db.WithContext(ctx).Where("scope_domain_key = ?", f.DomainKey)
	if len(statuses) == 1 {
		q = q.Where("status = ?", statuses[0])
	} else if len(statuses) > 1 {
		q = q.Where("status IN ?", statuses)
	}
	if f.Domain != "" {
		q = q.Where("domain = ?", f.Domain)
	}
	if f.Level != "" {
		q = q.Where("scope_level = ?", f.Level)
	}
	if f.SubKey != nil {
		q = q.Where("scope_sub_key = ?", *f.SubKey)
	}
	err := q.Order(entryOrder).Find(&out).Error
	return out, err
}
