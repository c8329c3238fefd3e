// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only audit log functions.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

// AppendAudit inserts one audit row. CreatedAt is stamped in UTC when unset.
// Audit rows are never updated or deleted.
func AppendAudit(ctx context.Context, db *gorm.DB, a *domain.AuditLogEntry) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(a).Error
}

// ListAudit returns the audit rows for entryID, oldest first.
func ListAudit(ctx context.Context, db *gorm.DB, entryID string) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	err := db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
