package repository

import (
	"context"
	"time"

	"github.com/abs0914/croffle-store-sync-sub022/internal/model"

	"gorm.io/gorm"
)

// SyncAuditRepository persists per-sale sync outcomes and serves the health
// monitor's trailing-window samples.
type SyncAuditRepository interface {
	Append(ctx context.Context, audit *model.SyncAudit) error
	// RecentWindow returns the newest rows created after since, newest
	// first, capped at limit. One cheap query per monitor tick — never a
	// per-sale query.
	RecentWindow(ctx context.Context, since time.Time, limit int) ([]model.SyncAudit, error)
}

type syncAuditRepo struct{ db *gorm.DB }

func NewSyncAuditRepository(db *gorm.DB) SyncAuditRepository {
	return &syncAuditRepo{db: db}
}

func (r *syncAuditRepo) Append(ctx context.Context, audit *model.SyncAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *syncAuditRepo) RecentWindow(ctx context.Context, since time.Time, limit int) ([]model.SyncAudit, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	var audits []model.SyncAudit
	err := r.db.WithContext(ctx).
		Where("created_at > ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&audits).Error
	return audits, err
}
