package repository

import (
	"context"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"gorm.io/gorm"
)

// SyncLogRepository persists pipeline run records.
type SyncLogRepository struct {
	db *gorm.DB
}

func NewSyncLogRepository(db *gorm.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Create inserts a run record.
func (r *SyncLogRepository) Create(ctx context.Context, l *entity.SyncLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// Update saves a run record.
func (r *SyncLogRepository) Update(ctx context.Context, l *entity.SyncLog) error {
	return r.db.WithContext(ctx).Save(l).Error
}

// FindRecent returns the latest runs, newest first.
func (r *SyncLogRepository) FindRecent(ctx context.Context, limit int) ([]entity.SyncLog, error) {
	var items []entity.SyncLog
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
