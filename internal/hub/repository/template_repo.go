package repository

import (
	"context"
	"errors"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"gorm.io/gorm"
)

// TemplateRepository reads workflow templates.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindDefault returns the default workflow with ordered milestones and
// tasks preloaded. ErrNotFound when no default template exists.
func (r *TemplateRepository) FindDefault(ctx context.Context) (*entity.WorkflowTemplate, error) {
	var wt entity.WorkflowTemplate
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Milestones.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("is_default = ?", true).
		First(&wt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wt, nil
}

// CountDefaults reports how many templates claim to be the default.
// The registry treats anything other than exactly one as misconfigured.
func (r *TemplateRepository) CountDefaults(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.WorkflowTemplate{}).
		Where("is_default = ?", true).
		Count(&n).Error
	return n, err
}
