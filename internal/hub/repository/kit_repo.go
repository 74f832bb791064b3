package repository

import (
	"context"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"gorm.io/gorm"
)

// KitRepository reads the commercial kit catalog.
type KitRepository struct {
	db *gorm.DB
}

func NewKitRepository(db *gorm.DB) *KitRepository {
	return &KitRepository{db: db}
}

// FindAllActive returns active kits with aliases, in catalog order.
// Alias position is preserved so matching is deterministic.
func (r *KitRepository) FindAllActive(ctx context.Context) ([]entity.Kit, error) {
	var kits []entity.Kit
	err := r.db.WithContext(ctx).
		Preload("Aliases", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("active = ?", true).
		Order("sort_order ASC, created_at ASC").
		Find(&kits).Error
	return kits, err
}
