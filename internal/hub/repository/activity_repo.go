package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"gorm.io/gorm"
)

// ActivityRepository persists the local CRM activity mirror.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByExternalID looks an activity up by its CRM id.
func (r *ActivityRepository) FindByExternalID(ctx context.Context, externalID int64) (*entity.Activity, error) {
	var a entity.Activity
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByID looks an activity up by internal id.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*entity.Activity, error) {
	var a entity.Activity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a new activity mirror row.
func (r *ActivityRepository) Create(ctx context.Context, a *entity.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// TouchLastSynced refreshes last_synced without touching anything else.
func (r *ActivityRepository) TouchLastSynced(ctx context.Context, externalID int64, t time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Activity{}).
		Where("external_id = ?", externalID).
		Update("last_synced", t).Error
}

// FindUnmaterialized returns activities with no linked ticket, oldest
// first, so a re-run picks up records a previous run could not finish.
// Rows parked as no-kit are excluded: kit detection is not retried
// until the activity is reset, and leaving them in the batch would
// eventually crowd out newer matchable activities.
func (r *ActivityRepository) FindUnmaterialized(ctx context.Context, limit int) ([]entity.Activity, error) {
	var items []entity.Activity
	err := r.db.WithContext(ctx).
		Where("materialization_state <> ?", entity.MaterializationNoKit).
		Where("id NOT IN (?)", r.db.Model(&entity.Ticket{}).Select("activity_id").Where("activity_id IS NOT NULL")).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// SetMaterializationState records a materialization outcome on the
// activity row.
func (r *ActivityRepository) SetMaterializationState(ctx context.Context, id, state string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Activity{}).
		Where("id = ?", id).
		Update("materialization_state", state).Error
}
