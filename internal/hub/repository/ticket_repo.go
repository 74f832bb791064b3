package repository

import (
	"context"
	"errors"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"gorm.io/gorm"
)

// TicketRepository persists tickets and their milestone/task tree.
type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// FindAll lists tickets with optional status/company filters.
func (r *TicketRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Ticket, int64, error) {
	var items []entity.Ticket
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Ticket{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if companyID := filters["company_id"]; companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if assignedTo := filters["assigned_to"]; assignedTo != "" {
		query = query.Where("assigned_to = ?", assignedTo)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("title ILIKE ? OR ticket_code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID returns a ticket with milestones and tasks in order.
func (r *TicketRepository) FindByID(ctx context.Context, id string) (*entity.Ticket, error) {
	var t entity.Ticket
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Milestones.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByActivityID returns the ticket linked to an activity, or nil.
func (r *TicketRepository) FindByActivityID(ctx context.Context, activityID string) (*entity.Ticket, error) {
	var t entity.Ticket
	err := r.db.WithContext(ctx).Where("activity_id = ?", activityID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Update saves a ticket.
func (r *TicketRepository) Update(ctx context.Context, t *entity.Ticket) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// Delete removes a ticket and cascades to its milestones and tasks.
// Activities are never deleted here.
func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var milestoneIDs []string
		if err := tx.Model(&entity.Milestone{}).
			Where("ticket_id = ?", id).
			Pluck("id", &milestoneIDs).Error; err != nil {
			return err
		}
		if len(milestoneIDs) > 0 {
			if err := tx.Where("milestone_id IN ?", milestoneIDs).Delete(&entity.Task{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("ticket_id = ?", id).Delete(&entity.Milestone{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Ticket{}).Error
	})
}
