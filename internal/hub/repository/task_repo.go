package repository

import (
	"context"
	"errors"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"gorm.io/gorm"
)

// TaskRepository persists task instances.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID looks a task up by id.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.Task, error) {
	var t entity.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Update saves a task.
func (r *TaskRepository) Update(ctx context.Context, t *entity.Task) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// FindByMilestone returns the tasks of a milestone in order.
func (r *TaskRepository) FindByMilestone(ctx context.Context, milestoneID string) ([]entity.Task, error) {
	var items []entity.Task
	err := r.db.WithContext(ctx).
		Where("milestone_id = ?", milestoneID).
		Order("sort_order ASC").
		Find(&items).Error
	return items, err
}

// FindOpenWithSLA returns open tasks that carry an SLA deadline,
// soonest deadline first. Completed and cancelled tasks fall out of
// monitoring.
func (r *TaskRepository) FindOpenWithSLA(ctx context.Context) ([]entity.Task, error) {
	var items []entity.Task
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{entity.TaskStatusCompleted, entity.TaskStatusCancelled}).
		Where("sla_deadline IS NOT NULL").
		Order("sla_deadline ASC").
		Find(&items).Error
	return items, err
}

// FindOpenWithoutSLA returns open tasks with no SLA deadline.
func (r *TaskRepository) FindOpenWithoutSLA(ctx context.Context) ([]entity.Task, error) {
	var items []entity.Task
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{entity.TaskStatusCompleted, entity.TaskStatusCancelled}).
		Where("sla_deadline IS NULL").
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// CountOpenByTicket counts tasks of a ticket that still block closure.
func (r *TaskRepository) CountOpenByTicket(ctx context.Context, ticketID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.Task{}).
		Joins("JOIN milestones ON milestones.id = tasks.milestone_id").
		Where("milestones.ticket_id = ?", ticketID).
		Where("tasks.status NOT IN ?", []string{entity.TaskStatusCompleted, entity.TaskStatusCancelled}).
		Count(&n).Error
	return n, err
}
