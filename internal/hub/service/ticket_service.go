package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TicketService owns ticket and task state transitions: task moves,
// the auto-close rule, and cascading deletion. CRM writeback rides on
// transitions but never blocks them.
type TicketService struct {
	db           *gorm.DB
	ticketRepo   *repository.TicketRepository
	taskRepo     *repository.TaskRepository
	activityRepo *repository.ActivityRepository
	writeback    *WritebackService
	logger       *zap.Logger
}

func NewTicketService(
	db *gorm.DB,
	ticketRepo *repository.TicketRepository,
	taskRepo *repository.TaskRepository,
	activityRepo *repository.ActivityRepository,
	logger *zap.Logger,
) *TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		db:           db,
		ticketRepo:   ticketRepo,
		taskRepo:     taskRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// SetWriteback injects the CRM writeback service.
func (s *TicketService) SetWriteback(w *WritebackService) {
	s.writeback = w
}

var validTaskStatuses = map[string]bool{
	entity.TaskStatusTodo:       true,
	entity.TaskStatusInProgress: true,
	entity.TaskStatusCompleted:  true,
	entity.TaskStatusSuspended:  true,
	entity.TaskStatusCancelled:  true,
}

// List returns tickets with filters and pagination.
func (s *TicketService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Ticket, int64, error) {
	return s.ticketRepo.FindAll(ctx, page, pageSize, filters)
}

// Get returns a ticket with its milestone/task tree.
func (s *TicketService) Get(ctx context.Context, id string) (*entity.Ticket, error) {
	return s.ticketRepo.FindByID(ctx, id)
}

// Delete removes a ticket, cascading to milestones and tasks. The
// originating activity is kept and reset to pending so the pipeline
// can materialize it again.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	ticket, err := s.ticketRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ticketRepo.Delete(ctx, id); err != nil {
		return err
	}
	if ticket.ActivityID != nil {
		if err := s.activityRepo.SetMaterializationState(ctx, *ticket.ActivityID, entity.MaterializationPending); err != nil {
			s.logger.Warn("activity reset after ticket delete failed",
				zap.String("activity_id", *ticket.ActivityID), zap.Error(err))
		}
	}
	return nil
}

// UpdateTaskStatus moves a task, annotates the CRM activity, and
// closes the ticket when nothing blocking remains.
func (s *TicketService) UpdateTaskStatus(ctx context.Context, taskID, newStatus string) (*entity.Task, error) {
	if !validTaskStatuses[newStatus] {
		return nil, fmt.Errorf("invalid task status %q", newStatus)
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	oldStatus := task.Status
	if oldStatus == newStatus {
		return task, nil
	}

	now := time.Now()
	task.Status = newStatus
	if newStatus == entity.TaskStatusCompleted {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	ticket, activity := s.ticketOfTask(ctx, task)

	if s.writeback != nil && ticket != nil && activity != nil {
		s.writeback.OnTaskStatusChange(ctx, activity, ticket, task, oldStatus, newStatus)
	}

	if entity.TaskDone(newStatus) && ticket != nil {
		if err := s.maybeAutoClose(ctx, ticket, activity); err != nil {
			s.logger.Error("ticket auto-close failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	} else if newStatus == entity.TaskStatusInProgress && ticket != nil && ticket.Status == entity.TicketStatusOpen {
		ticket.Status = entity.TicketStatusInProgress
		if err := s.ticketRepo.Update(ctx, ticket); err != nil {
			s.logger.Warn("ticket status bump failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	return task, nil
}

// maybeAutoClose closes the ticket once every task of every milestone
// is completed or cancelled. The completion writeback fires exactly
// once, on the transition to closed.
func (s *TicketService) maybeAutoClose(ctx context.Context, ticket *entity.Ticket, activity *entity.Activity) error {
	if ticket.Status == entity.TicketStatusClosed {
		return nil
	}

	open, err := s.taskRepo.CountOpenByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if open > 0 {
		return nil
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Milestone{}).
			Where("ticket_id = ? AND status <> ?", ticket.ID, entity.MilestoneStatusClosed).
			Updates(map[string]interface{}{"status": entity.MilestoneStatusClosed, "closed_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Ticket{}).
			Where("id = ?", ticket.ID).
			Updates(map[string]interface{}{"status": entity.TicketStatusClosed, "closed_at": now}).Error
	})
	if err != nil {
		return err
	}
	ticket.Status = entity.TicketStatusClosed
	ticket.ClosedAt = &now

	s.logger.Info("ticket auto-closed", zap.String("ticket_code", ticket.TicketCode))

	if s.writeback != nil && activity != nil {
		s.writeback.OnTicketClose(ctx, activity, ticket)
		s.writeback.OnActivityComplete(ctx, activity, ticket)
	}
	return nil
}

// AdvanceMilestone closes the current milestone and activates the
// given next one. Exactly one non-closed milestone per ticket.
func (s *TicketService) AdvanceMilestone(ctx context.Context, ticketID, nextMilestoneID string) error {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return err
	}

	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ticket.MilestoneID != nil {
			if err := tx.Model(&entity.Milestone{}).
				Where("id = ?", *ticket.MilestoneID).
				Updates(map[string]interface{}{"status": entity.MilestoneStatusClosed, "closed_at": now}).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&entity.Milestone{}).
			Where("id = ? AND ticket_id = ?", nextMilestoneID, ticketID).
			Update("status", entity.MilestoneStatusActive).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Ticket{}).
			Where("id = ?", ticketID).
			Update("milestone_id", nextMilestoneID).Error
	})
}

// ticketOfTask walks task → milestone → ticket → activity. Any gap
// returns nils; callers treat writeback as best-effort anyway.
func (s *TicketService) ticketOfTask(ctx context.Context, task *entity.Task) (*entity.Ticket, *entity.Activity) {
	var milestone entity.Milestone
	if err := s.db.WithContext(ctx).Where("id = ?", task.MilestoneID).First(&milestone).Error; err != nil {
		return nil, nil
	}
	var ticket entity.Ticket
	if err := s.db.WithContext(ctx).Where("id = ?", milestone.TicketID).First(&ticket).Error; err != nil {
		return nil, nil
	}
	if ticket.ActivityID == nil {
		return &ticket, nil
	}
	activity, err := s.activityRepo.FindByID(ctx, *ticket.ActivityID)
	if err != nil {
		return &ticket, nil
	}
	return &ticket, activity
}
