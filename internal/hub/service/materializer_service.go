package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaterializationCode tags a materialization outcome.
type MaterializationCode string

const (
	CodeAlreadyMaterialized MaterializationCode = "AlreadyMaterialized"
	CodeKitNotDetected      MaterializationCode = "KitNotDetected"
	CodeOwnerUnresolved     MaterializationCode = "OwnerUnresolved"
	CodeWorkflowEmpty       MaterializationCode = "WorkflowEmpty"
	CodeTemplateMissing     MaterializationCode = "TemplateMissing"
	CodeDatabaseConflict    MaterializationCode = "DatabaseConflict"
	CodeInternal            MaterializationCode = "Internal"
)

// MaterializationError is a tagged, structured error variant.
type MaterializationError struct {
	Code    MaterializationCode `json:"code"`
	Message string              `json:"message,omitempty"`
}

func (e MaterializationError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MaterializationResult is the outcome of materializing one activity.
type MaterializationResult struct {
	TicketID    string                 `json:"ticket_id,omitempty"`
	TicketCode  string                 `json:"ticket_code,omitempty"`
	MilestoneID string                 `json:"milestone_id,omitempty"`
	TaskIDs     []string               `json:"task_ids,omitempty"`
	KitCode     string                 `json:"kit_code,omitempty"`
	Errors      []MaterializationError `json:"errors,omitempty"`
}

// Created reports whether a ticket tree was persisted.
func (r *MaterializationResult) Created() bool {
	return r.TicketID != "" && len(r.Errors) == 0
}

// HasCode reports whether the result carries the given error tag.
func (r *MaterializationResult) HasCode(code MaterializationCode) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// MaterializerService turns an ingested activity into its operational
// graph: one ticket, the first milestone of the default workflow, and
// that milestone's tasks with computed deadlines. The whole tree is
// written in a single transaction; no partial trees ever persist.
type MaterializerService struct {
	db           *gorm.DB
	catalog      *CatalogService
	templates    *TemplateService
	ticketRepo   *repository.TicketRepository
	activityRepo *repository.ActivityRepository
	userRepo     *repository.UserRepository
	companyRepo  *repository.CompanyRepository
	writeback    *WritebackService
	logger       *zap.Logger
}

func NewMaterializerService(
	db *gorm.DB,
	catalog *CatalogService,
	templates *TemplateService,
	ticketRepo *repository.TicketRepository,
	activityRepo *repository.ActivityRepository,
	userRepo *repository.UserRepository,
	companyRepo *repository.CompanyRepository,
	logger *zap.Logger,
) *MaterializerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterializerService{
		db:           db,
		catalog:      catalog,
		templates:    templates,
		ticketRepo:   ticketRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
		companyRepo:  companyRepo,
		logger:       logger,
	}
}

// SetWriteback injects the CRM writeback used after a successful commit.
func (s *MaterializerService) SetWriteback(w *WritebackService) {
	s.writeback = w
}

// Materialize creates the ticket tree for one activity. Non-fatal
// outcomes (no kit, already materialized) come back as tagged errors
// with nothing persisted.
func (s *MaterializerService) Materialize(ctx context.Context, activity *entity.Activity) MaterializationResult {
	var res MaterializationResult

	// step 1: idempotency, at most one ticket per activity
	existing, err := s.ticketRepo.FindByActivityID(ctx, activity.ID)
	if err != nil {
		res.Errors = append(res.Errors, MaterializationError{Code: CodeInternal, Message: err.Error()})
		return res
	}
	if existing != nil {
		res.TicketCode = existing.TicketCode
		res.Errors = append(res.Errors, MaterializationError{Code: CodeAlreadyMaterialized})
		s.markActivity(ctx, activity, entity.MaterializationTicketed)
		return res
	}

	// step 2: kit detection. A miss parks the activity: it is not
	// retried on later runs unless the row is reset.
	kit := s.catalog.Match(activity.Subject, activity.Description)
	if kit == nil {
		res.Errors = append(res.Errors, MaterializationError{Code: CodeKitNotDetected})
		s.markActivity(ctx, activity, entity.MaterializationNoKit)
		return res
	}
	res.KitCode = kit.Code

	// step 3: owner resolution, CRM owner first then kit default
	ownerID, err := s.resolveOwner(ctx, activity, kit)
	if err != nil {
		res.Errors = append(res.Errors, MaterializationError{Code: CodeInternal, Message: err.Error()})
		return res
	}
	if ownerID == "" {
		res.Errors = append(res.Errors, MaterializationError{
			Code:    CodeOwnerUnresolved,
			Message: fmt.Sprintf("crm owner %d has no internal user and kit %s has no default owner", activity.OwnerCRMID, kit.Code),
		})
		return res
	}

	// step 4: company resolution, nullable
	var companyID *string
	if activity.CompanyCRMID != 0 {
		company, err := s.companyRepo.FindByCRMID(ctx, activity.CompanyCRMID)
		if err != nil {
			res.Errors = append(res.Errors, MaterializationError{Code: CodeInternal, Message: err.Error()})
			return res
		}
		if company != nil {
			companyID = &company.ID
		}
	}

	// template lookup before opening the transaction
	workflow, err := s.templates.Default(ctx)
	if err != nil {
		if errors.Is(err, ErrTemplateMissing) {
			res.Errors = append(res.Errors, MaterializationError{Code: CodeTemplateMissing, Message: err.Error()})
		} else {
			res.Errors = append(res.Errors, MaterializationError{Code: CodeInternal, Message: err.Error()})
		}
		return res
	}
	milestones := s.templates.MilestonesOf(workflow)
	if len(milestones) == 0 {
		res.Errors = append(res.Errors, MaterializationError{Code: CodeWorkflowEmpty})
		return res
	}
	mt0 := milestones[0]

	// single clock for every deadline in the tree
	now := time.Now()

	kitID := kit.ID
	activityID := activity.ID
	ticket := &entity.Ticket{
		ID:          uuid.New().String()[:32],
		TicketCode:  TicketCode(kit.Code, activity.ExternalID),
		Title:       activity.Subject,
		Description: activity.Description,
		Status:      entity.TicketStatusOpen,
		Priority:    entity.PriorityMedium,
		ActivityID:  &activityID,
		CompanyID:   companyID,
		KitID:       &kitID,
		AssignedTo:  ownerID,
	}

	milestone := buildMilestone(ticket.ID, &mt0, now)
	tasks := buildTasks(milestone, &mt0, s.templates.TasksOf(&mt0), ownerID, now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			return err
		}
		if err := tx.Create(milestone).Error; err != nil {
			return err
		}
		for i := range tasks {
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return err
			}
		}
		// bind the ticket to its single active milestone
		if err := tx.Model(&entity.Ticket{}).
			Where("id = ?", ticket.ID).
			Update("milestone_id", milestone.ID).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Activity{}).
			Where("id = ?", activity.ID).
			Update("materialization_state", entity.MaterializationTicketed).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			// concurrent re-insert: converged, treat as already materialized
			res.Errors = append(res.Errors, MaterializationError{Code: CodeDatabaseConflict, Message: err.Error()})
			return res
		}
		res.Errors = append(res.Errors, MaterializationError{Code: CodeInternal, Message: err.Error()})
		return res
	}

	activity.MaterializationState = entity.MaterializationTicketed
	res.TicketID = ticket.ID
	res.TicketCode = ticket.TicketCode
	res.MilestoneID = milestone.ID
	for _, t := range tasks {
		res.TaskIDs = append(res.TaskIDs, t.ID)
	}

	s.logger.Info("activity materialized",
		zap.Int64("external_id", activity.ExternalID),
		zap.String("ticket_code", ticket.TicketCode),
		zap.String("kit", kit.Code),
		zap.Int("tasks", len(tasks)))

	if s.writeback != nil {
		s.writeback.OnTicketCreated(ctx, activity, ticket)
	}

	return res
}

// markActivity records the materialization outcome; a failed update is
// logged, the next run converges it.
func (s *MaterializerService) markActivity(ctx context.Context, activity *entity.Activity, state string) {
	if s.activityRepo == nil {
		return
	}
	if err := s.activityRepo.SetMaterializationState(ctx, activity.ID, state); err != nil {
		s.logger.Warn("materialization state update failed",
			zap.Int64("external_id", activity.ExternalID),
			zap.String("state", state),
			zap.Error(err))
		return
	}
	activity.MaterializationState = state
}

func (s *MaterializerService) resolveOwner(ctx context.Context, activity *entity.Activity, kit *entity.Kit) (string, error) {
	if activity.OwnerCRMID != 0 {
		user, err := s.userRepo.FindByCRMID(ctx, activity.OwnerCRMID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return "", err
		}
		if user != nil {
			return user.ID, nil
		}
	}
	if kit.DefaultOwnerID != nil && *kit.DefaultOwnerID != "" {
		return *kit.DefaultOwnerID, nil
	}
	return "", nil
}

// TicketCode builds the human-readable ticket code:
// TCK-<KIT_CODE>-<LAST4_OF_EXTERNAL_ID>-00. The trailing 00 is a
// reserved revision suffix.
func TicketCode(kitCode string, externalID int64) string {
	digits := fmt.Sprintf("%d", externalID)
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return fmt.Sprintf("TCK-%s-%s-00", kitCode, digits)
}

func buildMilestone(ticketID string, mt *entity.MilestoneTemplate, now time.Time) *entity.Milestone {
	sla := now.AddDate(0, 0, mt.SLADays)
	warning := now.AddDate(0, 0, mt.SLADays-mt.WarningDays)
	escalation := sla.AddDate(0, 0, mt.EscalationDays)
	return &entity.Milestone{
		ID:                 uuid.New().String()[:32],
		TicketID:           ticketID,
		TemplateID:         mt.ID,
		Title:              mt.Name,
		Order:              1,
		Status:             entity.MilestoneStatusActive,
		SLADeadline:        &sla,
		WarningDeadline:    &warning,
		EscalationDeadline: &escalation,
	}
}

func buildTasks(milestone *entity.Milestone, mt *entity.MilestoneTemplate, templates []entity.TaskTemplate, ownerID string, now time.Time) []entity.Task {
	tasks := make([]entity.Task, 0, len(templates))
	for _, tt := range templates {
		dueDays := estimateDueDays(tt.EstimatedHours)
		sla := now.AddDate(0, 0, dueDays)
		// a task can never outlive its milestone's SLA
		if milestone.SLADeadline != nil && sla.After(*milestone.SLADeadline) {
			sla = *milestone.SLADeadline
		}
		warning := sla.AddDate(0, 0, -mt.WarningDays)
		if warning.Before(now) {
			warning = now
		}
		escalation := sla.AddDate(0, 0, mt.EscalationDays)
		due := sla

		tasks = append(tasks, entity.Task{
			ID:                 uuid.New().String()[:32],
			MilestoneID:        milestone.ID,
			Title:              tt.Name,
			Description:        tt.Description,
			Status:             entity.TaskStatusTodo,
			Order:              tt.Order,
			AssignedTo:         ownerID,
			DueDate:            &due,
			SLADeadline:        &sla,
			WarningDeadline:    &warning,
			EscalationDeadline: &escalation,
			EstimatedHours:     tt.EstimatedHours,
		})
	}
	return tasks
}

// estimateDueDays converts estimated hours to 8-hour business days,
// minimum one day.
func estimateDueDays(hours float64) int {
	days := int(math.Ceil(hours / 8))
	if days < 1 {
		days = 1
	}
	return days
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}
