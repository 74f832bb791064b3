package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"go.uber.org/zap"
)

// ActivityAnnotator is the slice of the CRM client the writeback uses.
// The client re-mints its token on every write (upstream requirement).
type ActivityAnnotator interface {
	AppendActivityNote(ctx context.Context, externalID int64, text string) error
	CloseActivity(ctx context.Context, externalID int64) error
}

// WritebackService pushes structured annotations to the originating
// CRM activity when local state changes. Failures are logged and
// dropped: local truth prevails and the CRM converges on the next
// successful write.
type WritebackService struct {
	annotator ActivityAnnotator
	logger    *zap.Logger
}

func NewWritebackService(annotator ActivityAnnotator, logger *zap.Logger) *WritebackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WritebackService{annotator: annotator, logger: logger}
}

const annotationDateLayout = "02/01/2006 15:04"

// Italian status labels and emoji, as they appear in CRM annotations.
var taskStatusEmoji = map[string]string{
	entity.TaskStatusTodo:       "📋",
	entity.TaskStatusInProgress: "🔄",
	entity.TaskStatusCompleted:  "✅",
	entity.TaskStatusSuspended:  "⏸️",
	entity.TaskStatusCancelled:  "❌",
}

func statusEmoji(status string) string {
	if e, ok := taskStatusEmoji[status]; ok {
		return e
	}
	return "▫️"
}

// IntakeBlock is the annotation appended when a ticket is created.
func IntakeBlock(ticketCode string, at time.Time) string {
	return fmt.Sprintf(`--- CUSTOMER CARE INTELLIGENCE ---
✅ Attività presa in carico automaticamente
🎫 Ticket: %s
📅 Data: %s
🔗 Sistema: Intelligence Workflow
-----------------------------------`, ticketCode, at.Format(annotationDateLayout))
}

// TaskTransitionLine is the one-line annotation for a task move.
func TaskTransitionLine(taskName, oldStatus, newStatus, ticketCode string, at time.Time) string {
	return fmt.Sprintf("🔄 [%s] Task: %s   %s %s → %s %s   🎫 Ticket: %s",
		at.Format(annotationDateLayout), taskName,
		statusEmoji(oldStatus), oldStatus,
		statusEmoji(newStatus), newStatus,
		ticketCode)
}

// CompletionBlock is the annotation appended when a ticket closes.
func CompletionBlock(ticketCode string, at time.Time) string {
	return fmt.Sprintf(`--- CUSTOMER CARE INTELLIGENCE ---
🏁 Ticket completato: %s
✅ Tutte le attività sono state completate
📅 Data: %s
🔗 Sistema: Intelligence Workflow
-----------------------------------`, ticketCode, at.Format(annotationDateLayout))
}

// OnTicketCreated annotates the CRM activity after materialization.
func (s *WritebackService) OnTicketCreated(ctx context.Context, activity *entity.Activity, ticket *entity.Ticket) {
	s.append(ctx, activity.ExternalID, IntakeBlock(ticket.TicketCode, time.Now()), "ticket_created")
}

// OnTaskStatusChange annotates the CRM activity on a task transition.
func (s *WritebackService) OnTaskStatusChange(ctx context.Context, activity *entity.Activity, ticket *entity.Ticket, task *entity.Task, oldStatus, newStatus string) {
	line := TaskTransitionLine(task.Title, oldStatus, newStatus, ticket.TicketCode, time.Now())
	s.append(ctx, activity.ExternalID, line, "task_transition")
}

// OnTicketClose annotates the CRM activity when the ticket closes.
func (s *WritebackService) OnTicketClose(ctx context.Context, activity *entity.Activity, ticket *entity.Ticket) {
	s.append(ctx, activity.ExternalID, CompletionBlock(ticket.TicketCode, time.Now()), "ticket_close")
}

// OnActivityComplete closes the CRM activity after ticket closure.
func (s *WritebackService) OnActivityComplete(ctx context.Context, activity *entity.Activity, ticket *entity.Ticket) {
	if s.annotator == nil {
		return
	}
	if err := s.annotator.CloseActivity(ctx, activity.ExternalID); err != nil {
		s.logger.Warn("crm activity close failed, keeping local state",
			zap.Int64("external_id", activity.ExternalID),
			zap.String("ticket_code", ticket.TicketCode),
			zap.Error(err))
	}
}

func (s *WritebackService) append(ctx context.Context, externalID int64, text, event string) {
	if s.annotator == nil {
		return
	}
	if err := s.annotator.AppendActivityNote(ctx, externalID, text); err != nil {
		s.logger.Warn("crm writeback failed, keeping local state",
			zap.String("event", event),
			zap.Int64("external_id", externalID),
			zap.Error(err))
		return
	}
	s.logger.Info("crm writeback appended",
		zap.String("event", event),
		zap.Int64("external_id", externalID))
}
