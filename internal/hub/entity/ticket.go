package entity

import "time"

// Ticket is the operational work item materialized from one activity.
// At most one ticket exists per activity (unique activity_id).
type Ticket struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	TicketCode  string     `json:"ticket_code" gorm:"size:40;uniqueIndex;not null"`
	Title       string     `json:"title" gorm:"size:500;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      string     `json:"status" gorm:"size:20;default:open"`     // open/in-progress/closed
	Priority    string     `json:"priority" gorm:"size:20;default:medium"` // low/medium/high
	ActivityID  *string    `json:"activity_id" gorm:"size:32;uniqueIndex"`
	CompanyID   *string    `json:"company_id" gorm:"size:32"`
	KitID       *string    `json:"kit_id" gorm:"size:32"`
	AssignedTo  string     `json:"assigned_to" gorm:"size:32"`
	MilestoneID *string    `json:"milestone_id" gorm:"size:32"` // the single active milestone
	ClosedAt    *time.Time `json:"closed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Milestones []Milestone `json:"milestones,omitempty" gorm:"foreignKey:TicketID"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// Ticket status
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in-progress"
	TicketStatusClosed     = "closed"
)

// Milestone is a milestone template instance bound to one ticket.
// Exactly one milestone per ticket is non-closed at any time.
type Milestone struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:32"`
	TicketID           string     `json:"ticket_id" gorm:"size:32;not null;uniqueIndex:ux_milestone_ticket_order,priority:1"`
	TemplateID         string     `json:"workflow_milestone_template_id" gorm:"size:32"`
	Title              string     `json:"title" gorm:"size:200;not null"`
	Order              int        `json:"order" gorm:"column:sort_order;not null;uniqueIndex:ux_milestone_ticket_order,priority:2"`
	Status             string     `json:"status" gorm:"size:20;default:active"` // active/closed
	SLADeadline        *time.Time `json:"sla_deadline"`
	WarningDeadline    *time.Time `json:"warning_deadline"`
	EscalationDeadline *time.Time `json:"escalation_deadline"`
	ClosedAt           *time.Time `json:"closed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:MilestoneID"`
}

func (Milestone) TableName() string {
	return "milestones"
}

// Milestone status
const (
	MilestoneStatusActive = "active"
	MilestoneStatusClosed = "closed"
)

// Task is a task template instance bound to one milestone.
// (milestone_id, order) is unique within the milestone.
type Task struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:32"`
	MilestoneID        string     `json:"milestone_id" gorm:"size:32;not null;uniqueIndex:ux_task_milestone_order,priority:1"`
	Title              string     `json:"title" gorm:"size:200;not null"`
	Description        string     `json:"description" gorm:"type:text"`
	Status             string     `json:"status" gorm:"size:20;default:todo"` // todo/in-progress/completed/suspended/cancelled
	Order              int        `json:"order" gorm:"column:sort_order;not null;uniqueIndex:ux_task_milestone_order,priority:2"`
	AssignedTo         string     `json:"assigned_to" gorm:"size:32"`
	DueDate            *time.Time `json:"due_date"`
	SLADeadline        *time.Time `json:"sla_deadline"`
	WarningDeadline    *time.Time `json:"warning_deadline"`
	EscalationDeadline *time.Time `json:"escalation_deadline"`
	EstimatedHours     float64    `json:"estimated_hours"`
	ActualHours        *float64   `json:"actual_hours"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// Task status
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
	TaskStatusSuspended  = "suspended"
	TaskStatusCancelled  = "cancelled"
)

// TaskDone reports whether a task no longer blocks ticket closure.
func TaskDone(status string) bool {
	return status == TaskStatusCompleted || status == TaskStatusCancelled
}
