package entity

import "time"

// WorkflowTemplate is an ordered list of milestone templates. One
// template is flagged as the default used by the materializer.
type WorkflowTemplate struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	IsDefault bool      `json:"is_default" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Milestones []MilestoneTemplate `json:"milestones,omitempty" gorm:"foreignKey:WorkflowTemplateID"`
}

func (WorkflowTemplate) TableName() string {
	return "workflow_templates"
}

// MilestoneTemplate is one stage of a workflow template. Orders are
// dense and 1-based. SLA tiers are in calendar days; escalation is
// measured after the SLA breach.
type MilestoneTemplate struct {
	ID                 string  `json:"id" gorm:"primaryKey;size:32"`
	WorkflowTemplateID string  `json:"workflow_template_id" gorm:"size:32;not null;index"`
	Name               string  `json:"name" gorm:"size:200;not null"`
	Order              int     `json:"order" gorm:"column:sort_order;not null"`
	SLADays            int     `json:"sla_days" gorm:"not null"`
	WarningDays        int     `json:"warning_days" gorm:"not null"`
	EscalationDays     int     `json:"escalation_days" gorm:"not null"`

	Tasks []TaskTemplate `json:"tasks,omitempty" gorm:"foreignKey:MilestoneTemplateID"`
}

func (MilestoneTemplate) TableName() string {
	return "workflow_milestones"
}

// TaskTemplate is one task within a milestone template.
type TaskTemplate struct {
	ID                  string  `json:"id" gorm:"primaryKey;size:32"`
	MilestoneTemplateID string  `json:"milestone_template_id" gorm:"size:32;not null;index"`
	Name                string  `json:"name" gorm:"size:200;not null"`
	Description         string  `json:"description" gorm:"type:text"`
	Order               int     `json:"order" gorm:"column:sort_order;not null"`
	EstimatedHours      float64 `json:"estimated_hours" gorm:"default:8"`
	Mandatory           bool    `json:"mandatory" gorm:"default:true"`
}

func (TaskTemplate) TableName() string {
	return "milestone_task_templates"
}
