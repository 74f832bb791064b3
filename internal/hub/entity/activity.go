package entity

import "time"

// Activity is the local mirror of a CRM activity. Created once per
// external id; after insert only LastSynced and the materialization
// state are updated.
type Activity struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	ExternalID   int64     `json:"external_id" gorm:"uniqueIndex;not null"`
	SubTypeID    int64     `json:"sub_type_id" gorm:"index"`
	Subject      string    `json:"subject" gorm:"size:500"`
	Description  string    `json:"description" gorm:"type:text"`
	OwnerCRMID   int64     `json:"owner_crm_id"`
	CompanyCRMID int64     `json:"company_crm_id"`
	Status       string    `json:"status" gorm:"size:20;default:active"`   // active/in-progress/completed
	Priority     string    `json:"priority" gorm:"size:20;default:medium"` // low/medium/high
	// pending/ticketed/no-kit; no-kit rows are parked and excluded
	// from pipeline retries
	MaterializationState string     `json:"materialization_state" gorm:"size:20;default:pending;index"`
	ActivityDate         *time.Time `json:"activity_date"`
	LastSynced           time.Time  `json:"last_synced"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (Activity) TableName() string {
	return "activities"
}

// Normalized activity status
const (
	ActivityStatusActive     = "active"
	ActivityStatusInProgress = "in-progress"
	ActivityStatusCompleted  = "completed"
)

// Normalized activity priority
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Materialization state
const (
	MaterializationPending  = "pending"
	MaterializationTicketed = "ticketed"
	MaterializationNoKit    = "no-kit"
)
