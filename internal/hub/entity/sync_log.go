package entity

import "time"

// SyncLog records one pipeline run with its per-stage counters, so
// partial and failed outcomes can be inspected after the fact.
type SyncLog struct {
	ID         string     `json:"id" gorm:"primaryKey;size:32"`
	Outcome    string     `json:"outcome" gorm:"size:20"` // ok/partial/failed
	Report     string     `json:"report" gorm:"type:jsonb"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

// Pipeline outcome
const (
	SyncOutcomeOK      = "ok"
	SyncOutcomePartial = "partial"
	SyncOutcomeFailed  = "failed"
)
