package entity

import "time"

// User maps a CRM owner id to an internal user. Maintained by the
// broader application; the pipeline only reads it.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	CRMID     int64     `json:"crm_id" gorm:"index"`
	Name      string    `json:"name" gorm:"size:200"`
	Email     string    `json:"email" gorm:"size:200"`
	Role      string    `json:"role" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Company is the local record for a CRM company. Synced by the
// companies collaborator stage; the pipeline only resolves ids.
type Company struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	CRMID     int64     `json:"crm_id" gorm:"uniqueIndex"`
	Name      string    `json:"name" gorm:"size:300"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
