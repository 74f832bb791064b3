package entity

import "time"

// Kit is a commercial kit catalog entry. The catalog is loaded once
// per pipeline run and read-only while the run is in flight.
type Kit struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	Name           string     `json:"name" gorm:"size:200;not null"`
	Code           string     `json:"code" gorm:"size:20;uniqueIndex;not null"`
	DefaultOwnerID *string    `json:"default_owner_id" gorm:"size:32"`
	SortOrder      int        `json:"sort_order" gorm:"default:0"`
	Active         bool       `json:"active" gorm:"default:true"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Aliases []KitAlias `json:"aliases,omitempty" gorm:"foreignKey:KitID"`
}

func (Kit) TableName() string {
	return "kit_commerciali"
}

// KitAlias is one free-text alias of a kit. Position preserves
// insertion order so matching ties are reproducible.
type KitAlias struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	KitID    string `json:"kit_id" gorm:"size:32;not null;index"`
	Alias    string `json:"alias" gorm:"size:200;not null"`
	Position int    `json:"position" gorm:"default:0"`
}

func (KitAlias) TableName() string {
	return "kit_aliases"
}
