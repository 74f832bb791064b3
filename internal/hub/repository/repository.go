package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories is the hub repository collection.
type Repositories struct {
	Activity *ActivityRepository
	Kit      *KitRepository
	Template *TemplateRepository
	Ticket   *TicketRepository
	Task     *TaskRepository
	User     *UserRepository
	Company  *CompanyRepository
	SyncLog  *SyncLogRepository
}

// NewRepositories creates the hub repository collection.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Activity: NewActivityRepository(db),
		Kit:      NewKitRepository(db),
		Template: NewTemplateRepository(db),
		Ticket:   NewTicketRepository(db),
		Task:     NewTaskRepository(db),
		User:     NewUserRepository(db),
		Company:  NewCompanyRepository(db),
		SyncLog:  NewSyncLogRepository(db),
	}
}
