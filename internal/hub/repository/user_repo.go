package repository

import (
	"context"
	"errors"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"gorm.io/gorm"
)

// UserRepository reads the user mapping maintained by the broader app.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByCRMID maps a CRM owner id to an internal user, or ErrNotFound.
func (r *UserRepository) FindByCRMID(ctx context.Context, crmID int64) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).Where("crm_id = ?", crmID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByID looks a user up by internal id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CompanyRepository reads the local company mirror.
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindByCRMID maps a CRM company id to a local company, or nil.
func (r *CompanyRepository) FindByCRMID(ctx context.Context, crmID int64) (*entity.Company, error) {
	var c entity.Company
	err := r.db.WithContext(ctx).Where("crm_id = ?", crmID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
