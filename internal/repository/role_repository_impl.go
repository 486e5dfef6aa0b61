package repository

import (
	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roleRepository struct{}

func NewRoleRepository() domainRepo.RoleRepository {
	return &roleRepository{}
}

func (r *roleRepository) EnsureDefaults(db *gorm.DB) error {
	roles := entity.DefaultRoles()
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error
}
