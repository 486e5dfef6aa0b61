package repository

import (
	"go-clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(db *gorm.DB, user *entity.User) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error)
	FindByEmail(db *gorm.DB, email string) (*entity.User, error)
	FindActiveByIDAndRole(db *gorm.DB, id uuid.UUID, roleID int) (*entity.User, error)
	FindActiveByRole(db *gorm.DB, roleID int) ([]entity.User, error)
	FindDoctorsFreeOn(db *gorm.DB, date entity.Date) ([]entity.User, error)
	FindDoctorsWithCapacity(db *gorm.DB, date entity.Date, queueRange entity.QueueRange) ([]entity.DoctorCapacity, error)
}

type RoleRepository interface {
	EnsureDefaults(db *gorm.DB) error
}
