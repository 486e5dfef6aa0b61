package repository

import (
	"errors"

	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct{}

func NewUserRepository() domainRepo.UserRepository {
	return &userRepository{}
}

func (r *userRepository) Create(db *gorm.DB, user *entity.User) error {
	err := db.Omit(clause.Associations).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainRepo.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(db *gorm.DB, email string) (*entity.User, error) {
	var user entity.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindActiveByIDAndRole(db *gorm.DB, id uuid.UUID, roleID int) (*entity.User, error) {
	var user entity.User
	err := db.Where("id = ? AND role_id = ? AND is_active = ?", id, roleID, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindActiveByRole(db *gorm.DB, roleID int) ([]entity.User, error) {
	var users []entity.User
	err := db.Where("role_id = ? AND is_active = ?", roleID, true).
		Order("full_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// FindDoctorsFreeOn returns active doctors without a non-cancelled appointment on date.
func (r *userRepository) FindDoctorsFreeOn(db *gorm.DB, date entity.Date) ([]entity.User, error) {
	var users []entity.User
	err := db.Where("users.role_id = ? AND users.is_active = ?", entity.RoleIDDoctor, true).
		Where(`NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE appointments.doctor_id = users.id AND appointments.date = ? AND appointments.status <> ?
		)`, date, entity.AppointmentStatusCancel).
		Order("users.full_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// FindDoctorsWithCapacity returns active doctors with fewer booked numbers in the
// range than the range holds. Doctors with nothing booked in the range on date
// (including nothing on date at all) have Booked = 0.
func (r *userRepository) FindDoctorsWithCapacity(db *gorm.DB, date entity.Date, queueRange entity.QueueRange) ([]entity.DoctorCapacity, error) {
	var doctors []entity.DoctorCapacity
	err := db.Table("users").
		Select("users.id, users.full_name, users.email, users.phone_number, COUNT(appointments.id) AS booked").
		Joins(`LEFT JOIN appointments ON appointments.doctor_id = users.id
			AND appointments.date = ?
			AND appointments.queue_number BETWEEN ? AND ?`, date, queueRange.Min, queueRange.Max).
		Where("users.role_id = ? AND users.is_active = ?", entity.RoleIDDoctor, true).
		Group("users.id, users.full_name, users.email, users.phone_number").
		Having("COUNT(appointments.id) < ?", queueRange.Size()).
		Order("booked ASC").
		Order("users.full_name ASC").
		Scan(&doctors).Error
	if err != nil {
		return nil, err
	}
	return doctors, nil
}
