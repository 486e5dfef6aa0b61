package repository

import (
	"errors"

	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type medicineRepository struct{}

func NewMedicineRepository() domainRepo.MedicineRepository {
	return &medicineRepository{}
}

func (r *medicineRepository) Create(db *gorm.DB, medicine *entity.Medicine) error {
	return db.Create(medicine).Error
}

func (r *medicineRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Medicine, error) {
	var medicine entity.Medicine
	err := db.Where("id = ?", id).First(&medicine).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepository) DecreaseStock(db *gorm.DB, id uuid.UUID, amount int) (int64, error) {
	result := db.Model(&entity.Medicine{}).
		Where("id = ? AND stock >= ?", id, amount).
		Update("stock", gorm.Expr("stock - ?", amount))
	return result.RowsAffected, result.Error
}

func (r *medicineRepository) CreateUsageLog(db *gorm.DB, log *entity.MedicineUsageLog) error {
	return db.Omit("Medicine").Create(log).Error
}

func (r *medicineRepository) FindUsageLogsByMedicine(db *gorm.DB, medicineID uuid.UUID) ([]entity.MedicineUsageLog, error) {
	var logs []entity.MedicineUsageLog
	err := db.Where("medicine_id = ?", medicineID).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
