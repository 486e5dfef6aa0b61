package repository

import (
	"go-clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicineRepository interface {
	Create(db *gorm.DB, medicine *entity.Medicine) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Medicine, error)
	// DecreaseStock subtracts amount only when enough stock remains.
	DecreaseStock(db *gorm.DB, id uuid.UUID, amount int) (int64, error)
	CreateUsageLog(db *gorm.DB, log *entity.MedicineUsageLog) error
	FindUsageLogsByMedicine(db *gorm.DB, medicineID uuid.UUID) ([]entity.MedicineUsageLog, error)
}
