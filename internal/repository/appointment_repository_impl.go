package repository

import (
	"errors"

	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(appointment).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainRepo.ErrDuplicateQueueNumber
	}
	return err
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := withPeople(db).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *appointmentRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindOne(db *gorm.DB, filter entity.AppointmentFilter) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := applyFilter(withPeople(db), filter).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := applyFilter(withPeople(db), filter).
		Order("date DESC").
		Order("queue_number ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindCreatedByDoctor(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Select("id", "date", "queue_number", "status", "doctor_id", "patient_id", "nurse_id").
		Where("doctor_id = ? AND status = ?", doctorID, entity.AppointmentStatusCreated).
		Order("date ASC").
		Order("queue_number ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// OccupiedQueueNumbers returns taken queue numbers inside the range in ascending order.
// Cancelled appointments keep their number.
func (r *appointmentRepository) OccupiedQueueNumbers(db *gorm.DB, doctorID uuid.UUID, date entity.Date, queueRange entity.QueueRange) ([]int, error) {
	var numbers []int
	err := db.Model(&entity.Appointment{}).
		Where("doctor_id = ? AND date = ?", doctorID, date).
		Where("queue_number BETWEEN ? AND ?", queueRange.Min, queueRange.Max).
		Order("queue_number ASC").
		Pluck("queue_number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *appointmentRepository) ExistsForPatient(db *gorm.DB, patientID uuid.UUID, date entity.Date, queueRange *entity.QueueRange) (bool, error) {
	query := db.Model(&entity.Appointment{}).
		Where("patient_id = ? AND date = ? AND status <> ?", patientID, date, entity.AppointmentStatusCancel)
	if queueRange != nil {
		query = query.Where("queue_number BETWEEN ? AND ?", queueRange.Min, queueRange.Max)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transition is a compare-and-set on status: 1 = applied, 0 = status already moved on.
func (r *appointmentRepository) Transition(db *gorm.DB, id uuid.UUID, from entity.AppointmentStatus, updates map[string]interface{}) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func withPeople(db *gorm.DB) *gorm.DB {
	return db.Preload("Doctor").Preload("Patient").Preload("Nurse")
}

func applyFilter(db *gorm.DB, filter entity.AppointmentFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("appointments.id = ?", *filter.ID)
	}
	if filter.DoctorID != nil {
		db = db.Where("appointments.doctor_id = ?", *filter.DoctorID)
	}
	if filter.PatientID != nil {
		db = db.Where("appointments.patient_id = ?", *filter.PatientID)
	}
	if filter.Status != "" {
		db = db.Where("appointments.status = ?", filter.Status)
	}
	return db
}
