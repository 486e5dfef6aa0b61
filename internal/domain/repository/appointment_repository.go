package repository

import (
	"go-clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	// Create inserts the appointment inside its own savepoint so a unique
	// violation leaves an enclosing transaction usable.
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindOne(db *gorm.DB, filter entity.AppointmentFilter) (*entity.Appointment, error)
	FindAll(db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error)
	FindCreatedByDoctor(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error)
	OccupiedQueueNumbers(db *gorm.DB, doctorID uuid.UUID, date entity.Date, queueRange entity.QueueRange) ([]int, error)
	// ExistsForPatient ignores cancelled appointments. A nil range matches the whole date.
	ExistsForPatient(db *gorm.DB, patientID uuid.UUID, date entity.Date, queueRange *entity.QueueRange) (bool, error)
	// Transition applies updates only while the appointment is still in status from.
	// It returns the number of rows changed (0 or 1).
	Transition(db *gorm.DB, id uuid.UUID, from entity.AppointmentStatus, updates map[string]interface{}) (int64, error)
}
