package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusCreated AppointmentStatus = "CREATED"
	AppointmentStatusDone    AppointmentStatus = "DONE"
	AppointmentStatusCancel  AppointmentStatus = "CANCEL"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusCreated, AppointmentStatusDone, AppointmentStatusCancel:
		return true
	}
	return false
}

// MedicineLine is one prescribed medicine on a completed appointment.
type MedicineLine struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Amount     int       `json:"amount"`
}

// Appointment is a booked visit. (doctor_id, date, queue_number) is unique.
type Appointment struct {
	ID                uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID          uuid.UUID                         `gorm:"type:uuid;not null;uniqueIndex:uq_appointments_doctor_date_queue,priority:1" json:"doctor_id"`
	Date              Date                              `gorm:"type:date;not null;uniqueIndex:uq_appointments_doctor_date_queue,priority:2;index:idx_appointments_patient_date,priority:2" json:"date"`
	QueueNumber       int                               `gorm:"not null;uniqueIndex:uq_appointments_doctor_date_queue,priority:3" json:"queue_number"`
	PatientID         uuid.UUID                         `gorm:"type:uuid;not null;index:idx_appointments_patient_date,priority:1" json:"patient_id"`
	NurseID           uuid.UUID                         `gorm:"type:uuid;not null" json:"nurse_id"`
	Status            AppointmentStatus                 `gorm:"type:varchar(16);not null;default:'CREATED';index" json:"status"`
	Disease           string                            `gorm:"type:text" json:"disease"`
	Level             string                            `gorm:"type:varchar(50)" json:"level"`
	UnderlyingDisease string                            `gorm:"type:text" json:"underlying_disease"`
	Description       string                            `gorm:"type:text" json:"description"`
	Advice            string                            `gorm:"type:text" json:"advice"`
	MedicinesList     datatypes.JSONSlice[MedicineLine] `gorm:"type:jsonb" json:"medicines_list"`
	CreatedAt         time.Time                         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Nurse   *User `gorm:"foreignKey:NurseID" json:"nurse,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AppointmentStatusCreated
	}
	if a.MedicinesList == nil {
		a.MedicinesList = datatypes.JSONSlice[MedicineLine]{}
	}
	return nil
}

// IsCreated reports whether the appointment can still be cancelled or completed
func (a *Appointment) IsCreated() bool {
	return a.Status == AppointmentStatusCreated
}

// AppointmentFilter narrows appointment lookups. Nil fields do not filter.
type AppointmentFilter struct {
	ID        *uuid.UUID
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    AppointmentStatus
}

// DoctorCapacity is a doctor with the number of booked queue numbers in a range.
type DoctorCapacity struct {
	ID          uuid.UUID
	FullName    string
	Email       string
	PhoneNumber string
	Booked      int64
}
