package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAppointmentRequest struct {
	DoctorID             string `json:"doctor_id" validate:"required,uuid"`
	Date                 string `json:"date" validate:"required"` // Format: YYYY-MM-DD
	MinAppointmentNumber int    `json:"min_appointment_number" validate:"required,min=1"`
	MaxAppointmentNumber int    `json:"max_appointment_number" validate:"required,min=1,gtefield=MinAppointmentNumber"`
}

// CreateFirstAppointmentRequest books a first visit for someone without an account.
type CreateFirstAppointmentRequest struct {
	FullName    string `json:"full_name" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	NationalID  string `json:"national_id" validate:"required,min=8,max=32"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=10,max=20"`
	DateOfBirth string `json:"date_of_birth" validate:"required"` // Format: YYYY-MM-DD
	Gender      string `json:"gender" validate:"required,oneof=M F"`
	Date        string `json:"date" validate:"required"`
}

type MedicineLineRequest struct {
	MedicineID string `json:"medicine_id" validate:"required,uuid"`
	Amount     int    `json:"amount"`
}

type CompleteAppointmentRequest struct {
	Disease           string                `json:"disease" validate:"required"`
	Level             string                `json:"level" validate:"omitempty,max=50"`
	UnderlyingDisease string                `json:"underlying_disease"`
	Description       string                `json:"description"`
	Advice            string                `json:"advice"`
	MedicinesList     []MedicineLineRequest `json:"medicines_list" validate:"omitempty,dive"`
}

type FindFreeDoctorsRequest struct {
	Date                 string `json:"date" validate:"required"`
	MinAppointmentNumber int    `json:"min_appointment_number"`
	MaxAppointmentNumber int    `json:"max_appointment_number"`
}

// Response DTOs

// PersonResponse is the counterpart visible to the caller of an appointment read.
type PersonResponse struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	NationalID  string    `json:"national_id"`
	PhoneNumber string    `json:"phone_number"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	Gender      string    `json:"gender"`
}

type MedicineLineResponse struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Amount     int       `json:"amount"`
}

type AppointmentResponse struct {
	ID                uuid.UUID              `json:"id"`
	Date              string                 `json:"date"`
	QueueNumber       int                    `json:"queue_number"`
	Status            string                 `json:"status"`
	NurseID           uuid.UUID              `json:"nurse_id"`
	Doctor            *PersonResponse        `json:"doctor,omitempty"`
	Patient           *PersonResponse        `json:"patient,omitempty"`
	Disease           string                 `json:"disease,omitempty"`
	Level             string                 `json:"level,omitempty"`
	UnderlyingDisease string                 `json:"underlying_disease,omitempty"`
	Description       string                 `json:"description,omitempty"`
	Advice            string                 `json:"advice,omitempty"`
	MedicinesList     []MedicineLineResponse `json:"medicines_list"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

// FirstAppointmentResponse never carries the initial secret. It is queued
// for staff pickup and the patient logs in with Login once handed over.
type FirstAppointmentResponse struct {
	Appointment        AppointmentResponse `json:"appointment"`
	Login              string              `json:"login"`
	CredentialDelivery string              `json:"credential_delivery"`
}

const CredentialDeliveryPendingPickup = "pending_pickup"

// MedicineLogResponse is the outcome of dispensing one prescribed line.
type MedicineLogResponse struct {
	MedicineID uuid.UUID                 `json:"medicine_id"`
	Amount     int                       `json:"amount"`
	Success    bool                      `json:"success"`
	Message    string                    `json:"message,omitempty"`
	Usage      *MedicineUsageLogResponse `json:"usage,omitempty"`
}

type CompleteAppointmentResponse struct {
	Appointment  AppointmentResponse   `json:"appointment"`
	MedicineLogs []MedicineLogResponse `json:"medicine_logs"`
}

type FreeDoctorResponse struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Booked      int       `json:"booked"`
	Free        int       `json:"free"`
}

type FreeDoctorListResponse struct {
	Date    string               `json:"date"`
	Min     int                  `json:"min_appointment_number"`
	Max     int                  `json:"max_appointment_number"`
	Doctors []FreeDoctorResponse `json:"doctors"`
}

type ScheduleEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	Date        string    `json:"date"`
	QueueNumber int       `json:"queue_number"`
}

type DoctorScheduleResponse struct {
	DoctorID     uuid.UUID               `json:"doctor_id"`
	FullName     string                  `json:"full_name"`
	Appointments []ScheduleEntryResponse `json:"appointments"`
}
