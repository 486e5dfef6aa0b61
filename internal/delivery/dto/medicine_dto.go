package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateMedicineRequest struct {
	Name  string          `json:"name" validate:"required,min=2,max=255"`
	Unit  string          `json:"unit" validate:"omitempty,max=50"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"min=0"`
}

type UseMedicineRequest struct {
	Amount        int    `json:"amount"`
	AppointmentID string `json:"appointment_id" validate:"omitempty,uuid"`
}

// Response DTOs

type MedicineResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type MedicineUsageLogResponse struct {
	ID            uuid.UUID       `json:"id"`
	MedicineID    uuid.UUID       `json:"medicine_id"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	Amount        int             `json:"amount"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Cost          decimal.Decimal `json:"cost"`
	StockAfter    int             `json:"stock_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

type MedicineUsageLogListResponse struct {
	Logs      []MedicineUsageLogResponse `json:"logs"`
	Total     int                        `json:"total"`
	TotalCost decimal.Decimal            `json:"total_cost"`
}
