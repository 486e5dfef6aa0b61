package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Medicine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit      string          `gorm:"type:varchar(50)" json:"unit"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0" json:"stock"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Medicine) TableName() string {
	return "medicines"
}

func (m *Medicine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MedicineUsageLog records one successful stock consumption.
type MedicineUsageLog struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MedicineID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"medicine_id"`
	AppointmentID *uuid.UUID      `gorm:"type:uuid;index" json:"appointment_id,omitempty"`
	Amount        int             `gorm:"not null" json:"amount"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Cost          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost"`
	StockAfter    int             `gorm:"not null" json:"stock_after"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`

	// Relationships
	Medicine *Medicine `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
}

func (MedicineUsageLog) TableName() string {
	return "medicine_usage_logs"
}

func (l *MedicineUsageLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
