package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// User is every person the clinic knows: admins, doctors, nurses and patients.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoleID      int       `gorm:"not null;index" json:"role_id"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"type:text;not null" json:"-"`
	FullName    string    `gorm:"type:varchar(255);not null" json:"full_name"`
	NationalID  string    `gorm:"type:varchar(32)" json:"national_id"`
	PhoneNumber string    `gorm:"type:varchar(32)" json:"phone_number"`
	DateOfBirth *Date     `gorm:"type:date" json:"date_of_birth,omitempty"`
	Gender      string    `gorm:"type:varchar(1)" json:"gender"`
	IsActive    *bool     `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

func BoolPtr(b bool) *bool {
	return &b
}

// PatientRegistration is the result of provisioning a patient account.
// InitialSecret is plaintext and must only travel through the credential side channel.
type PatientRegistration struct {
	UserID        uuid.UUID
	Email         string
	InitialSecret string
}
