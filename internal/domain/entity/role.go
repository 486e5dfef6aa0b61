package entity

import "github.com/google/uuid"

// Role represents a user role in the system
type Role struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	RoleName    string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Role ID constants
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
	RoleIDNurse   = 4
)

// RoleNames constants
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
	RoleNurse   = "nurse"
)

// DefaultRoles lists the rows every database must carry.
func DefaultRoles() []Role {
	return []Role{
		{ID: RoleIDAdmin, RoleName: RoleAdmin, Description: "Clinic administrator"},
		{ID: RoleIDDoctor, RoleName: RoleDoctor, Description: "Performs visits"},
		{ID: RoleIDPatient, RoleName: RolePatient, Description: "Subject of visits"},
		{ID: RoleIDNurse, RoleName: RoleNurse, Description: "Supports visits"},
	}
}

// RoleName returns the name of a role id, or "unknown".
func RoleName(roleID int) string {
	switch roleID {
	case RoleIDAdmin:
		return RoleAdmin
	case RoleIDDoctor:
		return RoleDoctor
	case RoleIDPatient:
		return RolePatient
	case RoleIDNurse:
		return RoleNurse
	default:
		return "unknown"
	}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID     uuid.UUID
	RoleID int
}

func (a Actor) IsAdmin() bool   { return a.RoleID == RoleIDAdmin }
func (a Actor) IsDoctor() bool  { return a.RoleID == RoleIDDoctor }
func (a Actor) IsPatient() bool { return a.RoleID == RoleIDPatient }
