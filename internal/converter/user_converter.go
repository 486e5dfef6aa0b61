package converter

import (
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO.
// The role name falls back to the role id when Role is not preloaded.
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	role := user.Role.RoleName
	if role == "" {
		role = entity.RoleName(user.RoleID)
	}

	return &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      role,
		IsActive:  user.Active(),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// UserToPerson projects the fields an appointment counterpart may see.
func UserToPerson(user *entity.User) *dto.PersonResponse {
	if user == nil {
		return nil
	}

	person := &dto.PersonResponse{
		ID:          user.ID,
		FullName:    user.FullName,
		NationalID:  user.NationalID,
		PhoneNumber: user.PhoneNumber,
		Gender:      user.Gender,
	}
	if user.DateOfBirth != nil && !user.DateOfBirth.IsZero() {
		person.DateOfBirth = user.DateOfBirth.String()
	}
	return person
}
