package usecase

import (
	"context"

	"go-clinic-scheduler/internal/converter"
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AppointmentQueryUsecase serves role-scoped appointment reads.
type AppointmentQueryUsecase interface {
	FindAll(ctx context.Context, actor entity.Actor, status string) (*dto.AppointmentListResponse, error)
	FindOne(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorScheduleResponse, error)
}

type appointmentQueryUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	userRepo        repository.UserRepository
}

func NewAppointmentQueryUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
) AppointmentQueryUsecase {
	return &appointmentQueryUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		userRepo:        userRepo,
	}
}

func (u *appointmentQueryUsecase) FindAll(ctx context.Context, actor entity.Actor, status string) (*dto.AppointmentListResponse, error) {
	filter, err := ownershipFilter(actor)
	if err != nil {
		return nil, err
	}
	if status != "" {
		s := entity.AppointmentStatus(status)
		if !s.Valid() {
			return nil, ErrInvalidStatus
		}
		filter.Status = s
	}

	appointments, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to find appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments, actor),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentQueryUsecase) FindOne(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	filter, err := ownershipFilter(actor)
	if err != nil {
		return nil, err
	}
	filter.ID = &appointmentID

	appointment, err := u.appointmentRepo.FindOne(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment, actor), nil
}

func (u *appointmentQueryUsecase) GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorScheduleResponse, error) {
	db := u.db.WithContext(ctx)

	doctor, err := u.userRepo.FindActiveByIDAndRole(db, doctorID, entity.RoleIDDoctor)
	if err != nil {
		u.log.Warnf("Failed to find doctor: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	appointments, err := u.appointmentRepo.FindCreatedByDoctor(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor schedule: %+v", err)
		return nil, err
	}

	return converter.AppointmentsToSchedule(doctor, appointments), nil
}

// ownershipFilter restricts reads to the caller's own appointments unless they are admin.
func ownershipFilter(actor entity.Actor) (entity.AppointmentFilter, error) {
	var filter entity.AppointmentFilter
	switch {
	case actor.IsAdmin():
	case actor.IsDoctor():
		filter.DoctorID = &actor.ID
	case actor.IsPatient():
		filter.PatientID = &actor.ID
	default:
		return filter, ErrRoleNotAllowed
	}
	return filter, nil
}
