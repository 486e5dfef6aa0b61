package usecase

import (
	"context"
	"errors"
	"time"

	"go-clinic-scheduler/internal/converter"
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SchedulerOptions tunes the booking window and the first-visit queue range.
type SchedulerOptions struct {
	HorizonDays     int
	FirstVisitRange entity.QueueRange
	Now             func() time.Time
}

type AppointmentScheduler interface {
	Create(ctx context.Context, patientID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	CreateFirstTime(ctx context.Context, req *dto.CreateFirstAppointmentRequest) (*dto.FirstAppointmentResponse, error)
}

type appointmentScheduler struct {
	db                *gorm.DB
	log               *logrus.Logger
	appointmentRepo   repository.AppointmentRepository
	userRepo          repository.UserRepository
	checker           *ConflictChecker
	allocator         *SlotAllocator
	assigner          *ResourceAssigner
	locker            service.SlotLocker
	authUsecase       AuthUsecase
	auditService      service.AuditService
	credentialService service.CredentialService
	opts              SchedulerOptions
}

func NewAppointmentScheduler(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	assigner *ResourceAssigner,
	locker service.SlotLocker,
	authUsecase AuthUsecase,
	auditService service.AuditService,
	credentialService service.CredentialService,
	opts SchedulerOptions,
) AppointmentScheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	checker := NewConflictChecker(appointmentRepo)
	return &appointmentScheduler{
		db:                db,
		log:               log,
		appointmentRepo:   appointmentRepo,
		userRepo:          userRepo,
		checker:           checker,
		allocator:         NewSlotAllocator(checker),
		assigner:          assigner,
		locker:            locker,
		authUsecase:       authUsecase,
		auditService:      auditService,
		credentialService: credentialService,
		opts:              opts,
	}
}

func (u *appointmentScheduler) Create(ctx context.Context, patientID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	date, err := u.validateDate(req.Date)
	if err != nil {
		return nil, err
	}

	queueRange := entity.QueueRange{Min: req.MinAppointmentNumber, Max: req.MaxAppointmentNumber}
	if !queueRange.Valid() {
		return nil, ErrInvalidQueueRange
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, ErrDoctorNotFound
	}

	var appointment *entity.Appointment
	err = u.withSlotLock(ctx, doctorID, date, func(ctx context.Context) error {
		tx := u.db.WithContext(ctx).Begin()
		defer tx.Rollback()

		doctor, err := u.userRepo.FindActiveByIDAndRole(tx, doctorID, entity.RoleIDDoctor)
		if err != nil {
			u.log.Warnf("Failed to find doctor: %+v", err)
			return err
		}
		if doctor == nil {
			return ErrDoctorNotFound
		}

		booked, err := u.checker.PatientHasBooking(tx, patientID, date, &queueRange)
		if err != nil {
			u.log.Warnf("Failed to check patient bookings: %+v", err)
			return err
		}
		if booked {
			return ErrPatientAlreadyBooked
		}

		nurse, err := u.assigner.AssignNurse(tx)
		if err != nil {
			return err
		}

		appointment = &entity.Appointment{
			DoctorID:  doctorID,
			PatientID: patientID,
			NurseID:   nurse.ID,
			Date:      date,
			Status:    entity.AppointmentStatusCreated,
		}
		if err := u.insertWithLowestSlot(tx, appointment, queueRange); err != nil {
			return err
		}

		if err := u.auditService.LogCreate(ctx, tx, &patientID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), map[string]interface{}{
			"doctor_id":    doctorID.String(),
			"date":         date.String(),
			"queue_number": appointment.QueueNumber,
			"nurse_id":     nurse.ID.String(),
		}); err != nil {
			return err
		}

		if err := tx.Commit().Error; err != nil {
			u.log.Warnf("Failed commit transaction: %+v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Infof("Appointment created: id=%s doctor=%s date=%s queue=%d", appointment.ID, doctorID, date, appointment.QueueNumber)

	created, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil {
		u.log.Warnf("Failed to reload appointment: %+v", err)
		return nil, err
	}
	return converter.AppointmentToResponse(created, entity.Actor{ID: patientID, RoleID: entity.RoleIDPatient}), nil
}

func (u *appointmentScheduler) CreateFirstTime(ctx context.Context, req *dto.CreateFirstAppointmentRequest) (*dto.FirstAppointmentResponse, error) {
	date, err := u.validateDate(req.Date)
	if err != nil {
		return nil, err
	}

	// Drawn before the lock so no connection is held while waiting on it.
	doctor, err := u.assigner.AssignFreeDoctor(u.db.WithContext(ctx), date)
	if err != nil {
		if !errors.Is(err, ErrNoDoctorAvailable) {
			u.log.Warnf("Failed to find free doctor: %+v", err)
		}
		return nil, err
	}

	var (
		registration *entity.PatientRegistration
		appointment  *entity.Appointment
	)
	err = u.withSlotLock(ctx, doctor.ID, date, func(ctx context.Context) error {
		tx := u.db.WithContext(ctx).Begin()
		defer tx.Rollback()

		existing, err := u.userRepo.FindByEmail(tx, req.Email)
		if err != nil {
			u.log.Warnf("Failed to find user by email: %+v", err)
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		registration, err = u.authUsecase.RegisterPatient(ctx, tx, &dto.RegisterPatientRequest{
			Email:       req.Email,
			FullName:    req.FullName,
			NationalID:  req.NationalID,
			PhoneNumber: req.PhoneNumber,
			DateOfBirth: req.DateOfBirth,
			Gender:      req.Gender,
		})
		if err != nil {
			return err
		}

		booked, err := u.checker.PatientHasBooking(tx, registration.UserID, date, nil)
		if err != nil {
			u.log.Warnf("Failed to check patient bookings: %+v", err)
			return err
		}
		if booked {
			return ErrPatientAlreadyBooked
		}

		nurse, err := u.assigner.AssignNurse(tx)
		if err != nil {
			return err
		}

		appointment = &entity.Appointment{
			DoctorID:  doctor.ID,
			PatientID: registration.UserID,
			NurseID:   nurse.ID,
			Date:      date,
			Status:    entity.AppointmentStatusCreated,
		}
		if err := u.insertWithLowestSlot(tx, appointment, u.opts.FirstVisitRange); err != nil {
			return err
		}

		if err := u.auditService.LogCreate(ctx, tx, &registration.UserID, entity.AuditActionAppointmentFirstVisit, "appointment", appointment.ID.String(), map[string]interface{}{
			"doctor_id":    doctor.ID.String(),
			"date":         date.String(),
			"queue_number": appointment.QueueNumber,
			"nurse_id":     nurse.ID.String(),
		}); err != nil {
			return err
		}

		if err := tx.Commit().Error; err != nil {
			u.log.Warnf("Failed commit transaction: %+v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Infof("First visit created: id=%s patient=%s doctor=%s date=%s queue=%d", appointment.ID, registration.UserID, doctor.ID, date, appointment.QueueNumber)

	// The booking is committed. A delivery failure is logged and left for staff
	// to resolve rather than undoing the appointment.
	if err := u.credentialService.Deliver(ctx, registration); err != nil {
		u.log.Errorf("Failed to queue credential for user %s: %+v", registration.UserID, err)
	}

	appointment.Doctor = doctor
	return &dto.FirstAppointmentResponse{
		Appointment:        *converter.AppointmentToResponse(appointment, entity.Actor{ID: registration.UserID, RoleID: entity.RoleIDPatient}),
		Login:              registration.Email,
		CredentialDelivery: dto.CredentialDeliveryPendingPickup,
	}, nil
}

// validateDate parses a booking date and rejects it outside [now, now + horizon].
func (u *appointmentScheduler) validateDate(raw string) (entity.Date, error) {
	date, err := entity.ParseDate(raw)
	if err != nil {
		return entity.Date{}, ErrInvalidDateFormat
	}

	now := u.opts.Now()
	if date.Time.Before(now) {
		return entity.Date{}, ErrDateInPast
	}
	if date.Time.After(now.AddDate(0, 0, u.opts.HorizonDays)) {
		return entity.Date{}, ErrDateBeyondHorizon
	}
	return date, nil
}

// insertWithLowestSlot assigns the lowest free number in queueRange and inserts.
// A unique violation means a concurrent booker took the number, so the scan
// runs exactly once more before giving up.
func (u *appointmentScheduler) insertWithLowestSlot(tx *gorm.DB, appointment *entity.Appointment, queueRange entity.QueueRange) error {
	for attempt := 0; attempt < 2; attempt++ {
		number, err := u.allocator.LowestFree(tx, appointment.DoctorID, appointment.Date, queueRange)
		if err != nil {
			if !errors.Is(err, ErrQueueExhausted) {
				u.log.Warnf("Failed to scan queue numbers: %+v", err)
			}
			return err
		}

		appointment.QueueNumber = number
		err = u.appointmentRepo.Create(tx, appointment)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateQueueNumber) {
			u.log.Warnf("Failed to create appointment: %+v", err)
			return err
		}
		u.log.Debugf("Queue number %d taken concurrently for doctor=%s date=%s, rescanning", number, appointment.DoctorID, appointment.Date)
	}
	return ErrQueueContended
}

func (u *appointmentScheduler) withSlotLock(ctx context.Context, doctorID uuid.UUID, date entity.Date, fn func(ctx context.Context) error) error {
	err := u.locker.WithSlotLock(ctx, doctorID, date, fn)
	if errors.Is(err, service.ErrSlotLockBusy) {
		return ErrBookingSlotBusy
	}
	return err
}
