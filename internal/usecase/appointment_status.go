package usecase

import (
	"context"
	"errors"
	"fmt"

	"go-clinic-scheduler/internal/converter"
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StatusStateMachine moves appointments out of CREATED. DONE and CANCEL are terminal.
type StatusStateMachine interface {
	Cancel(ctx context.Context, appointmentID uuid.UUID, actor entity.Actor) (*dto.AppointmentResponse, error)
	Complete(ctx context.Context, doctorID uuid.UUID, appointmentID uuid.UUID, req *dto.CompleteAppointmentRequest) (*dto.CompleteAppointmentResponse, error)
}

type statusStateMachine struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	userRepo        repository.UserRepository
	medicineUsecase MedicineUsecase
	auditService    service.AuditService
}

func NewStatusStateMachine(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	medicineUsecase MedicineUsecase,
	auditService service.AuditService,
) StatusStateMachine {
	return &statusStateMachine{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		userRepo:        userRepo,
		medicineUsecase: medicineUsecase,
		auditService:    auditService,
	}
}

func (u *statusStateMachine) Cancel(ctx context.Context, appointmentID uuid.UUID, actor entity.Actor) (*dto.AppointmentResponse, error) {
	if !actor.IsAdmin() && !actor.IsDoctor() && !actor.IsPatient() {
		return nil, ErrRoleNotAllowed
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	// Ownership before state, so non-owners learn nothing about the record.
	if actor.IsPatient() && appointment.PatientID != actor.ID {
		return nil, ErrNotAppointmentOwner
	}
	if actor.IsDoctor() && appointment.DoctorID != actor.ID {
		return nil, ErrNotAppointmentOwner
	}
	if !appointment.IsCreated() {
		return nil, ErrAppointmentNotCreated
	}

	note := fmt.Sprintf("canceled by user_id %s, role %s", actor.ID, entity.RoleName(actor.RoleID))
	affected, err := u.appointmentRepo.Transition(tx, appointmentID, entity.AppointmentStatusCreated, map[string]interface{}{
		"status":      entity.AppointmentStatusCancel,
		"description": note,
	})
	if err != nil {
		u.log.Warnf("Failed to cancel appointment: %+v", err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAppointmentNotCreated
	}

	if err := u.auditService.LogUpdate(ctx, tx, &actor.ID, entity.AuditActionAppointmentCancel, "appointment", appointmentID.String(),
		map[string]interface{}{"status": appointment.Status},
		map[string]interface{}{"status": entity.AppointmentStatusCancel, "role": entity.RoleName(actor.RoleID)},
	); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment canceled: id=%s by=%s role=%s", appointmentID, actor.ID, entity.RoleName(actor.RoleID))

	return u.reload(ctx, appointmentID, actor)
}

func (u *statusStateMachine) Complete(ctx context.Context, doctorID uuid.UUID, appointmentID uuid.UUID, req *dto.CompleteAppointmentRequest) (*dto.CompleteAppointmentResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	doctor, err := u.userRepo.FindActiveByIDAndRole(tx, doctorID, entity.RoleIDDoctor)
	if err != nil {
		u.log.Warnf("Failed to find doctor: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	if appointment.DoctorID != doctorID {
		return nil, ErrNotAppointmentOwner
	}
	if !appointment.IsCreated() {
		return nil, ErrAppointmentNotCreated
	}

	logs := make([]dto.MedicineLogResponse, len(req.MedicinesList))
	used := make([]entity.MedicineLine, 0, len(req.MedicinesList))
	for i, line := range req.MedicinesList {
		logs[i] = dto.MedicineLogResponse{Amount: line.Amount}

		medicineID, err := uuid.Parse(line.MedicineID)
		if err != nil {
			logs[i].Message = ErrMedicineNotFound.Error()
			continue
		}
		logs[i].MedicineID = medicineID

		usage, err := u.medicineUsecase.UseMedicine(ctx, tx, &doctorID, medicineID, line.Amount, &appointmentID)
		if err != nil {
			if !errors.Is(err, ErrInventory) {
				u.log.Warnf("Failed to dispense medicine %s for appointment %s: %+v", medicineID, appointmentID, err)
			}
			logs[i].Message = err.Error()
			continue
		}

		logs[i].Success = true
		logs[i].Usage = converter.MedicineUsageLogToResponse(usage)
		used = append(used, entity.MedicineLine{MedicineID: medicineID, Amount: line.Amount})
	}

	affected, err := u.appointmentRepo.Transition(tx, appointmentID, entity.AppointmentStatusCreated, map[string]interface{}{
		"status":             entity.AppointmentStatusDone,
		"disease":            req.Disease,
		"level":              req.Level,
		"underlying_disease": req.UnderlyingDisease,
		"description":        req.Description,
		"advice":             req.Advice,
		"medicines_list":     datatypes.NewJSONSlice(used),
	})
	if err != nil {
		u.log.Warnf("Failed to complete appointment: %+v", err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAppointmentNotCreated
	}

	failed := 0
	for _, log := range logs {
		if !log.Success {
			failed++
		}
	}
	if err := u.auditService.LogUpdate(ctx, tx, &doctorID, entity.AuditActionAppointmentComplete, "appointment", appointmentID.String(),
		map[string]interface{}{"status": appointment.Status},
		map[string]interface{}{"status": entity.AppointmentStatusDone, "medicine_lines": len(logs), "medicine_failures": failed},
	); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment completed: id=%s doctor=%s medicines=%d failed=%d", appointmentID, doctorID, len(logs), failed)

	response, err := u.reload(ctx, appointmentID, entity.Actor{ID: doctorID, RoleID: entity.RoleIDDoctor})
	if err != nil {
		return nil, err
	}
	return &dto.CompleteAppointmentResponse{
		Appointment:  *response,
		MedicineLogs: logs,
	}, nil
}

func (u *statusStateMachine) reload(ctx context.Context, appointmentID uuid.UUID, actor entity.Actor) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to reload appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment, actor), nil
}
