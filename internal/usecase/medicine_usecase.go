package usecase

import (
	"context"
	"errors"

	"go-clinic-scheduler/internal/converter"
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrInvalidPrice = newError(ErrValidation, "price must not be negative")

type MedicineUsecase interface {
	CreateMedicine(ctx context.Context, req *dto.CreateMedicineRequest) (*dto.MedicineResponse, error)
	GetMedicine(ctx context.Context, id uuid.UUID) (*dto.MedicineResponse, error)
	// UseMedicine consumes stock inside its own savepoint on db, so a failure
	// leaves an enclosing transaction usable. A nil db runs standalone.
	UseMedicine(ctx context.Context, db *gorm.DB, actorID *uuid.UUID, medicineID uuid.UUID, amount int, appointmentID *uuid.UUID) (*entity.MedicineUsageLog, error)
	GetUsageLogs(ctx context.Context, medicineID uuid.UUID) (*dto.MedicineUsageLogListResponse, error)
}

type medicineUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	medicineRepo repository.MedicineRepository
	auditService service.AuditService
}

func NewMedicineUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	medicineRepo repository.MedicineRepository,
	auditService service.AuditService,
) MedicineUsecase {
	return &medicineUsecase{
		db:           db,
		log:          log,
		medicineRepo: medicineRepo,
		auditService: auditService,
	}
}

func (u *medicineUsecase) CreateMedicine(ctx context.Context, req *dto.CreateMedicineRequest) (*dto.MedicineResponse, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	medicine := &entity.Medicine{
		Name:  req.Name,
		Unit:  req.Unit,
		Price: req.Price.Round(2),
		Stock: req.Stock,
	}

	if err := u.medicineRepo.Create(u.db.WithContext(ctx), medicine); err != nil {
		u.log.Warnf("Failed to create medicine: %+v", err)
		return nil, err
	}

	return converter.MedicineToResponse(medicine), nil
}

func (u *medicineUsecase) GetMedicine(ctx context.Context, id uuid.UUID) (*dto.MedicineResponse, error) {
	medicine, err := u.medicineRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find medicine: %+v", err)
		return nil, err
	}
	if medicine == nil {
		return nil, ErrMedicineNotFound
	}
	return converter.MedicineToResponse(medicine), nil
}

func (u *medicineUsecase) UseMedicine(ctx context.Context, db *gorm.DB, actorID *uuid.UUID, medicineID uuid.UUID, amount int, appointmentID *uuid.UUID) (*entity.MedicineUsageLog, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}
	if db == nil {
		db = u.db.WithContext(ctx)
	}

	var usage *entity.MedicineUsageLog
	err := db.Transaction(func(tx *gorm.DB) error {
		medicine, err := u.medicineRepo.FindByID(tx, medicineID)
		if err != nil {
			return err
		}
		if medicine == nil {
			return ErrMedicineNotFound
		}

		affected, err := u.medicineRepo.DecreaseStock(tx, medicineID, amount)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInsufficientStock
		}

		// Re-read under the decrement so stock_after reflects concurrent consumers.
		medicine, err = u.medicineRepo.FindByID(tx, medicineID)
		if err != nil {
			return err
		}

		usage = &entity.MedicineUsageLog{
			MedicineID:    medicineID,
			AppointmentID: appointmentID,
			Amount:        amount,
			UnitPrice:     medicine.Price,
			Cost:          medicine.Price.Mul(decimal.NewFromInt(int64(amount))),
			StockAfter:    medicine.Stock,
		}
		if err := u.medicineRepo.CreateUsageLog(tx, usage); err != nil {
			return err
		}

		metadata := entity.JSON{
			"medicine_id": medicineID.String(),
			"amount":      amount,
			"cost":        usage.Cost.String(),
			"stock_after": usage.StockAfter,
		}
		if appointmentID != nil {
			metadata["appointment_id"] = appointmentID.String()
		}
		return u.auditService.LogEvent(ctx, tx, actorID, entity.AuditActionMedicineUse, metadata)
	})
	if err != nil {
		var usecaseErr *Error
		if !errors.As(err, &usecaseErr) {
			u.log.Warnf("Failed to use medicine %s: %+v", medicineID, err)
		}
		return nil, err
	}

	return usage, nil
}

func (u *medicineUsecase) GetUsageLogs(ctx context.Context, medicineID uuid.UUID) (*dto.MedicineUsageLogListResponse, error) {
	db := u.db.WithContext(ctx)

	medicine, err := u.medicineRepo.FindByID(db, medicineID)
	if err != nil {
		u.log.Warnf("Failed to find medicine: %+v", err)
		return nil, err
	}
	if medicine == nil {
		return nil, ErrMedicineNotFound
	}

	logs, err := u.medicineRepo.FindUsageLogsByMedicine(db, medicineID)
	if err != nil {
		u.log.Warnf("Failed to find usage logs: %+v", err)
		return nil, err
	}

	total := decimal.Zero
	for _, log := range logs {
		total = total.Add(log.Cost)
	}

	return &dto.MedicineUsageLogListResponse{
		Logs:      converter.MedicineUsageLogsToResponses(logs),
		Total:     len(logs),
		TotalCost: total,
	}, nil
}
