package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"go-clinic-scheduler/config"
	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/infrastructure/database/databasetest"
	"go-clinic-scheduler/internal/repository"
	"go-clinic-scheduler/internal/service"
	"go-clinic-scheduler/pkg/jwt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// testNow is the fixed clock of every scheduler under test.
var testNow = time.Date(2030, 3, 31, 9, 0, 0, 0, time.UTC)

var testDate = entity.NewDate(time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC))

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeCredentialService struct {
	mu        sync.Mutex
	delivered []*entity.PatientRegistration
	err       error
}

func (f *fakeCredentialService) Deliver(_ context.Context, registration *entity.PatientRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, registration)
	return nil
}

func (f *fakeCredentialService) Claim(_ context.Context, _ uuid.UUID, userID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.delivered {
		if r.UserID == userID {
			return r.InitialSecret, nil
		}
	}
	return "", service.ErrCredentialNotFound
}

// testEnv is a migrated database with the clinic's collaborators wired around it.
type testEnv struct {
	t               *testing.T
	db              *gorm.DB
	log             *logrus.Logger
	userRepo        domainRepo.UserRepository
	appointmentRepo domainRepo.AppointmentRepository
	medicineRepo    domainRepo.MedicineRepository
	auditService    service.AuditService
	credentials     *fakeCredentialService
	locks           *service.SlotLockService
	authUsecase     AuthUsecase
	medicineUsecase MedicineUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := databasetest.Open(t)
	log := newTestLogger()

	env := &testEnv{
		t:               t,
		db:              db,
		log:             log,
		userRepo:        repository.NewUserRepository(),
		appointmentRepo: repository.NewAppointmentRepository(),
		medicineRepo:    repository.NewMedicineRepository(),
		credentials:     &fakeCredentialService{},
		locks:           service.NewSlotLockService(nil, log, service.SlotLockOptions{}),
	}
	t.Cleanup(env.locks.Stop)

	env.auditService = service.NewAuditService(db, log, repository.NewAuditLogRepository())
	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour})
	env.authUsecase = NewAuthUsecase(db, log, env.userRepo, env.auditService, jwtService, nil)
	env.medicineUsecase = NewMedicineUsecase(db, log, env.medicineRepo, env.auditService)
	return env
}

func (e *testEnv) scheduler(appointmentRepo domainRepo.AppointmentRepository, selector Selector) AppointmentScheduler {
	return e.schedulerWith(appointmentRepo, selector, e.locks)
}

func (e *testEnv) schedulerWith(appointmentRepo domainRepo.AppointmentRepository, selector Selector, locker service.SlotLocker) AppointmentScheduler {
	if appointmentRepo == nil {
		appointmentRepo = e.appointmentRepo
	}
	return NewAppointmentScheduler(e.db, e.log, appointmentRepo, e.userRepo,
		NewResourceAssigner(selector, e.userRepo), locker, e.authUsecase, e.auditService, e.credentials,
		SchedulerOptions{
			HorizonDays:     30,
			FirstVisitRange: entity.QueueRange{Min: 1, Max: 50},
			Now:             func() time.Time { return testNow },
		})
}

func (e *testEnv) stateMachine() StatusStateMachine {
	return NewStatusStateMachine(e.db, e.log, e.appointmentRepo, e.userRepo, e.medicineUsecase, e.auditService)
}

func (e *testEnv) user(roleID int, name string) *entity.User {
	e.t.Helper()
	user := &entity.User{
		RoleID:   roleID,
		Email:    fmt.Sprintf("%s@clinic.test", name),
		Password: "x",
		FullName: name,
		IsActive: entity.BoolPtr(true),
	}
	if err := e.userRepo.Create(e.db, user); err != nil {
		e.t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func (e *testEnv) appointment(doctor, patient, nurse *entity.User, date entity.Date, queue int) *entity.Appointment {
	e.t.Helper()
	appointment := &entity.Appointment{
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		NurseID:     nurse.ID,
		Date:        date,
		QueueNumber: queue,
	}
	if err := e.appointmentRepo.Create(e.db, appointment); err != nil {
		e.t.Fatalf("create appointment %d: %v", queue, err)
	}
	return appointment
}

func (e *testEnv) medicine(name string, price string, stock int) *entity.Medicine {
	e.t.Helper()
	medicine := &entity.Medicine{Name: name, Unit: "tablet", Price: decimal.RequireFromString(price), Stock: stock}
	if err := e.medicineRepo.Create(e.db, medicine); err != nil {
		e.t.Fatalf("create medicine %s: %v", name, err)
	}
	return medicine
}

func (e *testEnv) reload(id uuid.UUID) *entity.Appointment {
	e.t.Helper()
	appointment, err := e.appointmentRepo.FindByID(e.db, id)
	if err != nil || appointment == nil {
		e.t.Fatalf("reload appointment %s: (%v, %v)", id, appointment, err)
	}
	return appointment
}

func (e *testEnv) countAudit(action string) int64 {
	e.t.Helper()
	var count int64
	if err := e.db.Model(&entity.AuditLog{}).Where("action = ?", action).Count(&count).Error; err != nil {
		e.t.Fatalf("count audit logs: %v", err)
	}
	return count
}
