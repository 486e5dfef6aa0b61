package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/infrastructure/database/databasetest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testDate = entity.NewDate(time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC))

func createUser(t *testing.T, db *gorm.DB, roleID int, name string) *entity.User {
	t.Helper()
	user := &entity.User{
		RoleID:   roleID,
		Email:    fmt.Sprintf("%s@clinic.test", name),
		Password: "x",
		FullName: name,
		IsActive: entity.BoolPtr(true),
	}
	if err := NewUserRepository().Create(db, user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func createAppointment(t *testing.T, db *gorm.DB, doctor, patient, nurse *entity.User, date entity.Date, queue int, status entity.AppointmentStatus) *entity.Appointment {
	t.Helper()
	appointment := &entity.Appointment{
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		NurseID:     nurse.ID,
		Date:        date,
		QueueNumber: queue,
		Status:      status,
	}
	if err := NewAppointmentRepository().Create(db, appointment); err != nil {
		t.Fatalf("create appointment %d: %v", queue, err)
	}
	return appointment
}

func TestAppointmentRepository_CreateDuplicateQueueNumber(t *testing.T) {
	db := databasetest.Open(t)
	doctor := createUser(t, db, entity.RoleIDDoctor, "doctor")
	nurse := createUser(t, db, entity.RoleIDNurse, "nurse")
	p1 := createUser(t, db, entity.RoleIDPatient, "p1")
	p2 := createUser(t, db, entity.RoleIDPatient, "p2")

	createAppointment(t, db, doctor, p1, nurse, testDate, 1, entity.AppointmentStatusCreated)

	err := NewAppointmentRepository().Create(db, &entity.Appointment{
		DoctorID:    doctor.ID,
		PatientID:   p2.ID,
		NurseID:     nurse.ID,
		Date:        testDate,
		QueueNumber: 1,
	})
	if !errors.Is(err, domainRepo.ErrDuplicateQueueNumber) {
		t.Fatalf("expected ErrDuplicateQueueNumber, got %v", err)
	}

	// Same number on another day is fine.
	createAppointment(t, db, doctor, p2, nurse, entity.NewDate(testDate.AddDate(0, 0, 1)), 1, entity.AppointmentStatusCreated)
}

func TestAppointmentRepository_CreateDuplicateKeepsOuterTransaction(t *testing.T) {
	db := databasetest.Open(t)
	doctor := createUser(t, db, entity.RoleIDDoctor, "doctor")
	nurse := createUser(t, db, entity.RoleIDNurse, "nurse")
	patient := createUser(t, db, entity.RoleIDPatient, "patient")
	createAppointment(t, db, doctor, patient, nurse, testDate, 1, entity.AppointmentStatusCreated)

	repo := NewAppointmentRepository()
	err := db.Transaction(func(tx *gorm.DB) error {
		dup := &entity.Appointment{DoctorID: doctor.ID, PatientID: patient.ID, NurseID: nurse.ID, Date: testDate, QueueNumber: 1}
		if err := repo.Create(tx, dup); !errors.Is(err, domainRepo.ErrDuplicateQueueNumber) {
			t.Fatalf("expected duplicate, got %v", err)
		}
		next := &entity.Appointment{DoctorID: doctor.ID, PatientID: patient.ID, NurseID: nurse.ID, Date: testDate, QueueNumber: 2}
		return repo.Create(tx, next)
	})
	if err != nil {
		t.Fatalf("outer transaction should survive the duplicate: %v", err)
	}

	numbers, err := repo.OccupiedQueueNumbers(db, doctor.ID, testDate, entity.QueueRange{Min: 1, Max: 10})
	if err != nil {
		t.Fatalf("occupied: %v", err)
	}
	if fmt.Sprint(numbers) != "[1 2]" {
		t.Errorf("expected [1 2], got %v", numbers)
	}
}

func TestAppointmentRepository_OccupiedQueueNumbersKeepsCancelled(t *testing.T) {
	db := databasetest.Open(t)
	doctor := createUser(t, db, entity.RoleIDDoctor, "doctor")
	other := createUser(t, db, entity.RoleIDDoctor, "other")
	nurse := createUser(t, db, entity.RoleIDNurse, "nurse")
	patient := createUser(t, db, entity.RoleIDPatient, "patient")

	createAppointment(t, db, doctor, patient, nurse, testDate, 4, entity.AppointmentStatusCreated)
	createAppointment(t, db, doctor, patient, nurse, testDate, 2, entity.AppointmentStatusCancel)
	createAppointment(t, db, doctor, patient, nurse, testDate, 7, entity.AppointmentStatusDone)
	createAppointment(t, db, other, patient, nurse, testDate, 3, entity.AppointmentStatusCreated)

	numbers, err := NewAppointmentRepository().OccupiedQueueNumbers(db, doctor.ID, testDate, entity.QueueRange{Min: 1, Max: 5})
	if err != nil {
		t.Fatalf("occupied: %v", err)
	}
	if fmt.Sprint(numbers) != "[2 4]" {
		t.Errorf("expected [2 4], got %v", numbers)
	}
}

func TestAppointmentRepository_ExistsForPatient(t *testing.T) {
	db := databasetest.Open(t)
	doctor := createUser(t, db, entity.RoleIDDoctor, "doctor")
	nurse := createUser(t, db, entity.RoleIDNurse, "nurse")
	patient := createUser(t, db, entity.RoleIDPatient, "patient")
	repo := NewAppointmentRepository()

	createAppointment(t, db, doctor, patient, nurse, testDate, 3, entity.AppointmentStatusCreated)
	createAppointment(t, db, doctor, patient, nurse, testDate, 8, entity.AppointmentStatusCancel)

	tests := []struct {
		name string
		r    *entity.QueueRange
		want bool
	}{
		{"whole day", nil, true},
		{"range with live booking", &entity.QueueRange{Min: 1, Max: 5}, true},
		{"range with only cancelled booking", &entity.QueueRange{Min: 6, Max: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ExistsForPatient(db, patient.ID, testDate, tt.r)
			if err != nil {
				t.Fatalf("exists: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %t, got %t", tt.want, got)
			}
		})
	}
}

func TestAppointmentRepository_TransitionIsCompareAndSet(t *testing.T) {
	db := databasetest.Open(t)
	doctor := createUser(t, db, entity.RoleIDDoctor, "doctor")
	nurse := createUser(t, db, entity.RoleIDNurse, "nurse")
	patient := createUser(t, db, entity.RoleIDPatient, "patient")
	appointment := createAppointment(t, db, doctor, patient, nurse, testDate, 1, entity.AppointmentStatusCreated)
	repo := NewAppointmentRepository()

	affected, err := repo.Transition(db, appointment.ID, entity.AppointmentStatusCreated, map[string]interface{}{"status": entity.AppointmentStatusCancel})
	if err != nil || affected != 1 {
		t.Fatalf("expected first transition to apply, affected=%d err=%v", affected, err)
	}

	affected, err = repo.Transition(db, appointment.ID, entity.AppointmentStatusCreated, map[string]interface{}{"status": entity.AppointmentStatusDone})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected second transition to be a no-op, affected=%d", affected)
	}

	reloaded, err := repo.FindByID(db, appointment.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if reloaded.Status != entity.AppointmentStatusCancel {
		t.Errorf("expected CANCEL, got %s", reloaded.Status)
	}
	if reloaded.Doctor == nil || reloaded.Doctor.ID != doctor.ID {
		t.Error("expected doctor to be preloaded")
	}
}

func TestAppointmentRepository_FindByIDMissing(t *testing.T) {
	db := databasetest.Open(t)
	appointment, err := NewAppointmentRepository().FindByID(db, uuid.New())
	if err != nil || appointment != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", appointment, err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := databasetest.Open(t)
	createUser(t, db, entity.RoleIDPatient, "same")

	err := NewUserRepository().Create(db, &entity.User{
		RoleID:   entity.RoleIDPatient,
		Email:    "same@clinic.test",
		Password: "x",
		FullName: "Same Again",
		IsActive: entity.BoolPtr(true),
	})
	if !errors.Is(err, domainRepo.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_FindActiveByRoleSkipsInactive(t *testing.T) {
	db := databasetest.Open(t)
	repo := NewUserRepository()
	createUser(t, db, entity.RoleIDNurse, "active")
	inactive := &entity.User{RoleID: entity.RoleIDNurse, Email: "off@clinic.test", Password: "x", FullName: "off", IsActive: entity.BoolPtr(false)}
	if err := repo.Create(db, inactive); err != nil {
		t.Fatalf("create: %v", err)
	}

	nurses, err := repo.FindActiveByRole(db, entity.RoleIDNurse)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(nurses) != 1 || nurses[0].FullName != "active" {
		t.Errorf("expected only the active nurse, got %+v", nurses)
	}

	found, err := repo.FindActiveByIDAndRole(db, inactive.ID, entity.RoleIDNurse)
	if err != nil || found != nil {
		t.Errorf("expected inactive nurse to be hidden, got (%v, %v)", found, err)
	}
}

func TestUserRepository_FindDoctorsFreeOn(t *testing.T) {
	db := databasetest.Open(t)
	busy := createUser(t, db, entity.RoleIDDoctor, "busy")
	freed := createUser(t, db, entity.RoleIDDoctor, "freed")
	createUser(t, db, entity.RoleIDDoctor, "idle")
	nurse := createUser(t, db, entity.RoleIDNurse, "nurse")
	patient := createUser(t, db, entity.RoleIDPatient, "patient")

	createAppointment(t, db, busy, patient, nurse, testDate, 1, entity.AppointmentStatusCreated)
	createAppointment(t, db, freed, patient, nurse, testDate, 1, entity.AppointmentStatusCancel)

	doctors, err := NewUserRepository().FindDoctorsFreeOn(db, testDate)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var names []string
	for _, d := range doctors {
		names = append(names, d.FullName)
	}
	if fmt.Sprint(names) != "[freed idle]" {
		t.Errorf("expected [freed idle], got %v", names)
	}
}

func TestUserRepository_FindDoctorsWithCapacity(t *testing.T) {
	db := databasetest.Open(t)
	full := createUser(t, db, entity.RoleIDDoctor, "full")
	partial := createUser(t, db, entity.RoleIDDoctor, "partial")
	createUser(t, db, entity.RoleIDDoctor, "idle")
	nurse := createUser(t, db, entity.RoleIDNurse, "nurse")
	patient := createUser(t, db, entity.RoleIDPatient, "patient")

	for n := 1; n <= 5; n++ {
		createAppointment(t, db, full, patient, nurse, testDate, n, entity.AppointmentStatusCreated)
	}
	createAppointment(t, db, partial, patient, nurse, testDate, 2, entity.AppointmentStatusCreated)

	capacities, err := NewUserRepository().FindDoctorsWithCapacity(db, testDate, entity.QueueRange{Min: 1, Max: 5})
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	booked := map[string]int64{}
	for _, c := range capacities {
		booked[c.FullName] = c.Booked
	}
	if _, ok := booked["full"]; ok {
		t.Error("fully booked doctor must not be listed")
	}
	if booked["partial"] != 1 {
		t.Errorf("expected partial to have 1 booked, got %d", booked["partial"])
	}
	if b, ok := booked["idle"]; !ok || b != 0 {
		t.Errorf("expected idle doctor with 0 booked, got %d (listed=%t)", b, ok)
	}

	capacities, err = NewUserRepository().FindDoctorsWithCapacity(db, testDate, entity.QueueRange{Min: 6, Max: 10})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(capacities) != 3 {
		t.Errorf("expected all 3 doctors free in [6,10], got %d", len(capacities))
	}
}

func TestMedicineRepository_DecreaseStock(t *testing.T) {
	db := databasetest.Open(t)
	repo := NewMedicineRepository()
	medicine := &entity.Medicine{Name: "Paracetamol", Unit: "tablet", Price: decimal.RequireFromString("1.50"), Stock: 5}
	if err := repo.Create(db, medicine); err != nil {
		t.Fatalf("create: %v", err)
	}

	affected, err := repo.DecreaseStock(db, medicine.ID, 3)
	if err != nil || affected != 1 {
		t.Fatalf("expected decrease to apply, affected=%d err=%v", affected, err)
	}

	affected, err = repo.DecreaseStock(db, medicine.ID, 3)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected no change when stock is short, affected=%d", affected)
	}

	reloaded, err := repo.FindByID(db, medicine.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if reloaded.Stock != 2 {
		t.Errorf("expected stock 2, got %d", reloaded.Stock)
	}
}

func TestAuditLogRepository_FindAllFiltersAndPages(t *testing.T) {
	db := databasetest.Open(t)
	repo := NewAuditLogRepository()
	for i := 0; i < 3; i++ {
		if err := repo.Create(db, &entity.AuditLog{Action: entity.AuditActionAppointmentCreate}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.Create(db, &entity.AuditLog{Action: entity.AuditActionMedicineUse}); err != nil {
		t.Fatalf("create: %v", err)
	}

	logs, total, err := repo.FindAll(db, entity.AuditActionAppointmentCreate, 2, 0)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if total != 3 || len(logs) != 2 {
		t.Errorf("expected total 3 and page of 2, got total=%d len=%d", total, len(logs))
	}

	missing, err := repo.FindByID(db, 999)
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", missing, err)
	}
}
